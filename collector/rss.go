package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/papermux/papermux/utils"
)

// RSSCollector fetches and parses machine-readable feeds for rss journals.
type RSSCollector struct {
	parser *gofeed.Parser
}

func NewRSSCollector(userAgent string, timeout time.Duration) *RSSCollector {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: timeout}
	return &RSSCollector{parser: parser}
}

// Collect fetches the feed at feedURL and maps its items to candidate
// papers. Any transport or parse failure is reported as SourceUnreadable.
func (r *RSSCollector) Collect(ctx context.Context, feedURL string) ([]CandidatePaper, error) {
	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	return feedToPapers(feed), nil
}

// ParseFeed parses raw feed bytes without touching the network. Used by the
// dry-run endpoint and tests.
func ParseFeed(data []byte) ([]CandidatePaper, error) {
	feed, err := gofeed.NewParser().ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	return feedToPapers(feed), nil
}

func feedToPapers(feed *gofeed.Feed) []CandidatePaper {
	papers := make([]CandidatePaper, 0, len(feed.Items))
	for _, item := range feed.Items {
		paper := itemToPaper(item)
		if paper.Title == "" && paper.URL == "" {
			continue
		}
		papers = append(papers, paper)
	}
	return papers
}

func itemToPaper(item *gofeed.Item) CandidatePaper {
	paper := CandidatePaper{
		Title:    cleanText(item.Title),
		URL:      strings.TrimSpace(item.Link),
		Abstract: stripTags(firstNonEmpty(item.Description, item.Content)),
		Authors:  itemAuthors(item),
	}

	paper.ExternalID = strings.TrimSpace(item.GUID)
	// Only a non-empty link may stand in for a missing GUID. Hashing the
	// empty string would hand every URL-less item the same identity and
	// the dedup index would swallow all but the first.
	if paper.ExternalID == "" && paper.URL != "" {
		paper.ExternalID = utils.TextToMd5Hash(paper.URL)
	}

	paper.DOI = itemDOI(item)
	paper.PublishedDate = itemPublishedDate(item)
	return paper
}

func itemAuthors(item *gofeed.Item) []string {
	var values []string
	for _, person := range item.Authors {
		if person != nil && person.Name != "" {
			values = append(values, person.Name)
		}
	}
	if len(values) == 0 && item.Author != nil && item.Author.Name != "" {
		values = append(values, item.Author.Name)
	}
	if len(values) == 0 && item.DublinCoreExt != nil {
		values = append(values, item.DublinCoreExt.Creator...)
	}
	return splitAuthors(values)
}

func itemDOI(item *gofeed.Item) string {
	candidates := []string{item.GUID, item.Link}
	if item.DublinCoreExt != nil {
		candidates = append(candidates, item.DublinCoreExt.Identifier...)
	}
	for _, candidate := range candidates {
		if doi := NormalizeDOI(candidate); doi != "" {
			return doi
		}
	}
	return FindDOI(candidates...)
}

func itemPublishedDate(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		t := *item.PublishedParsed
		return &t
	}
	if parsed := parseDate(item.Published); parsed != nil {
		return parsed
	}
	if item.UpdatedParsed != nil {
		t := *item.UpdatedParsed
		return &t
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
