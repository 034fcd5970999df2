// Package ai holds the provider-neutral contract for page analysis: page
// classification, selector extraction and redirect suggestion. Providers
// exchange strict JSON payloads so results stay machine-checkable.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papermux/papermux/collector"
)

// Page classification categories a provider may return.
const (
	PageTypeArticleList   = "article_list"
	PageTypeJournalHome   = "journal_home"
	PageTypeArticleDetail = "article_detail"
	PageTypeSearchResults = "search_results"
	PageTypeOther         = "other"
	PageTypeUnknown       = "unknown"
)

// Classification is the verdict on what kind of page the reduced HTML shows.
type Classification struct {
	PageType string `json:"page_type"`
	Reason   string `json:"reason,omitempty"`
}

// SamplePaper is one example row the provider claims the selectors extract,
// used to sanity check a recipe before storing it.
type SamplePaper struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	DOI   string `json:"doi,omitempty"`
	Date  string `json:"date,omitempty"`
}

// SelectorExtraction is the recipe proposal for an article listing page.
type SelectorExtraction struct {
	Selectors    collector.SelectorRecipe `json:"selectors"`
	SamplePapers []SamplePaper            `json:"sample_papers,omitempty"`
}

// RedirectSuggestion points at the article listing linked from a non-listing
// page. An empty ArticleListURL means the provider found no such link.
type RedirectSuggestion struct {
	ArticleListURL string `json:"article_list_url"`
	Reason         string `json:"reason,omitempty"`
}

// Provider is one AI backend able to run the three analysis operations over
// reduced page HTML.
type Provider interface {
	Name() string
	Model() string
	Classify(ctx context.Context, pageHTML string) (*Classification, error)
	ExtractSelectors(ctx context.Context, pageHTML string) (*SelectorExtraction, error)
	SuggestRedirect(ctx context.Context, pageHTML string) (*RedirectSuggestion, error)
}

// PayloadError reports a provider response that was not the strict JSON the
// protocol demands. Raw keeps the offending text for logs and error rows.
type PayloadError struct {
	Raw string
	Err error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("malformed provider payload: %v", e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// Excerpt returns the head of the raw payload, capped for log lines.
func (e *PayloadError) Excerpt(max int) string {
	raw := strings.TrimSpace(e.Raw)
	if len(raw) <= max {
		return raw
	}
	cut := max
	for cut > 0 && raw[cut]&0xC0 == 0x80 {
		cut--
	}
	return raw[:cut] + "..."
}

// decodePayload parses a provider response into v. Code fences and prose
// around the JSON object are tolerated, everything else is a PayloadError.
func decodePayload(raw string, v interface{}) error {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return &PayloadError{Raw: raw, Err: fmt.Errorf("no JSON object found")}
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return &PayloadError{Raw: raw, Err: err}
	}
	return nil
}
