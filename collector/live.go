package collector

import (
	"fmt"
	"time"

	"github.com/gocolly/colly"
	"github.com/sirupsen/logrus"

	Logger "github.com/papermux/papermux/utils/log"
)

// LiveCollector replays a stored selector recipe against the live source
// page. It backs both scheduled fetches of ai_generated journals and
// on-demand feed rendering at /feeds/:token.
type LiveCollector struct {
	userAgent string
	timeout   time.Duration
}

func NewLiveCollector(userAgent string, timeout time.Duration) *LiveCollector {
	return &LiveCollector{userAgent: userAgent, timeout: timeout}
}

// Collect crawls the page and extracts one candidate paper per matched item.
func (l *LiveCollector) Collect(pageURL string, cfg *ExtractionConfig) ([]CandidatePaper, error) {
	if cfg == nil || !cfg.Selectors.Usable() {
		return nil, fmt.Errorf("%w: journal has no usable selector recipe", ErrUnconfigured)
	}

	crawlURL := pageURL
	if cfg.BaseURL != "" {
		crawlURL = cfg.BaseURL
	}

	c := colly.NewCollector(
		colly.UserAgent(l.userAgent),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(l.timeout)

	var papers []CandidatePaper
	skipped := 0
	// each matched listing item lands here once
	c.OnHTML(cfg.Selectors.Item, func(elem *colly.HTMLElement) {
		paper, err := PaperFromSelection(elem.DOM, cfg.Selectors, elem.Request.AbsoluteURL)
		if err != nil {
			skipped++
			return
		}
		papers = append(papers, paper)
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		Logger.Log.WithFields(logrus.Fields{"source": "live"}).
			Error("Request URL:", r.Request.URL, " failed with error:", err, " selector ", cfg.Selectors.Item)
	})

	if err := c.Visit(crawlURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, fetchErr)
	}

	if skipped > 0 {
		Logger.Log.WithFields(logrus.Fields{"source": "live"}).
			Warnf("dropped %d matched items without title or url at %s", skipped, crawlURL)
	}
	if len(papers) == 0 {
		return nil, fmt.Errorf("%w: selector %q matched nothing at %s", ErrExtractionEmpty, cfg.Selectors.Item, crawlURL)
	}
	return papers, nil
}
