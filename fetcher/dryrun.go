package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/papermux/papermux/analyzer"
	"github.com/papermux/papermux/collector"
	"github.com/papermux/papermux/utils"
)

// ErrInvalidURL marks a dry-run request whose URL failed validation before
// any network call was made.
var ErrInvalidURL = errors.New("invalid source url")

// TestFeed parses a candidate feed URL without persisting anything.
func (s *Service) TestFeed(ctx context.Context, feedURL string) ([]collector.CandidatePaper, error) {
	if _, err := utils.ParseHTTPURL(feedURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return s.rss.Collect(ctx, feedURL)
}

// TestPage runs the full analysis flow against a candidate page URL without
// touching any journal. The caller inspects the outcome variant.
func (s *Service) TestPage(ctx context.Context, pageURL string) (analyzer.Outcome, []analyzer.RedirectStep, error) {
	if _, err := utils.ParseHTTPURL(pageURL); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return s.analyzer.Analyze(ctx, pageURL)
}
