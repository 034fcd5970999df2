package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/papermux/papermux/analyzer"
	"github.com/papermux/papermux/analyzer/ai"
	"github.com/papermux/papermux/collector"
	"github.com/papermux/papermux/model"
	"github.com/papermux/papermux/store"
	"github.com/papermux/papermux/utils"
	Logger "github.com/papermux/papermux/utils/log"
	"github.com/sirupsen/logrus"
)

// ErrWrongSourceType marks selector operations requested for journals that
// are not ai_generated.
var ErrWrongSourceType = errors.New("journal is not ai_generated")

// RegenerateResult reports a stored selector regeneration.
type RegenerateResult struct {
	JournalID string                      `json:"journal_id"`
	FeedToken string                      `json:"feed_token"`
	Config    *collector.ExtractionConfig `json:"extraction_config"`
	Samples   []ai.SamplePaper            `json:"sample_papers,omitempty"`
	Steps     []analyzer.RedirectStep     `json:"redirect_steps,omitempty"`
	Provider  string                      `json:"provider"`
	Model     string                      `json:"model"`
}

// Regenerate analyzes the journal's source page and replaces its stored
// extraction config. The feed token survives regeneration, and the previous
// config stays untouched when analysis fails.
func (s *Service) Regenerate(ctx context.Context, journalID string) (*RegenerateResult, error) {
	journal, err := s.store.GetJournal(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if !journal.IsAIGenerated() {
		return nil, fmt.Errorf("%w: journal %s has source type %s", ErrWrongSourceType, journal.Id, journal.SourceType)
	}

	outcome, steps, err := s.analyzer.Analyze(ctx, journal.SourceURL)
	if err != nil {
		return nil, err
	}

	switch o := outcome.(type) {
	case *analyzer.Listing:
		return s.ApplyListing(ctx, journal.Id, o, steps)
	case *analyzer.Redirect:
		return nil, &analyzer.NotListingError{PageType: o.PageType, Suggestion: o.URL}
	case *analyzer.Unsupported:
		return nil, &analyzer.NotListingError{PageType: o.PageType}
	default:
		return nil, fmt.Errorf("unexpected analysis outcome %T", outcome)
	}
}

// ApplyListing stores a confirmed listing as the journal's extraction
// config. An existing feed token is preserved, a first-time listing mints a
// fresh one.
func (s *Service) ApplyListing(ctx context.Context, journalID string, listing *analyzer.Listing, steps []analyzer.RedirectStep) (*RegenerateResult, error) {
	extractionCfg := &collector.ExtractionConfig{
		Selectors: listing.Recipe,
		PageType:  listing.PageType,
		BaseURL:   listing.FinalURL,
	}
	encoded, err := collector.EncodeExtractionConfig(extractionCfg)
	if err != nil {
		return nil, err
	}

	feed := &model.GeneratedFeed{
		JournalID:        journalID,
		FeedToken:        utils.NewFeedToken(),
		ExtractionConfig: encoded,
		Provider:         listing.Provider,
		Model:            listing.Model,
	}
	if existing, err := s.store.GetGeneratedFeedByJournal(ctx, journalID); err == nil {
		feed.FeedToken = existing.FeedToken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if err := s.store.UpsertGeneratedFeed(ctx, feed); err != nil {
		return nil, err
	}

	Logger.Log.WithFields(logrus.Fields{
		"journal_id": journalID,
		"provider":   listing.Provider,
		"model":      listing.Model,
		"item":       listing.Recipe.Item,
		"base_url":   listing.FinalURL,
	}).Info("selector recipe stored")

	return &RegenerateResult{
		JournalID: journalID,
		FeedToken: feed.FeedToken,
		Config:    extractionCfg,
		Samples:   listing.Samples,
		Steps:     steps,
		Provider:  listing.Provider,
		Model:     listing.Model,
	}, nil
}
