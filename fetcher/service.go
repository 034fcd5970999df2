// Package fetcher orchestrates journal fetches: interval guarding, source
// dispatch, deduplication, persistence and fetch logging. Batch operations
// run journals over a bounded worker pool and isolate per-journal failures.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/papermux/papermux/analyzer"
	"github.com/papermux/papermux/collector"
	"github.com/papermux/papermux/config"
	"github.com/papermux/papermux/model"
	"github.com/papermux/papermux/store"
	Logger "github.com/papermux/papermux/utils/log"
	"github.com/sirupsen/logrus"
)

type Service struct {
	store    store.Store
	rss      *collector.RSSCollector
	live     *collector.LiveCollector
	analyzer *analyzer.Analyzer
	cfg      *config.Config
	now      func() time.Time
}

func NewService(st store.Store, rss *collector.RSSCollector, live *collector.LiveCollector, az *analyzer.Analyzer, cfg *config.Config) *Service {
	return &Service{store: st, rss: rss, live: live, analyzer: az, cfg: cfg, now: time.Now}
}

// FetchJournal runs one fetch attempt for the journal. It never returns an
// error: failures land in the result and in a FetchLog row. A skipped
// attempt writes no log row and leaves LastFetchedAt alone.
func (s *Service) FetchJournal(ctx context.Context, journal *model.Journal) *FetchResult {
	started := s.now()

	if next, skip := s.nextAllowedFetch(journal, started); skip {
		return &FetchResult{
			JournalID: journal.Id,
			Status:    StatusSkipped,
			Message: fmt.Sprintf("FetchSkipped: fetched at %s, next fetch allowed at %s",
				journal.LastFetchedAt.UTC().Format(time.RFC3339), next.UTC().Format(time.RFC3339)),
			ExecutionTimeMs: s.now().Sub(started).Milliseconds(),
		}
	}

	result := &FetchResult{JournalID: journal.Id, Status: StatusSuccess}
	candidates, err := s.collect(ctx, journal)
	if err == nil {
		result.PapersFetched = len(candidates)
		result.NewPapers, err = s.persistNew(ctx, journal, candidates, started)
	}
	if err != nil {
		result.Status = StatusError
		result.Message = err.Error()
	}
	result.ExecutionTimeMs = s.now().Sub(started).Milliseconds()

	// LastFetchedAt moves on error too, so the interval guard keeps
	// holding back broken sources.
	if touchErr := s.store.TouchJournalFetched(ctx, journal.Id, started); touchErr != nil {
		Logger.Log.Errorf("updating last_fetched_at for journal %s: %v", journal.Id, touchErr)
	}
	s.appendLog(ctx, result)

	Logger.Log.WithFields(logrus.Fields{
		"journal_id":     journal.Id,
		"source_type":    journal.SourceType,
		"status":         result.Status,
		"papers_fetched": result.PapersFetched,
		"new_papers":     result.NewPapers,
	}).Info("journal fetch finished")
	return result
}

// FetchJournalByID loads the journal first; an unknown id surfaces as
// store.ErrNotFound instead of an error-status result.
func (s *Service) FetchJournalByID(ctx context.Context, id string) (*FetchResult, error) {
	journal, err := s.store.GetJournal(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.FetchJournal(ctx, journal), nil
}

// FetchAll fetches every active journal.
func (s *Service) FetchAll(ctx context.Context) (*BatchResult, error) {
	journals, err := s.store.ListActiveJournals(ctx)
	if err != nil {
		return nil, err
	}
	return s.fetchBatch(ctx, journals), nil
}

// FetchForUser fetches the active journals owned by one user.
func (s *Service) FetchForUser(ctx context.Context, userID string) (*BatchResult, error) {
	journals, err := s.store.ListJournalsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var active []model.Journal
	for _, journal := range journals {
		if journal.Active {
			active = append(active, journal)
		}
	}
	return s.fetchBatch(ctx, active), nil
}

func (s *Service) fetchBatch(ctx context.Context, journals []model.Journal) *BatchResult {
	started := s.now()
	results := make(map[string]*FetchResult, len(journals))

	workerCount := s.cfg.FetchWorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	jobs := make(chan *model.Journal)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for journal := range jobs {
				result := s.FetchJournal(ctx, journal)
				mu.Lock()
				results[journal.Id] = result
				mu.Unlock()
			}
		}()
	}
	for i := range journals {
		jobs <- &journals[i]
	}
	close(jobs)
	wg.Wait()

	batch := &BatchResult{Results: results, ExecutionTimeMs: s.now().Sub(started).Milliseconds()}
	for _, result := range results {
		batch.Summary.TotalJournals++
		batch.Summary.TotalFetched += result.PapersFetched
		batch.Summary.TotalNew += result.NewPapers
		switch result.Status {
		case StatusError:
			batch.Summary.ErrorCount++
		case StatusSkipped:
			batch.Summary.SkippedCount++
		}
	}
	s.appendRollup(ctx, batch)
	return batch
}

// nextAllowedFetch applies the minimum inter-fetch interval. The guard is
// best effort; the dedup index is what actually prevents double inserts
// under concurrent triggers.
func (s *Service) nextAllowedFetch(journal *model.Journal, now time.Time) (time.Time, bool) {
	if journal.LastFetchedAt == nil {
		return time.Time{}, false
	}
	next := journal.LastFetchedAt.Add(s.cfg.MinFetchInterval())
	if now.Before(next) {
		return next, true
	}
	return time.Time{}, false
}

// collect dispatches to the feed parser or the selector replay depending on
// the journal's source type.
func (s *Service) collect(ctx context.Context, journal *model.Journal) ([]collector.CandidatePaper, error) {
	if !journal.IsAIGenerated() {
		return s.rss.Collect(ctx, journal.SourceURL)
	}

	feed, err := s.store.GetGeneratedFeedByJournal(ctx, journal.Id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: journal has no selector recipe yet", collector.ErrUnconfigured)
	}
	if err != nil {
		return nil, err
	}
	extractionCfg, err := collector.ParseExtractionConfig(feed.ExtractionConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: stored extraction config does not parse: %v", collector.ErrUnconfigured, err)
	}
	return s.live.Collect(journal.SourceURL, extractionCfg)
}

// persistNew stores the candidates that no identity key matches. Existing
// rows are never overwritten by later fetches.
func (s *Service) persistNew(ctx context.Context, journal *model.Journal, candidates []collector.CandidatePaper, fetchedAt time.Time) (int, error) {
	known, err := s.store.ListPapersByJournal(ctx, journal.Id)
	if err != nil {
		return 0, err
	}
	index := collector.NewPaperIndex()
	for i := range known {
		doi := ""
		if known[i].DOI != nil {
			doi = *known[i].DOI
		}
		index.AddKeys(doi, known[i].URL, known[i].ExternalID)
	}

	var rows []*model.Paper
	for _, candidate := range candidates {
		if index.IsDuplicate(candidate) {
			continue
		}
		index.Add(candidate)
		rows = append(rows, paperRow(journal.Id, candidate, fetchedAt))
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.store.CreatePapers(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func paperRow(journalID string, candidate collector.CandidatePaper, fetchedAt time.Time) *model.Paper {
	paper := &model.Paper{
		JournalID:     journalID,
		ExternalID:    candidate.ExternalID,
		Title:         candidate.Title,
		Authors:       model.AuthorsJSON(candidate.Authors),
		Abstract:      candidate.Abstract,
		URL:           candidate.URL,
		PublishedDate: candidate.PublishedDate,
		FetchedAt:     fetchedAt,
	}
	if candidate.DOI != "" {
		doi := candidate.DOI
		paper.DOI = &doi
	}
	return paper
}

func (s *Service) appendLog(ctx context.Context, result *FetchResult) {
	journalID := result.JournalID
	row := &model.FetchLog{
		JournalID:       &journalID,
		Status:          result.Status,
		PapersFetched:   result.PapersFetched,
		NewPapers:       result.NewPapers,
		ErrorMessage:    result.Message,
		ExecutionTimeMs: result.ExecutionTimeMs,
	}
	if err := s.store.AppendFetchLog(ctx, row); err != nil {
		Logger.Log.Errorf("appending fetch log for journal %s: %v", journalID, err)
	}
}

// appendRollup writes the batch summary as one log row without a journal id.
func (s *Service) appendRollup(ctx context.Context, batch *BatchResult) {
	status := model.FetchStatusSuccess
	message := ""
	if batch.Summary.ErrorCount > 0 {
		status = model.FetchStatusError
		message = fmt.Sprintf("%d of %d journals failed", batch.Summary.ErrorCount, batch.Summary.TotalJournals)
	}
	row := &model.FetchLog{
		Status:          status,
		PapersFetched:   batch.Summary.TotalFetched,
		NewPapers:       batch.Summary.TotalNew,
		ErrorMessage:    message,
		ExecutionTimeMs: batch.ExecutionTimeMs,
	}
	if err := s.store.AppendFetchLog(ctx, row); err != nil {
		Logger.Log.Errorf("appending batch fetch log: %v", err)
	}
}
