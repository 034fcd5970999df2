package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/papermux/papermux/model"
)

// MemoryStore is an in-memory Store used in tests and local tooling. All
// reads return deep copies, callers can never mutate internal state.
type MemoryStore struct {
	mu       sync.RWMutex
	journals map[string]*model.Journal
	papers   map[string][]*model.Paper
	feeds    map[string]*model.GeneratedFeed
	logs     []*model.FetchLog
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		journals: make(map[string]*model.Journal),
		papers:   make(map[string][]*model.Paper),
		feeds:    make(map[string]*model.GeneratedFeed),
	}
}

func deepCopyJournal(journal *model.Journal) *model.Journal {
	var cp model.Journal
	copier.CopyWithOption(&cp, journal, copier.Option{DeepCopy: true})
	return &cp
}

func deepCopyPaper(paper *model.Paper) *model.Paper {
	var cp model.Paper
	copier.CopyWithOption(&cp, paper, copier.Option{DeepCopy: true})
	return &cp
}

func deepCopyFeed(feed *model.GeneratedFeed) *model.GeneratedFeed {
	var cp model.GeneratedFeed
	copier.CopyWithOption(&cp, feed, copier.Option{DeepCopy: true})
	return &cp
}

func deepCopyLog(fetchLog *model.FetchLog) *model.FetchLog {
	var cp model.FetchLog
	copier.CopyWithOption(&cp, fetchLog, copier.Option{DeepCopy: true})
	return &cp
}

func (s *MemoryStore) CreateJournal(ctx context.Context, journal *model.Journal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if journal.Id == "" {
		journal.Id = uuid.New().String()
	}
	if journal.CreatedAt.IsZero() {
		journal.CreatedAt = time.Now()
	}
	journal.UpdatedAt = time.Now()
	s.journals[journal.Id] = deepCopyJournal(journal)
	return nil
}

func (s *MemoryStore) GetJournal(ctx context.Context, id string) (*model.Journal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	journal, ok := s.journals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopyJournal(journal), nil
}

func (s *MemoryStore) ListJournalsByUser(ctx context.Context, userID string) ([]model.Journal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var journals []model.Journal
	for _, journal := range s.journals {
		if journal.UserID == userID {
			journals = append(journals, *deepCopyJournal(journal))
		}
	}
	sortJournals(journals)
	return journals, nil
}

func (s *MemoryStore) ListActiveJournals(ctx context.Context) ([]model.Journal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var journals []model.Journal
	for _, journal := range s.journals {
		if journal.Active {
			journals = append(journals, *deepCopyJournal(journal))
		}
	}
	sortJournals(journals)
	return journals, nil
}

func sortJournals(journals []model.Journal) {
	sort.Slice(journals, func(i, j int) bool {
		if journals[i].CreatedAt.Equal(journals[j].CreatedAt) {
			return journals[i].Id < journals[j].Id
		}
		return journals[i].CreatedAt.Before(journals[j].CreatedAt)
	})
}

func (s *MemoryStore) UpdateJournal(ctx context.Context, journal *model.Journal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.journals[journal.Id]; !ok {
		return ErrNotFound
	}
	journal.UpdatedAt = time.Now()
	s.journals[journal.Id] = deepCopyJournal(journal)
	return nil
}

func (s *MemoryStore) DeleteJournal(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.journals[id]; !ok {
		return ErrNotFound
	}
	// Paper, fetch log and feed entries stay, matching the gorm soft delete.
	delete(s.journals, id)
	return nil
}

func (s *MemoryStore) TouchJournalFetched(ctx context.Context, id string, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	journal, ok := s.journals[id]
	if !ok {
		return ErrNotFound
	}
	t := fetchedAt
	journal.LastFetchedAt = &t
	journal.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CreatePapers(ctx context.Context, papers []*model.Paper) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, paper := range papers {
		if paper.Id == "" {
			paper.Id = uuid.New().String()
		}
		if paper.CreatedAt.IsZero() {
			paper.CreatedAt = time.Now()
		}
		s.papers[paper.JournalID] = append(s.papers[paper.JournalID], deepCopyPaper(paper))
	}
	return nil
}

func (s *MemoryStore) ListPapersByJournal(ctx context.Context, journalID string) ([]model.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var papers []model.Paper
	for _, paper := range s.papers[journalID] {
		papers = append(papers, *deepCopyPaper(paper))
	}
	sort.Slice(papers, func(i, j int) bool {
		pi, pj := papers[i].PublishedDate, papers[j].PublishedDate
		switch {
		case pi != nil && pj != nil && !pi.Equal(*pj):
			return pi.After(*pj)
		case pi == nil && pj != nil:
			return false
		case pi != nil && pj == nil:
			return true
		}
		return papers[i].CreatedAt.After(papers[j].CreatedAt)
	})
	return papers, nil
}

func (s *MemoryStore) UpsertGeneratedFeed(ctx context.Context, feed *model.GeneratedFeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.feeds[feed.JournalID]; ok {
		feed.Id = existing.Id
		feed.CreatedAt = existing.CreatedAt
	} else {
		if feed.Id == "" {
			feed.Id = uuid.New().String()
		}
		if feed.CreatedAt.IsZero() {
			feed.CreatedAt = time.Now()
		}
	}
	feed.UpdatedAt = time.Now()
	s.feeds[feed.JournalID] = deepCopyFeed(feed)
	return nil
}

func (s *MemoryStore) GetGeneratedFeedByJournal(ctx context.Context, journalID string) (*model.GeneratedFeed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feed, ok := s.feeds[journalID]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopyFeed(feed), nil
}

func (s *MemoryStore) GetGeneratedFeedByToken(ctx context.Context, token string) (*model.GeneratedFeed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, feed := range s.feeds {
		if feed.FeedToken == token {
			return deepCopyFeed(feed), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) AppendFetchLog(ctx context.Context, fetchLog *model.FetchLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fetchLog.Id == "" {
		fetchLog.Id = uuid.New().String()
	}
	if fetchLog.CreatedAt.IsZero() {
		fetchLog.CreatedAt = time.Now()
	}
	s.logs = append(s.logs, deepCopyLog(fetchLog))
	return nil
}

func (s *MemoryStore) ListFetchLogs(ctx context.Context, journalID string, limit int) ([]model.FetchLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// walk newest-appended first so equal timestamps keep insertion order
	var logs []model.FetchLog
	for i := len(s.logs) - 1; i >= 0; i-- {
		fetchLog := s.logs[i]
		if journalID != "" && (fetchLog.JournalID == nil || *fetchLog.JournalID != journalID) {
			continue
		}
		logs = append(logs, *deepCopyLog(fetchLog))
	}
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		Journals:  int64(len(s.journals)),
		FetchLogs: int64(len(s.logs)),
	}
	for _, journal := range s.journals {
		if journal.Active {
			stats.ActiveJournals++
		}
	}
	for _, papers := range s.papers {
		stats.Papers += int64(len(papers))
	}
	return stats, nil
}
