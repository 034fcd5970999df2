// Package store is the canonical persistence boundary. Core fetch and
// analysis logic depends on these interfaces only, never on gorm directly.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/papermux/papermux/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Stats is the aggregate snapshot served by the management API.
type Stats struct {
	Journals       int64
	ActiveJournals int64
	Papers         int64
	FetchLogs      int64
}

type JournalStore interface {
	CreateJournal(ctx context.Context, journal *model.Journal) error
	GetJournal(ctx context.Context, id string) (*model.Journal, error)
	ListJournalsByUser(ctx context.Context, userID string) ([]model.Journal, error)
	ListActiveJournals(ctx context.Context) ([]model.Journal, error)
	UpdateJournal(ctx context.Context, journal *model.Journal) error
	// DeleteJournal soft deletes the journal. Paper, fetch log and generated
	// feed rows stay behind; every read path resolves through the journal,
	// so they stop being reachable.
	DeleteJournal(ctx context.Context, id string) error
	// TouchJournalFetched updates only LastFetchedAt, leaving concurrent
	// edits to other columns alone.
	TouchJournalFetched(ctx context.Context, id string, fetchedAt time.Time) error
}

type PaperStore interface {
	CreatePapers(ctx context.Context, papers []*model.Paper) error
	ListPapersByJournal(ctx context.Context, journalID string) ([]model.Paper, error)
}

type GeneratedFeedStore interface {
	// UpsertGeneratedFeed inserts or replaces the single recipe row of
	// feed.JournalID, keyed by journal.
	UpsertGeneratedFeed(ctx context.Context, feed *model.GeneratedFeed) error
	GetGeneratedFeedByJournal(ctx context.Context, journalID string) (*model.GeneratedFeed, error)
	GetGeneratedFeedByToken(ctx context.Context, token string) (*model.GeneratedFeed, error)
}

type FetchLogStore interface {
	AppendFetchLog(ctx context.Context, fetchLog *model.FetchLog) error
	// ListFetchLogs returns newest-first logs for one journal, or for all
	// journals including batch rollups when journalID is empty.
	ListFetchLogs(ctx context.Context, journalID string, limit int) ([]model.FetchLog, error)
}

// Store is the full persistence surface of the engine.
type Store interface {
	JournalStore
	PaperStore
	GeneratedFeedStore
	FetchLogStore

	Stats(ctx context.Context) (*Stats, error)
}
