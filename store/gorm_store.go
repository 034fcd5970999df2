package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/papermux/papermux/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GetDBConnection opens a postgres connection for the given DSN with gorm
// logging silenced.
func GetDBConnection(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// DatabaseSetupAndMigration creates or upgrades all engine tables.
func DatabaseSetupAndMigration(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Journal{},
		&model.Paper{},
		&model.GeneratedFeed{},
		&model.FetchLog{},
	)
}

// GormStore is the postgres-backed Store used in production.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateJournal(ctx context.Context, journal *model.Journal) error {
	if journal.Id == "" {
		journal.Id = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(journal).Error
}

func (s *GormStore) GetJournal(ctx context.Context, id string) (*model.Journal, error) {
	var journal model.Journal
	res := s.db.WithContext(ctx).Where("id = ?", id).First(&journal)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, res.Error
	}
	return &journal, nil
}

func (s *GormStore) ListJournalsByUser(ctx context.Context, userID string) ([]model.Journal, error) {
	var journals []model.Journal
	res := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&journals)
	return journals, res.Error
}

func (s *GormStore) ListActiveJournals(ctx context.Context) ([]model.Journal, error) {
	var journals []model.Journal
	res := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&journals)
	return journals, res.Error
}

func (s *GormStore) UpdateJournal(ctx context.Context, journal *model.Journal) error {
	return s.db.WithContext(ctx).Save(journal).Error
}

func (s *GormStore) DeleteJournal(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Journal{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) TouchJournalFetched(ctx context.Context, id string, fetchedAt time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&model.Journal{}).
		Where("id = ?", id).
		Update("last_fetched_at", fetchedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreatePapers(ctx context.Context, papers []*model.Paper) error {
	if len(papers) == 0 {
		return nil
	}
	for _, paper := range papers {
		if paper.Id == "" {
			paper.Id = uuid.New().String()
		}
	}
	return s.db.WithContext(ctx).Create(papers).Error
}

func (s *GormStore) ListPapersByJournal(ctx context.Context, journalID string) ([]model.Paper, error) {
	var papers []model.Paper
	res := s.db.WithContext(ctx).
		Where("journal_id = ?", journalID).
		Order("published_date DESC NULLS LAST").
		Order("created_at DESC").
		Find(&papers)
	return papers, res.Error
}

func (s *GormStore) UpsertGeneratedFeed(ctx context.Context, feed *model.GeneratedFeed) error {
	var existing model.GeneratedFeed
	res := s.db.WithContext(ctx).Where("journal_id = ?", feed.JournalID).First(&existing)
	if res.Error != nil {
		if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return res.Error
		}
		if feed.Id == "" {
			feed.Id = uuid.New().String()
		}
		return s.db.WithContext(ctx).Create(feed).Error
	}

	feed.Id = existing.Id
	feed.CreatedAt = existing.CreatedAt
	return s.db.WithContext(ctx).Save(feed).Error
}

func (s *GormStore) GetGeneratedFeedByJournal(ctx context.Context, journalID string) (*model.GeneratedFeed, error) {
	var feed model.GeneratedFeed
	res := s.db.WithContext(ctx).Where("journal_id = ?", journalID).First(&feed)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, res.Error
	}
	return &feed, nil
}

func (s *GormStore) GetGeneratedFeedByToken(ctx context.Context, token string) (*model.GeneratedFeed, error) {
	var feed model.GeneratedFeed
	res := s.db.WithContext(ctx).Where("feed_token = ?", token).First(&feed)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, res.Error
	}
	return &feed, nil
}

func (s *GormStore) AppendFetchLog(ctx context.Context, fetchLog *model.FetchLog) error {
	if fetchLog.Id == "" {
		fetchLog.Id = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(fetchLog).Error
}

func (s *GormStore) ListFetchLogs(ctx context.Context, journalID string, limit int) ([]model.FetchLog, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if journalID != "" {
		query = query.Where("journal_id = ?", journalID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var logs []model.FetchLog
	res := query.Find(&logs)
	return logs, res.Error
}

func (s *GormStore) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	db := s.db.WithContext(ctx)

	if err := db.Model(&model.Journal{}).Count(&stats.Journals).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Journal{}).Where("active = ?", true).Count(&stats.ActiveJournals).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Paper{}).Count(&stats.Papers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.FetchLog{}).Count(&stats.FetchLogs).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
