package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	// SourceTypeRSS marks a journal backed by a machine-readable RSS/Atom feed.
	SourceTypeRSS = "rss"
	// SourceTypeAIGenerated marks a journal backed by an HTML page that is
	// scraped with an AI-derived selector recipe.
	SourceTypeAIGenerated = "ai_generated"
)

/*

Journal is a single followed publication owned by one dashboard user

Id: primary key, use to identify a journal
CreatedAt: time when entity is created
UpdatedAt: time when entity is last modified
DeletedAt: time when entity is deleted
UserID: owning user, opaque to the engine, journals never leak across users

Name: journal's display name
SourceURL: feed URL (rss) or landing page URL (ai_generated)
SourceType: "rss" or "ai_generated"
Color: display color tag chosen by the user
Active: inactive journals are excluded from scheduled and batch fetching
LastFetchedAt: completion time of the last fetch attempt, nil until first fetch

*/
type Journal struct {
	Id            string `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt
	UserID        string `gorm:"index"`
	Name          string
	SourceURL     string
	SourceType    string
	Color         string
	Active        bool
	LastFetchedAt *time.Time
}

// IsAIGenerated returns true iff the journal is scraped from an HTML page
// instead of parsed from a feed.
func (j *Journal) IsAIGenerated() bool {
	return j.SourceType == SourceTypeAIGenerated
}
