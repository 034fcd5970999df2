package model

import (
	"time"

	"gorm.io/datatypes"
)

/*

GeneratedFeed is the scraping contract produced by AI analysis for one
ai_generated journal

Id: primary key
CreatedAt: time when entity is created
UpdatedAt: time when the recipe was last regenerated
JournalID: owning journal, exactly one GeneratedFeed per journal

FeedToken: unguessable 32 char hex token, public identity of the rendered
           feed at /feeds/:token, survives regeneration
ExtractionConfig: JSON document holding the selector recipe, the inferred
                  page type and the base URL the recipe applies to
Provider: AI provider that produced the current recipe
Model: model name that produced the current recipe

*/
type GeneratedFeed struct {
	Id               string `gorm:"primaryKey"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	JournalID        string `gorm:"uniqueIndex"`
	FeedToken        string `gorm:"uniqueIndex"`
	ExtractionConfig datatypes.JSON
	Provider         string
	Model            string
}
