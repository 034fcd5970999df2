package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

/*

Paper is a single publication item fetched for a journal

Id: primary key, use to identify a paper
CreatedAt: time when entity is created
JournalID: journal this paper belongs to, "belongs-to" relation

ExternalID: stable per-source identifier (feed GUID or scraped id), falls back
            to a hash of the item URL when the source exposes none
Title: paper title in plain text
Authors: JSON array of author display names, in source order
Abstract: abstract or summary in plain text, possibly empty
URL: canonical link to the paper as published by the source
DOI: digital object identifier when the source exposes one
PublishedDate: publication date claimed by the source, nil when unparseable
FetchedAt: time the fetch that first saw this paper started

*/
type Paper struct {
	Id            string `gorm:"primaryKey"`
	CreatedAt     time.Time
	JournalID     string `gorm:"index"`
	ExternalID    string
	Title         string
	Authors       datatypes.JSON
	Abstract      string
	URL           string
	DOI           *string
	PublishedDate *time.Time
	FetchedAt     time.Time
}

// AuthorsJSON encodes a list of author names for the Authors column.
func AuthorsJSON(authors []string) datatypes.JSON {
	if len(authors) == 0 {
		return datatypes.JSON("[]")
	}
	b, err := json.Marshal(authors)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(b)
}

// AuthorList decodes the Authors column back into a list of names.
func (p *Paper) AuthorList() []string {
	var authors []string
	if len(p.Authors) == 0 {
		return authors
	}
	if err := json.Unmarshal(p.Authors, &authors); err != nil {
		return nil
	}
	return authors
}
