package model

import (
	"time"
)

const (
	FetchStatusSuccess = "success"
	FetchStatusError   = "error"
)

/*

FetchLog is one row per completed fetch attempt

Id: primary key
CreatedAt: time when entity is created
JournalID: journal the attempt ran for, nil for batch rollup rows

Status: "success" or "error"
PapersFetched: how many candidate papers the source yielded
NewPapers: how many of those survived deduplication and were stored
ErrorMessage: failure category and detail, empty on success
ExecutionTimeMs: wall time of the attempt

*/
type FetchLog struct {
	Id              string `gorm:"primaryKey"`
	CreatedAt       time.Time
	JournalID       *string `gorm:"index"`
	Status          string
	PapersFetched   int
	NewPapers       int
	ErrorMessage    string
	ExecutionTimeMs int64
}
