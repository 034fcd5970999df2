package fetcher

// Status values of one journal fetch attempt. Skipped means the minimum
// fetch interval had not elapsed; it is backpressure, not a failure.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// FetchResult reports one journal fetch attempt.
type FetchResult struct {
	JournalID       string `json:"journal_id"`
	Status          string `json:"status"`
	PapersFetched   int    `json:"papers_fetched"`
	NewPapers       int    `json:"new_papers"`
	Message         string `json:"message,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}

// Summary aggregates one batch fetch.
type Summary struct {
	TotalJournals int `json:"total_journals"`
	TotalFetched  int `json:"total_fetched"`
	TotalNew      int `json:"total_new"`
	ErrorCount    int `json:"error_count"`
	SkippedCount  int `json:"skipped_count"`
}

// BatchResult keys per-journal results by journal id. A failing journal
// never aborts the batch, it only shows up with status error.
type BatchResult struct {
	Results         map[string]*FetchResult `json:"results"`
	Summary         Summary                 `json:"summary"`
	ExecutionTimeMs int64                   `json:"execution_time_ms"`
}
