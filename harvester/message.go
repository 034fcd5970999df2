package harvester

import "encoding/json"

const (
	// TriggerSchedule marks jobs the scheduler emitted on its own.
	TriggerSchedule = "schedule"
	// TriggerManual marks jobs injected by hand, for debugging or backfill.
	TriggerManual = "manual"
)

// FetchJob asks a worker to fetch one journal. It travels on
// TopicPendingFetch.
type FetchJob struct {
	JobId     string `json:"job_id"`
	JournalID string `json:"journal_id"`
	Trigger   string `json:"trigger"`
}

// FetchOutcome reports one finished fetch. It travels on TopicFetchOutcome
// and feeds the reporter's metrics.
type FetchOutcome struct {
	JobId           string `json:"job_id"`
	JournalID       string `json:"journal_id"`
	Trigger         string `json:"trigger"`
	Status          string `json:"status"`
	PapersFetched   int    `json:"papers_fetched"`
	NewPapers       int    `json:"new_papers"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}

func EncodeFetchJob(job *FetchJob) ([]byte, error) {
	return json.Marshal(job)
}

func DecodeFetchJob(data []byte) (*FetchJob, error) {
	job := &FetchJob{}
	if err := json.Unmarshal(data, job); err != nil {
		return nil, err
	}
	return job, nil
}

func EncodeFetchOutcome(outcome *FetchOutcome) ([]byte, error) {
	return json.Marshal(outcome)
}

func DecodeFetchOutcome(data []byte) (*FetchOutcome, error) {
	outcome := &FetchOutcome{}
	if err := json.Unmarshal(data, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}
