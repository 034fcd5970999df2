package harvester

const (
	// Fetch jobs emitted by the scheduler, pending worker pickup.
	TopicPendingFetch = "topic.pending_fetch"
	// Fetch outcomes published by workers after a job finishes.
	TopicFetchOutcome = "topic.fetch_outcome"
)

const (
	DDOG_FETCH_COUNTER    = "papermux.harvester.fetch"
	DDOG_FETCH_LATENCY    = "papermux.harvester.fetch.latency"
	DDOG_NEW_PAPERS_COUNT = "papermux.harvester.fetch.new_papers"
)
