package modules

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papermux/papermux/analyzer"
	"github.com/papermux/papermux/analyzer/ai"
	"github.com/papermux/papermux/collector"
	"github.com/papermux/papermux/config"
	"github.com/papermux/papermux/fetcher"
	"github.com/papermux/papermux/harvester"
	"github.com/papermux/papermux/model"
	"github.com/papermux/papermux/store"
)

const workerFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Worker Test Feed</title>
  <link>https://example.org</link>
  <item>
    <title>Lock-Free Queues Under Weak Memory Models</title>
    <link>https://example.org/papers/lfq</link>
    <guid>example:lfq</guid>
  </item>
  <item>
    <title>Scheduling DAG Workloads on Heterogeneous Clusters</title>
    <link>https://example.org/papers/dag-sched</link>
    <guid>example:dag-sched</guid>
  </item>
</channel>
</rss>`

func newWorkerService(st store.Store) *fetcher.Service {
	cfg := &config.Config{
		MinFetchIntervalMS: 0,
		MaxRedirects:       5,
		ReduceByteBudget:   65536,
		HTTPTimeoutSecond:  5,
		FetchWorkerCount:   2,
		UserAgent:          "papermux-test",
	}
	rss := collector.NewRSSCollector(cfg.UserAgent, cfg.HTTPTimeout())
	live := collector.NewLiveCollector(cfg.UserAgent, cfg.HTTPTimeout())
	pageFetcher := collector.NewPageFetcher(cfg.UserAgent, cfg.HTTPTimeout(), cfg.MaxRedirects)
	az := analyzer.New(&ai.Fake{}, pageFetcher, cfg.ReduceByteBudget, cfg.MaxRedirects)
	return fetcher.NewService(st, rss, live, az, cfg)
}

func TestWorkerProcessesFetchJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, workerFeedXML)
	}))
	defer upstream.Close()

	st := store.NewMemoryStore()
	journal := &model.Journal{
		UserID:     "user-1",
		Name:       "Worker Feed",
		SourceURL:  upstream.URL,
		SourceType: model.SourceTypeRSS,
		Active:     true,
	}
	require.NoError(t, st.CreateJournal(ctx, journal))

	// Persistent delivery, the worker subscribes from its own goroutine and
	// must not lose jobs published before that subscription lands.
	eventbus := gochannel.NewGoChannel(
		gochannel.Config{Persistent: true},
		watermill.NewStdLogger(false, false),
	)
	worker := NewWorker(WorkerConfig{Name: "worker", Concurrency: 2}, newWorkerService(st), eventbus)

	outcomes, err := eventbus.Subscribe(ctx, harvester.TopicFetchOutcome)
	require.NoError(t, err)

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- worker.RunModule(ctx)
	}()

	data, err := harvester.EncodeFetchJob(&harvester.FetchJob{
		JobId:     "job-1",
		JournalID: journal.Id,
		Trigger:   harvester.TriggerManual,
	})
	require.NoError(t, err)
	require.NoError(t, eventbus.Publish(harvester.TopicPendingFetch, message.NewMessage(watermill.NewUUID(), data)))

	select {
	case msg := <-outcomes:
		msg.Ack()
		outcome, err := harvester.DecodeFetchOutcome(msg.Payload)
		require.NoError(t, err)
		assert.Equal(t, "job-1", outcome.JobId)
		assert.Equal(t, journal.Id, outcome.JournalID)
		assert.Equal(t, harvester.TriggerManual, outcome.Trigger)
		assert.Equal(t, fetcher.StatusSuccess, outcome.Status)
		assert.Equal(t, 2, outcome.NewPapers)
	case <-time.After(10 * time.Second):
		t.Fatal("no fetch outcome published")
	}

	papers, err := st.ListPapersByJournal(ctx, journal.Id)
	require.NoError(t, err)
	assert.Len(t, papers, 2)

	cancel()
	select {
	case err := <-workerDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestWorkerHonorsConcurrencyBound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inFlight, peak int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if current <= old || atomic.CompareAndSwapInt32(&peak, old, current) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, workerFeedXML)
	}))
	defer upstream.Close()

	st := store.NewMemoryStore()
	var ids []string
	for i := 0; i < 3; i++ {
		journal := &model.Journal{
			UserID:     "user-1",
			Name:       fmt.Sprintf("Worker Feed %d", i),
			SourceURL:  upstream.URL,
			SourceType: model.SourceTypeRSS,
			Active:     true,
		}
		require.NoError(t, st.CreateJournal(ctx, journal))
		ids = append(ids, journal.Id)
	}

	eventbus := gochannel.NewGoChannel(
		gochannel.Config{Persistent: true},
		watermill.NewStdLogger(false, false),
	)
	worker := NewWorker(WorkerConfig{Name: "worker", Concurrency: 1}, newWorkerService(st), eventbus)

	outcomes, err := eventbus.Subscribe(ctx, harvester.TopicFetchOutcome)
	require.NoError(t, err)

	go func() {
		_ = worker.RunModule(ctx)
	}()

	for i, id := range ids {
		data, err := harvester.EncodeFetchJob(&harvester.FetchJob{
			JobId:     fmt.Sprintf("job-%d", i),
			JournalID: id,
			Trigger:   harvester.TriggerSchedule,
		})
		require.NoError(t, err)
		require.NoError(t, eventbus.Publish(harvester.TopicPendingFetch, message.NewMessage(watermill.NewUUID(), data)))
	}

	for range ids {
		select {
		case msg := <-outcomes:
			msg.Ack()
		case <-time.After(10 * time.Second):
			t.Fatal("missing fetch outcomes")
		}
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak), "a single slot means a single fetch in flight")
}

func TestWorkerDropsJobForUnknownJournal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, workerFeedXML)
	}))
	defer upstream.Close()

	st := store.NewMemoryStore()
	journal := &model.Journal{
		UserID:     "user-1",
		Name:       "Worker Feed",
		SourceURL:  upstream.URL,
		SourceType: model.SourceTypeRSS,
		Active:     true,
	}
	require.NoError(t, st.CreateJournal(ctx, journal))

	eventbus := gochannel.NewGoChannel(
		gochannel.Config{Persistent: true},
		watermill.NewStdLogger(false, false),
	)
	worker := NewWorker(WorkerConfig{Name: "worker", Concurrency: 1}, newWorkerService(st), eventbus)

	outcomes, err := eventbus.Subscribe(ctx, harvester.TopicFetchOutcome)
	require.NoError(t, err)

	go func() {
		_ = worker.RunModule(ctx)
	}()

	publish := func(job *harvester.FetchJob) {
		data, err := harvester.EncodeFetchJob(job)
		require.NoError(t, err)
		require.NoError(t, eventbus.Publish(harvester.TopicPendingFetch, message.NewMessage(watermill.NewUUID(), data)))
	}
	publish(&harvester.FetchJob{JobId: "job-ghost", JournalID: "no-such-journal", Trigger: harvester.TriggerSchedule})
	publish(&harvester.FetchJob{JobId: "job-real", JournalID: journal.Id, Trigger: harvester.TriggerSchedule})

	// The ghost job yields no outcome, so the first outcome on the bus must
	// belong to the real journal.
	select {
	case msg := <-outcomes:
		msg.Ack()
		outcome, err := harvester.DecodeFetchOutcome(msg.Payload)
		require.NoError(t, err)
		assert.Equal(t, "job-real", outcome.JobId)
		assert.Equal(t, journal.Id, outcome.JournalID)
	case <-time.After(10 * time.Second):
		t.Fatal("no fetch outcome published")
	}
}
