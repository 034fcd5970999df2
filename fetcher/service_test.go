package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/papermux/papermux/analyzer"
	"github.com/papermux/papermux/analyzer/ai"
	"github.com/papermux/papermux/collector"
	"github.com/papermux/papermux/config"
	"github.com/papermux/papermux/model"
	"github.com/papermux/papermux/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeItemRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Journal of Numerical Software</title>
  <link>https://example.org</link>
  <item>
    <title>Error Bounds for Spectral Deferred Correction</title>
    <link>https://example.org/papers/sdc-bounds</link>
    <guid>example:sdc-bounds</guid>
  </item>
  <item>
    <title>A Cache Oblivious Stencil Compiler</title>
    <link>https://example.org/papers/stencil-compiler</link>
    <guid>example:stencil-compiler</guid>
  </item>
  <item>
    <title>Verified Interval Arithmetic in Hardware</title>
    <link>https://example.org/papers/interval-hw</link>
    <guid>example:interval-hw</guid>
  </item>
</channel>
</rss>`

const liveListingHTML = `<html><body>
<ul class="toc">
  <li class="toc-entry"><a class="toc-link" href="/papers/301">Deterministic Parallel Graph Coloring</a></li>
  <li class="toc-entry"><a class="toc-link" href="/papers/302">Streaming Suffix Trees Revisited</a></li>
</ul>
</body></html>`

var liveListingRecipe = collector.SelectorRecipe{
	Item:  "li.toc-entry",
	Title: "a.toc-link",
	URL:   "a.toc-link",
}

func testConfig() *config.Config {
	return &config.Config{
		MinFetchIntervalMS: 3600000,
		MaxRedirects:       5,
		ReduceByteBudget:   65536,
		HTTPTimeoutSecond:  5,
		FetchWorkerCount:   2,
		UserAgent:          "papermux-test",
	}
}

func newTestService(st store.Store, provider ai.Provider, cfg *config.Config) *Service {
	if cfg == nil {
		cfg = testConfig()
	}
	if provider == nil {
		provider = &ai.Fake{}
	}
	rss := collector.NewRSSCollector(cfg.UserAgent, cfg.HTTPTimeout())
	live := collector.NewLiveCollector(cfg.UserAgent, cfg.HTTPTimeout())
	pageFetcher := collector.NewPageFetcher(cfg.UserAgent, cfg.HTTPTimeout(), cfg.MaxRedirects)
	az := analyzer.New(provider, pageFetcher, cfg.ReduceByteBudget, cfg.MaxRedirects)
	return NewService(st, rss, live, az, cfg)
}

func serveRSS(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, threeItemRSS)
	}))
	t.Cleanup(server.Close)
	return server
}

func mustCreateJournal(t *testing.T, st store.Store, journal *model.Journal) *model.Journal {
	t.Helper()
	require.NoError(t, st.CreateJournal(context.Background(), journal))
	return journal
}

func TestFetchJournalRSS(t *testing.T) {
	ctx := context.Background()
	server := serveRSS(t)
	st := store.NewMemoryStore()

	cfg := testConfig()
	cfg.MinFetchIntervalMS = 0
	service := newTestService(st, nil, cfg)

	journal := mustCreateJournal(t, st, &model.Journal{
		UserID:     "user-1",
		Name:       "Numerical Software",
		SourceURL:  server.URL + "/feed.xml",
		SourceType: model.SourceTypeRSS,
		Active:     true,
	})

	first, err := service.FetchJournalByID(ctx, journal.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, first.Status)
	assert.Equal(t, 3, first.PapersFetched)
	assert.Equal(t, 3, first.NewPapers)

	papers, err := st.ListPapersByJournal(ctx, journal.Id)
	require.NoError(t, err)
	assert.Len(t, papers, 3)

	second, err := service.FetchJournalByID(ctx, journal.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, second.Status)
	assert.Equal(t, 3, second.PapersFetched)
	assert.Equal(t, 0, second.NewPapers, "unchanged source must not re-insert papers")

	logs, err := st.ListFetchLogs(ctx, journal.Id, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	reloaded, err := st.GetJournal(ctx, journal.Id)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastFetchedAt)
}

func TestFetchJournalIntervalGuard(t *testing.T) {
	ctx := context.Background()
	server := serveRSS(t)
	st := store.NewMemoryStore()
	service := newTestService(st, nil, nil)

	journal := mustCreateJournal(t, st, &model.Journal{
		UserID:     "user-1",
		Name:       "Numerical Software",
		SourceURL:  server.URL + "/feed.xml",
		SourceType: model.SourceTypeRSS,
		Active:     true,
	})

	first, err := service.FetchJournalByID(ctx, journal.Id)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, first.Status)

	afterFirst, err := st.GetJournal(ctx, journal.Id)
	require.NoError(t, err)
	require.NotNil(t, afterFirst.LastFetchedAt)

	// stepping clock, each reading is 250ms after the previous one
	base := time.Now()
	ticks := 0
	service.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks-1) * 250 * time.Millisecond)
	}

	second, err := service.FetchJournalByID(ctx, journal.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, second.Status)
	assert.Contains(t, second.Message, "FetchSkipped")
	assert.Zero(t, second.PapersFetched)
	assert.Equal(t, int64(250), second.ExecutionTimeMs, "skipped results carry a duration like every other status")

	logs, err := st.ListFetchLogs(ctx, journal.Id, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1, "a skipped fetch writes no log row")

	afterSecond, err := st.GetJournal(ctx, journal.Id)
	require.NoError(t, err)
	assert.True(t, afterSecond.LastFetchedAt.Equal(*afterFirst.LastFetchedAt), "a skipped fetch leaves last_fetched_at alone")
}

func TestFetchJournalSourceError(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	st := store.NewMemoryStore()
	service := newTestService(st, nil, nil)

	journal := mustCreateJournal(t, st, &model.Journal{
		UserID:     "user-1",
		SourceURL:  server.URL + "/feed.xml",
		SourceType: model.SourceTypeRSS,
		Active:     true,
	})

	result, err := service.FetchJournalByID(ctx, journal.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "SourceUnreadable")

	logs, err := st.ListFetchLogs(ctx, journal.Id, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.FetchStatusError, logs[0].Status)
	assert.Contains(t, logs[0].ErrorMessage, "SourceUnreadable")

	reloaded, err := st.GetJournal(ctx, journal.Id)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.LastFetchedAt, "last_fetched_at moves on error too")
}

func TestFetchJournalUnconfigured(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	service := newTestService(st, nil, nil)

	journal := mustCreateJournal(t, st, &model.Journal{
		UserID:     "user-1",
		SourceURL:  "https://journal.example.org",
		SourceType: model.SourceTypeAIGenerated,
		Active:     true,
	})

	result, err := service.FetchJournalByID(ctx, journal.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "Unconfigured")
}

func TestFetchJournalAIGenerated(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, liveListingHTML)
	}))
	defer server.Close()

	st := store.NewMemoryStore()
	service := newTestService(st, nil, nil)

	journal := mustCreateJournal(t, st, &model.Journal{
		UserID:     "user-1",
		SourceURL:  server.URL + "/toc",
		SourceType: model.SourceTypeAIGenerated,
		Active:     true,
	})

	encoded, err := collector.EncodeExtractionConfig(&collector.ExtractionConfig{
		Selectors: liveListingRecipe,
		PageType:  ai.PageTypeArticleList,
	})
	require.NoError(t, err)
	require.NoError(t, st.UpsertGeneratedFeed(ctx, &model.GeneratedFeed{
		JournalID:        journal.Id,
		FeedToken:        "0123456789abcdef0123456789abcdef",
		ExtractionConfig: encoded,
	}))

	result, err := service.FetchJournalByID(ctx, journal.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 2, result.PapersFetched)
	assert.Equal(t, 2, result.NewPapers)

	papers, err := st.ListPapersByJournal(ctx, journal.Id)
	require.NoError(t, err)
	require.Len(t, papers, 2)
	for _, paper := range papers {
		assert.Contains(t, paper.URL, server.URL+"/papers/")
	}
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	server := serveRSS(t)
	broken := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer broken.Close()

	st := store.NewMemoryStore()
	cfg := testConfig()
	cfg.MinFetchIntervalMS = 0
	service := newTestService(st, nil, cfg)

	healthy := mustCreateJournal(t, st, &model.Journal{
		UserID: "user-1", SourceURL: server.URL, SourceType: model.SourceTypeRSS, Active: true,
	})
	failing := mustCreateJournal(t, st, &model.Journal{
		UserID: "user-1", SourceURL: broken.URL, SourceType: model.SourceTypeRSS, Active: true,
	})
	mustCreateJournal(t, st, &model.Journal{
		UserID: "user-2", SourceURL: server.URL, SourceType: model.SourceTypeRSS, Active: false,
	})

	batch, err := service.FetchAll(ctx)
	require.NoError(t, err)

	require.Len(t, batch.Results, 2, "inactive journals stay out of batch fetches")
	assert.Equal(t, StatusSuccess, batch.Results[healthy.Id].Status)
	assert.Equal(t, StatusError, batch.Results[failing.Id].Status)

	assert.Equal(t, 2, batch.Summary.TotalJournals)
	assert.Equal(t, 3, batch.Summary.TotalNew)
	assert.Equal(t, 1, batch.Summary.ErrorCount)

	logs, err := st.ListFetchLogs(ctx, "", 10)
	require.NoError(t, err)

	var rollups []model.FetchLog
	for _, row := range logs {
		if row.JournalID == nil {
			rollups = append(rollups, row)
		}
	}
	require.Len(t, rollups, 1)
	assert.Equal(t, model.FetchStatusError, rollups[0].Status)
	assert.Contains(t, rollups[0].ErrorMessage, "1 of 2 journals failed")
	assert.Equal(t, 3, rollups[0].NewPapers)
}

func TestFetchForUser(t *testing.T) {
	ctx := context.Background()
	server := serveRSS(t)
	st := store.NewMemoryStore()

	cfg := testConfig()
	cfg.MinFetchIntervalMS = 0
	service := newTestService(st, nil, cfg)

	mine := mustCreateJournal(t, st, &model.Journal{
		UserID: "user-1", SourceURL: server.URL, SourceType: model.SourceTypeRSS, Active: true,
	})
	mustCreateJournal(t, st, &model.Journal{
		UserID: "user-2", SourceURL: server.URL, SourceType: model.SourceTypeRSS, Active: true,
	})

	batch, err := service.FetchForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.Contains(t, batch.Results, mine.Id)
}

func TestFetchJournalByIDNotFound(t *testing.T) {
	service := newTestService(store.NewMemoryStore(), nil, nil)
	_, err := service.FetchJournalByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
