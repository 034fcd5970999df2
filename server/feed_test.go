package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/papermux/papermux/collector"
	"github.com/papermux/papermux/model"
	"github.com/papermux/papermux/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const publicFeedToken = "0123456789abcdef0123456789abcdef"

func seedGeneratedJournal(t *testing.T, st *store.MemoryStore, sourceURL string, recipe collector.SelectorRecipe) *model.Journal {
	t.Helper()
	ctx := context.Background()

	journal := &model.Journal{
		UserID:     "user-1",
		Name:       "Graph Algorithms Quarterly",
		SourceURL:  sourceURL,
		SourceType: model.SourceTypeAIGenerated,
		Active:     true,
	}
	require.NoError(t, st.CreateJournal(ctx, journal))

	encoded, err := collector.EncodeExtractionConfig(&collector.ExtractionConfig{
		Selectors: recipe,
		PageType:  "article_list",
	})
	require.NoError(t, err)
	require.NoError(t, st.UpsertGeneratedFeed(ctx, &model.GeneratedFeed{
		JournalID:        journal.Id,
		FeedToken:        publicFeedToken,
		ExtractionConfig: encoded,
		Provider:         "fake",
		Model:            "fake-model",
	}))
	return journal
}

func TestFeedUnknownToken(t *testing.T) {
	server, _ := newTestServer(nil, nil)
	recorder := doRequest(t, server.Router(), http.MethodGet, "/feeds/ffff0000ffff0000ffff0000ffff0000", nil, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "feed not found", recorder.Body.String())
}

func TestFeedDeletedJournal(t *testing.T) {
	server, st := newTestServer(nil, nil)
	journal := seedGeneratedJournal(t, st, "https://example.org/toc", tocRecipe)
	require.NoError(t, st.DeleteJournal(context.Background(), journal.Id))

	// The feed row still resolves by token, the missing journal is what
	// turns the request away.
	recorder := doRequest(t, server.Router(), http.MethodGet, "/feeds/"+publicFeedToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "feed not found", recorder.Body.String())
}

func TestFeedNotConfigured(t *testing.T) {
	server, st := newTestServer(nil, nil)
	seedGeneratedJournal(t, st, "https://example.org/toc", collector.SelectorRecipe{})

	recorder := doRequest(t, server.Router(), http.MethodGet, "/feeds/"+publicFeedToken, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Equal(t, "feed not configured", recorder.Body.String())
}

func TestFeedLiveRender(t *testing.T) {
	upstream := serveContent(t, "text/html", tocListingHTML)
	server, st := newTestServer(nil, nil)
	seedGeneratedJournal(t, st, upstream.URL+"/toc", tocRecipe)

	recorder := doRequest(t, server.Router(), http.MethodGet, "/feeds/"+publicFeedToken, nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, "text/xml; charset=utf-8", recorder.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=1800", recorder.Header().Get("Cache-Control"))

	// The rendition must be consumable by the same parser the rss collector
	// uses for real journal feeds.
	papers, err := collector.ParseFeed(recorder.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, papers, 2)
	assert.Equal(t, "Deterministic Parallel Graph Coloring", papers[0].Title)
	assert.Equal(t, "Streaming Suffix Trees Revisited", papers[1].Title)
	assert.Contains(t, papers[0].URL, "/papers/301")
}

func TestFeedUpstreamFailure(t *testing.T) {
	upstream := serveContent(t, "text/html", tocListingHTML)
	server, st := newTestServer(nil, nil)
	seedGeneratedJournal(t, st, upstream.URL+"/toc", tocRecipe)
	upstream.Close()

	recorder := doRequest(t, server.Router(), http.MethodGet, "/feeds/"+publicFeedToken, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "SourceUnreadable")
}

func TestFeedExtractionEmpty(t *testing.T) {
	upstream := serveContent(t, "text/html", "<html><body><p>Redesigned page, no table of contents here.</p></body></html>")
	server, st := newTestServer(nil, nil)
	seedGeneratedJournal(t, st, upstream.URL+"/toc", tocRecipe)

	recorder := doRequest(t, server.Router(), http.MethodGet, "/feeds/"+publicFeedToken, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "ExtractionEmpty")
}

func TestRenderRSS(t *testing.T) {
	published := time.Date(2024, time.March, 14, 9, 30, 0, 0, time.UTC)
	journal := &model.Journal{
		Name:      "Combinatorics & Computing",
		SourceURL: "https://example.org/toc",
	}
	candidates := []collector.CandidatePaper{
		{
			ExternalID:    "paper-301",
			Title:         "Bounds for Ramsey Numbers & Friends",
			URL:           "https://example.org/papers/301",
			Authors:       []string{"R. Diestel", "B. Bollobas"},
			Abstract:      "Improved asymptotic bounds.",
			DOI:           "10.1000/rc.301",
			PublishedDate: &published,
		},
		{
			ExternalID: "paper-302",
			Title:      "Streaming Suffix Trees Revisited",
			URL:        "https://example.org/papers/302",
		},
	}

	rendered, err := RenderRSS(journal, candidates)
	require.NoError(t, err)
	body := string(rendered)

	assert.True(t, strings.HasPrefix(body, "<?xml"))
	assert.Contains(t, body, `<rss version="2.0">`)
	assert.Contains(t, body, "Combinatorics &amp; Computing")
	assert.Contains(t, body, "Ramsey Numbers &amp; Friends")
	assert.Contains(t, body, `<guid isPermaLink="false">paper-301</guid>`)
	assert.Contains(t, body, "<pubDate>Thu, 14 Mar 2024 09:30:00 +0000</pubDate>")
	assert.Contains(t, body, "doi:10.1000/rc.301")
	assert.Contains(t, body, "<author>R. Diestel, B. Bollobas</author>")

	papers, err := collector.ParseFeed(rendered)
	require.NoError(t, err)
	require.Len(t, papers, 2)
	assert.Equal(t, "paper-301", papers[0].ExternalID)
}
