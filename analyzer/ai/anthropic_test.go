package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnthropic(serverURL string) *Anthropic {
	a := NewAnthropic("test-key", "claude-3-5-sonnet-20241022", 5*time.Second)
	a.baseURL = serverURL
	return a
}

func anthropicTextResponse(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"content": []map[string]string{{"type": "text", "text": text}},
	})
	return string(b)
}

func TestAnthropicClassify(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	var gotReq anthropicRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, anthropicTextResponse(`{"page_type": "article_list", "reason": "many items"}`))
	}))
	defer server.Close()

	c, err := newTestAnthropic(server.URL).Classify(context.Background(), "<div class='issue'></div>")
	require.NoError(t, err)

	assert.Equal(t, "/v1/messages", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, anthropicVersion, gotVersion)
	assert.Equal(t, "claude-3-5-sonnet-20241022", gotReq.Model)
	assert.Equal(t, classifySystemPrompt, gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[0].Content, "issue")

	assert.Equal(t, PageTypeArticleList, c.PageType)
}

func TestAnthropicExtractSelectors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, anthropicTextResponse("```json\n"+
			`{"selectors": {"item": "article.paper", "title": "h3", "url": "h3 a"},`+
			`"sample_papers": [{"title": "Sample", "url": "/p/1"}]}`+"\n```"))
	}))
	defer server.Close()

	extraction, err := newTestAnthropic(server.URL).ExtractSelectors(context.Background(), "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, "article.paper", extraction.Selectors.Item)
	assert.True(t, extraction.Selectors.Usable())
	require.Len(t, extraction.SamplePapers, 1)
}

func TestAnthropicSuggestRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, anthropicTextResponse(`{"article_list_url": "/toc/current", "reason": "current issue link"}`))
	}))
	defer server.Close()

	suggestion, err := newTestAnthropic(server.URL).SuggestRedirect(context.Background(), "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, "/toc/current", suggestion.ArticleListURL)
}

func TestAnthropicAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"type": "rate_limit_error", "message": "rate limited"}}`)
	}))
	defer server.Close()

	_, err := newTestAnthropic(server.URL).Classify(context.Background(), "<html></html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestAnthropicMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, anthropicTextResponse("I cannot classify this page."))
	}))
	defer server.Close()

	_, err := newTestAnthropic(server.URL).Classify(context.Background(), "<html></html>")
	require.Error(t, err)
	assert.IsType(t, &PayloadError{}, err)
}
