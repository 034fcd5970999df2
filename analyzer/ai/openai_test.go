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

func newTestOpenAI(serverURL string) *OpenAI {
	o := NewOpenAI("test-key", "gpt-4o-mini", 5*time.Second)
	o.baseURL = serverURL
	return o
}

func openAITextResponse(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": text}},
		},
	})
	return string(b)
}

func TestOpenAIClassify(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq openAIRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, openAITextResponse(`{"page_type": "journal_home", "reason": "landing page"}`))
	}))
	defer server.Close()

	c, err := newTestOpenAI(server.URL).Classify(context.Background(), "<html></html>")
	require.NoError(t, err)

	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	assert.Equal(t, float64(0), gotReq.Temperature)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, classifySystemPrompt, gotReq.Messages[0].Content)
	assert.Equal(t, "user", gotReq.Messages[1].Role)

	assert.Equal(t, PageTypeJournalHome, c.PageType)
}

func TestOpenAIExtractSelectors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, openAITextResponse(`{"selectors": {"item": "li.result", "title": ".t", "url": "a.link"}, "sample_papers": []}`))
	}))
	defer server.Close()

	extraction, err := newTestOpenAI(server.URL).ExtractSelectors(context.Background(), "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, "li.result", extraction.Selectors.Item)
	assert.Equal(t, "a.link", extraction.Selectors.URL)
}

func TestOpenAIAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"type": "invalid_request_error", "message": "bad api key"}}`)
	}))
	defer server.Close()

	_, err := newTestOpenAI(server.URL).SuggestRedirect(context.Background(), "<html></html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad api key")
}

func TestOpenAIEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": []}`)
	}))
	defer server.Close()

	_, err := newTestOpenAI(server.URL).Classify(context.Background(), "<html></html>")
	require.Error(t, err)
	assert.IsType(t, &PayloadError{}, err)
}
