package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadPlainJSON(t *testing.T) {
	var c Classification
	err := decodePayload(`{"page_type": "article_list", "reason": "lists many papers"}`, &c)
	require.NoError(t, err)
	assert.Equal(t, PageTypeArticleList, c.PageType)
	assert.Equal(t, "lists many papers", c.Reason)
}

func TestDecodePayloadCodeFence(t *testing.T) {
	raw := "```json\n{\"page_type\": \"journal_home\"}\n```"
	var c Classification
	require.NoError(t, decodePayload(raw, &c))
	assert.Equal(t, PageTypeJournalHome, c.PageType)
}

func TestDecodePayloadProseWrapped(t *testing.T) {
	raw := `Here is the classification you asked for: {"page_type": "other"} Hope that helps!`
	var c Classification
	require.NoError(t, decodePayload(raw, &c))
	assert.Equal(t, PageTypeOther, c.PageType)
}

func TestDecodePayloadNestedObject(t *testing.T) {
	raw := `{"selectors": {"item": ".paper", "title": "h3", "url": "h3 a"}, "sample_papers": [{"title": "T", "url": "/p/1"}]}`
	var e SelectorExtraction
	require.NoError(t, decodePayload(raw, &e))
	assert.Equal(t, ".paper", e.Selectors.Item)
	require.Len(t, e.SamplePapers, 1)
	assert.Equal(t, "T", e.SamplePapers[0].Title)
}

func TestDecodePayloadRejectsNonJSON(t *testing.T) {
	var c Classification
	err := decodePayload("I could not analyze this page, sorry.", &c)
	require.Error(t, err)

	var payloadErr *PayloadError
	require.True(t, errors.As(err, &payloadErr))
	assert.Contains(t, payloadErr.Raw, "could not analyze")
}

func TestDecodePayloadRejectsBrokenJSON(t *testing.T) {
	var c Classification
	err := decodePayload(`{"page_type": "article_list"`, &c)
	require.Error(t, err)

	var payloadErr *PayloadError
	assert.True(t, errors.As(err, &payloadErr))
}

func TestPayloadErrorExcerpt(t *testing.T) {
	e := &PayloadError{Raw: "0123456789abcdef"}
	assert.Equal(t, "0123456789...", e.Excerpt(10))
	assert.Equal(t, "0123456789abcdef", e.Excerpt(100))
}
