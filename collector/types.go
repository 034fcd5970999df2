package collector

import (
	"encoding/json"
	"time"
)

// CandidatePaper is one extracted publication item before deduplication and
// persistence. All fields are plain text, URLs are absolute.
type CandidatePaper struct {
	ExternalID    string     `json:"external_id"`
	Title         string     `json:"title"`
	Authors       []string   `json:"authors,omitempty"`
	Abstract      string     `json:"abstract,omitempty"`
	URL           string     `json:"url"`
	DOI           string     `json:"doi,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
}

// SelectorRecipe maps CSS selectors onto paper fields. Item is evaluated
// against the whole page, every other selector is evaluated relative to one
// matched item.
type SelectorRecipe struct {
	Item       string `json:"item"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Authors    string `json:"authors,omitempty"`
	Abstract   string `json:"abstract,omitempty"`
	DOI        string `json:"doi,omitempty"`
	Date       string `json:"date,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

// Usable reports whether the recipe carries the minimum selectors required
// to extract identifiable papers.
func (r SelectorRecipe) Usable() bool {
	return r.Item != "" && r.Title != "" && r.URL != ""
}

// ExtractionConfig is the persisted scraping contract of one ai_generated
// journal, stored as JSON on the GeneratedFeed row.
type ExtractionConfig struct {
	Selectors SelectorRecipe `json:"selectors"`
	PageType  string         `json:"page_type"`
	BaseURL   string         `json:"base_url"`
}

// ParseExtractionConfig decodes a stored config document. A nil or empty
// document yields an unusable zero config rather than an error.
func ParseExtractionConfig(raw []byte) (*ExtractionConfig, error) {
	cfg := &ExtractionConfig{}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EncodeExtractionConfig renders the config for storage.
func EncodeExtractionConfig(cfg *ExtractionConfig) ([]byte, error) {
	return json.Marshal(cfg)
}

const (
	RedirectKindHTTP        = "http"
	RedirectKindMetaRefresh = "meta_refresh"
	RedirectKindJavaScript  = "javascript"
)

// RedirectHop records one followed redirect while fetching a page.
type RedirectHop struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}
