package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"

	classifyMaxTokens = 512
	extractMaxTokens  = 2048
	suggestMaxTokens  = 512
)

// Anthropic calls the Messages API. One client is safe for concurrent use.
type Anthropic struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

var _ Provider = (*Anthropic)(nil)

func NewAnthropic(apiKey, model string, timeout time.Duration) *Anthropic {
	return &Anthropic{
		apiKey:  apiKey,
		model:   model,
		baseURL: anthropicDefaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *Anthropic) Name() string  { return "anthropic" }
func (a *Anthropic) Model() string { return a.model }

func (a *Anthropic) Classify(ctx context.Context, pageHTML string) (*Classification, error) {
	raw, err := a.complete(ctx, classifySystemPrompt, userContent(pageHTML), classifyMaxTokens)
	if err != nil {
		return nil, err
	}
	var classification Classification
	if err := decodePayload(raw, &classification); err != nil {
		return nil, err
	}
	return &classification, nil
}

func (a *Anthropic) ExtractSelectors(ctx context.Context, pageHTML string) (*SelectorExtraction, error) {
	raw, err := a.complete(ctx, extractSystemPrompt, userContent(pageHTML), extractMaxTokens)
	if err != nil {
		return nil, err
	}
	var extraction SelectorExtraction
	if err := decodePayload(raw, &extraction); err != nil {
		return nil, err
	}
	return &extraction, nil
}

func (a *Anthropic) SuggestRedirect(ctx context.Context, pageHTML string) (*RedirectSuggestion, error) {
	raw, err := a.complete(ctx, suggestSystemPrompt, userContent(pageHTML), suggestMaxTokens)
	if err != nil {
		return nil, err
	}
	var suggestion RedirectSuggestion
	if err := decodePayload(raw, &suggestion); err != nil {
		return nil, err
	}
	return &suggestion, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Anthropic) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	payload, err := json.Marshal(anthropicRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "anthropic request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "anthropic response unreadable")
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("anthropic returned http %d: %s", resp.StatusCode, truncateBody(body))
	}
	if resp.StatusCode != http.StatusOK {
		msg := truncateBody(body)
		if decoded.Error != nil {
			msg = decoded.Error.Message
		}
		return "", fmt.Errorf("anthropic returned http %d: %s", resp.StatusCode, msg)
	}

	var text strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", &PayloadError{Raw: string(body), Err: fmt.Errorf("response carries no text content")}
	}
	return text.String(), nil
}

func truncateBody(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
