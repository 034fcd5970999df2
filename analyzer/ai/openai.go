package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const openAIDefaultBaseURL = "https://api.openai.com"

// OpenAI calls the chat completions API.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

var _ Provider = (*OpenAI)(nil)

func NewOpenAI(apiKey, model string, timeout time.Duration) *OpenAI {
	return &OpenAI{
		apiKey:  apiKey,
		model:   model,
		baseURL: openAIDefaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OpenAI) Name() string  { return "openai" }
func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Classify(ctx context.Context, pageHTML string) (*Classification, error) {
	raw, err := o.complete(ctx, classifySystemPrompt, userContent(pageHTML))
	if err != nil {
		return nil, err
	}
	var classification Classification
	if err := decodePayload(raw, &classification); err != nil {
		return nil, err
	}
	return &classification, nil
}

func (o *OpenAI) ExtractSelectors(ctx context.Context, pageHTML string) (*SelectorExtraction, error) {
	raw, err := o.complete(ctx, extractSystemPrompt, userContent(pageHTML))
	if err != nil {
		return nil, err
	}
	var extraction SelectorExtraction
	if err := decodePayload(raw, &extraction); err != nil {
		return nil, err
	}
	return &extraction, nil
}

func (o *OpenAI) SuggestRedirect(ctx context.Context, pageHTML string) (*RedirectSuggestion, error) {
	raw, err := o.complete(ctx, suggestSystemPrompt, userContent(pageHTML))
	if err != nil {
		return nil, err
	}
	var suggestion RedirectSuggestion
	if err := decodePayload(raw, &suggestion); err != nil {
		return nil, err
	}
	return &suggestion, nil
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Temperature float64         `json:"temperature"`
	Messages    []openAIMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) complete(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(openAIRequest{
		Model:       o.model,
		Temperature: 0,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "openai request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "openai response unreadable")
	}

	var decoded openAIResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("openai returned http %d: %s", resp.StatusCode, truncateBody(body))
	}
	if resp.StatusCode != http.StatusOK {
		msg := truncateBody(body)
		if decoded.Error != nil {
			msg = decoded.Error.Message
		}
		return "", fmt.Errorf("openai returned http %d: %s", resp.StatusCode, msg)
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return "", &PayloadError{Raw: string(body), Err: fmt.Errorf("response carries no choices")}
	}
	return decoded.Choices[0].Message.Content, nil
}
