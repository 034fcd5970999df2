package ai

import (
	"fmt"

	"github.com/papermux/papermux/config"
)

// NewFromConfig builds the configured provider, validating that its API key
// is present.
func NewFromConfig(cfg *config.Config) (Provider, error) {
	switch cfg.AIProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("AI_PROVIDER is anthropic but ANTHROPIC_API_KEY is empty")
		}
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AITimeout()), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("AI_PROVIDER is openai but OPENAI_API_KEY is empty")
		}
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.AITimeout()), nil
	}
	return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
}
