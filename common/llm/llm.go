package llm

import (
	"context"
	"fmt"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const defaultMaxTokens = 4096

// Config holds LLM client configuration.
type Config struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string // Required
	BaseURL   string // Optional: custom API endpoint
	Model     string
	MaxTokens int
}

// Client produces a single free-text completion for a system + user prompt.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int      // 0 = client default
	Temperature  *float64 // nil = model default
}

type Response struct {
	Content          string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// New builds a Client for cfg.Provider. An empty provider means OpenAI.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	switch cfg.Provider {
	case ProviderOpenAI, "":
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

func Temp(t float64) *float64 {
	return &t
}

func maxTokensFor(req Request, fallback int) int64 {
	if req.MaxTokens > 0 {
		return int64(req.MaxTokens)
	}
	return int64(fallback)
}
