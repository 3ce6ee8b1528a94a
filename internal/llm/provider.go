package llm

import (
	"context"
	"fmt"

	"renos/internal/config"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Options tune a single completion call. Zero values fall back to the
// provider's configured defaults.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Provider is the text-generation backend used by the composer.
type Provider interface {
	CompleteChat(ctx context.Context, msgs []Message, opts Options) (string, error)
}

func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
