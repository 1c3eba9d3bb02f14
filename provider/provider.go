// Package provider abstracts the text-completion backend used by all agents.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/studypilot/studypilot/config"
)

// ErrUnavailable indicates the completion backend could not be reached or
// rejected the request. Pipeline stages treat it as fatal for the run.
var ErrUnavailable = errors.New("completion provider unavailable")

// Options tunes a single completion call. Zero values fall back to the
// provider's configured defaults.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Provider is the interface every completion backend must satisfy.
// A successful call always returns text, never a nil-like sentinel.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// New selects a completion provider once at startup based on configuration.
func New(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocalProvider(), nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, errors.New("llm.openai.api_key not set")
		}
		return NewOpenAIProvider(cfg.OpenAI), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider type: %s", cfg.Provider)
	}
}
