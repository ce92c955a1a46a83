// Package factory builds the configured LLM provider.
package factory

import (
	"context"
	"fmt"

	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/llm"
	"github.com/newthinker/folio/internal/llm/claude"
	"github.com/newthinker/folio/internal/llm/gemini"
	"github.com/newthinker/folio/internal/llm/ollama"
	"github.com/newthinker/folio/internal/llm/openai"
)

// New creates an LLM provider based on configuration.
func New(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(claude.Config{
			APIKey:  cfg.Claude.APIKey,
			Model:   cfg.Claude.Model,
			BaseURL: cfg.Claude.BaseURL,
		})
	case "openai":
		return openai.New(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		})
	case "azure":
		return openai.New(openai.Config{
			APIKey:        cfg.Azure.APIKey,
			AzureEndpoint: cfg.Azure.Endpoint,
			Deployment:    cfg.Azure.Deployment,
			APIVersion:    cfg.Azure.APIVersion,
		})
	case "ollama":
		return ollama.New(ollama.Config{
			Endpoint: cfg.Ollama.Endpoint,
			Model:    cfg.Ollama.Model,
			Timeout:  cfg.Timeout,
		})
	case "gemini":
		return gemini.New(ctx, gemini.Config{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
		})
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown LLM provider: %q", cfg.Provider))
	}
}
