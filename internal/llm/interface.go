// Package llm defines the chat-completion abstraction the advice service
// talks to, independent of the vendor behind it.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/folio/internal/core"
)

//go:generate mockgen -destination=mocks/provider.go -package=mocks github.com/newthinker/folio/internal/llm Provider

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FinishReasonContentFilter is the normalized finish reason of a response
// withheld by the vendor's safety filter.
const FinishReasonContentFilter = "content_filter"

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// DefaultMaxTokens is used when a request does not set MaxTokens.
const DefaultMaxTokens = 1024

// MaxTokensOrDefault returns req.MaxTokens, or DefaultMaxTokens when unset.
func (req ChatRequest) MaxTokensOrDefault() int {
	if req.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return req.MaxTokens
}

// WrapError classifies a vendor error: deadline errors become
// core.ErrLLMTimeout, everything else core.ErrLLMFailed.
func WrapError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.WrapError(core.ErrLLMTimeout, fmt.Errorf("%s: %w", provider, err))
	}
	return core.WrapError(core.ErrLLMFailed, fmt.Errorf("%s: %w", provider, err))
}
