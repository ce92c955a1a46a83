package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newthinker/folio/internal/core"
)

func TestMaxTokensOrDefault(t *testing.T) {
	assert.Equal(t, DefaultMaxTokens, ChatRequest{}.MaxTokensOrDefault())
	assert.Equal(t, 8000, ChatRequest{MaxTokens: 8000}.MaxTokensOrDefault())
}

func TestWrapError(t *testing.T) {
	err := WrapError("openai", fmt.Errorf("post: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, core.ErrLLMTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = WrapError("openai", errors.New("boom"))
	assert.ErrorIs(t, err, core.ErrLLMFailed)
	assert.Contains(t, err.Error(), "openai: boom")
}
