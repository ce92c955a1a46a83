// Package advice asks an LLM provider for commentary on a valued portfolio.
package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/llm"
	"github.com/newthinker/folio/internal/portfolio"
)

// Config tunes advice generation.
type Config struct {
	// MaxRetries is the total number of attempts.
	MaxRetries int
	// RetryDelay is multiplied by the attempt number between attempts.
	RetryDelay  time.Duration
	Temperature float64
	MaxTokens   int
	// Timeout bounds a single attempt.
	Timeout  time.Duration
	Language string
}

// DefaultConfig returns the advice defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  time.Second,
		Temperature: 0.5,
		MaxTokens:   8000,
		Timeout:     120 * time.Second,
		Language:    "Traditional Chinese",
	}
}

// Recorder receives advice outcomes.
type Recorder interface {
	RecordAdvice(provider, status string, duration float64)
}

// Advice is a generated commentary.
type Advice struct {
	Content      string    `json:"content"`
	Provider     string    `json:"provider"`
	Attempts     int       `json:"attempts"`
	FinishReason string    `json:"finishReason,omitempty"`
	Usage        llm.Usage `json:"usage"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// Service generates advice with a bounded number of attempts.
type Service struct {
	provider llm.Provider
	cfg      Config
	metrics  Recorder
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records every Advise call.
func WithMetrics(m Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates an advice service on provider.
func NewService(provider llm.Provider, cfg Config, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.MaxTokens < 1 {
		cfg.MaxTokens = def.MaxTokens
	}
	s := &Service{
		provider: provider,
		cfg:      cfg,
		logger:   zap.NewNop(),
		sleep:    sleepCtx,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the name of the underlying LLM provider.
func (s *Service) Provider() string {
	return s.provider.Name()
}

// Check reports whether p can be sent for advice: it needs at least one
// holding and at least one holding with a price.
func Check(p portfolio.PortfolioPayload) error {
	if len(p.Holdings) == 0 {
		return core.WrapError(core.ErrInvalidRequest, fmt.Errorf("portfolio %q has no holdings", p.ProfileName))
	}
	for _, h := range p.Holdings {
		if h.CurrentPrice != 0 {
			return nil
		}
	}
	return core.ErrNoPrices
}

// Advise requests commentary for p. Empty responses and provider errors are
// retried with a linearly growing delay; a response withheld by the content
// filter is not.
func (s *Service) Advise(ctx context.Context, p portfolio.PortfolioPayload) (*Advice, error) {
	if err := Check(p); err != nil {
		return nil, err
	}

	req := llm.ChatRequest{
		SystemPrompt: SystemPrompt(p, s.cfg.Language),
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: UserPrompt(p)}},
		MaxTokens:    s.cfg.MaxTokens,
		Temperature:  s.cfg.Temperature,
	}

	start := s.now()
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		resp, err := s.attempt(ctx, req)
		if err == nil {
			s.record("success", start)
			s.logger.Info("advice generated",
				zap.String("provider", s.provider.Name()),
				zap.String("profile", p.ProfileName),
				zap.Int("attempt", attempt),
				zap.Int("output_tokens", resp.Usage.OutputTokens),
			)
			return &Advice{
				Content:      resp.Content,
				Provider:     s.provider.Name(),
				Attempts:     attempt,
				FinishReason: resp.FinishReason,
				Usage:        resp.Usage,
				GeneratedAt:  s.now(),
			}, nil
		}

		lastErr = err
		s.logger.Warn("advice attempt failed",
			zap.String("provider", s.provider.Name()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.cfg.MaxRetries),
			zap.Error(err),
		)

		if errors.Is(err, core.ErrLLMContentFilter) || attempt == s.cfg.MaxRetries {
			break
		}
		if err := s.sleep(ctx, s.cfg.RetryDelay*time.Duration(attempt)); err != nil {
			break
		}
	}

	status := "error"
	if errors.Is(lastErr, core.ErrLLMContentFilter) {
		status = "content_filter"
	}
	s.record(status, start)
	return nil, lastErr
}

func (s *Service) attempt(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	resp, err := s.provider.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Content) != "" {
		return resp, nil
	}
	if resp.FinishReason == llm.FinishReasonContentFilter {
		return nil, core.ErrLLMContentFilter
	}
	return nil, core.WrapError(core.ErrLLMFailed, fmt.Errorf("empty content (finish_reason: %s)", resp.FinishReason))
}

func (s *Service) record(status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordAdvice(s.provider.Name(), status, s.now().Sub(start).Seconds())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
