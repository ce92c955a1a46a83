// Package breaker guards collectors with a circuit breaker so a failing
// quote source is skipped quickly instead of timing out on every symbol.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/collector"
	"github.com/newthinker/folio/internal/core"
)

// Config configures the breaker.
type Config struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32
	// Interval clears the failure counts while closed.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
}

// DefaultConfig returns the breaker defaults.
func DefaultConfig() Config {
	return Config{
		MaxRequests:         3,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Breaker wraps a collector.Collector.
type Breaker struct {
	collector.Collector
	cb *gobreaker.CircuitBreaker
}

// BatchBreaker wraps a collector.BatchCollector.
type BatchBreaker struct {
	*Breaker
	batch collector.BatchCollector
}

// Wrap guards c. The result implements collector.BatchCollector when c does.
func Wrap(c collector.Collector, cfg Config, logger *zap.Logger) collector.Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultConfig().ConsecutiveFailures
	}

	st := gobreaker.Settings{
		Name:        c.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("collector circuit breaker state changed",
				zap.String("collector", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// a caller giving up says nothing about the source's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	b := &Breaker{Collector: c, cb: gobreaker.NewCircuitBreaker(st)}
	if bc, ok := c.(collector.BatchCollector); ok {
		return &BatchBreaker{Breaker: b, batch: bc}
	}
	return b
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// FetchQuote implements collector.Collector.
func (b *Breaker) FetchQuote(ctx context.Context, symbol string, market core.HoldingMarket) (*core.Quote, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.Collector.FetchQuote(ctx, symbol, market)
	})
	if err != nil {
		return nil, err
	}
	return res.(*core.Quote), nil
}

// FetchQuotes implements collector.BatchCollector.
func (b *BatchBreaker) FetchQuotes(ctx context.Context, symbols []string, market core.HoldingMarket) ([]core.Quote, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.batch.FetchQuotes(ctx, symbols, market)
	})
	if err != nil {
		return nil, err
	}
	return res.([]core.Quote), nil
}
