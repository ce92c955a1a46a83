// Package fx tracks the USD/TWD exchange rate used to normalize mixed
// portfolios. The rate is the number of TWD per USD.
package fx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/collector/yahoo"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/currency"
)

// Source provides live exchange rates.
type Source interface {
	Name() string
	FetchRate(ctx context.Context) (float64, error)
}

// YahooSource reads the USD/TWD pair from the Yahoo chart API.
type YahooSource struct {
	client *yahoo.Yahoo
	pair   string
}

// NewYahooSource creates a Yahoo rate source over client.
func NewYahooSource(client *yahoo.Yahoo) *YahooSource {
	return &YahooSource{client: client, pair: "TWD=X"}
}

// Name implements Source.
func (s *YahooSource) Name() string { return "yahoo" }

// FetchRate implements Source.
func (s *YahooSource) FetchRate(ctx context.Context) (float64, error) {
	meta, err := s.client.FetchMeta(ctx, s.pair)
	if err != nil {
		return 0, err
	}
	return meta.RegularMarketPrice, nil
}

// Rate is the tracker's view of the exchange rate.
type Rate struct {
	Rate      float64   `json:"rate"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
	// Fallback is true while no live rate has ever been obtained.
	Fallback bool `json:"fallback"`
}

// Gauge receives every rate change.
type Gauge interface {
	SetExchangeRate(rate float64)
}

// Tracker holds the current rate. It starts at the fallback rate and keeps
// the last good rate when a refresh fails.
type Tracker struct {
	source Source
	gauge  Gauge
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current Rate
}

// NewTracker creates a tracker. A non-positive fallback uses
// currency.DefaultRate. source may be nil, in which case the fallback is
// used forever.
func NewTracker(source Source, fallback float64, gauge Gauge, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		source: source,
		gauge:  gauge,
		logger: logger,
		now:    time.Now,
		current: Rate{
			Rate:     currency.RateOrDefault(fallback),
			Source:   "default",
			Fallback: true,
		},
	}
	if gauge != nil {
		gauge.SetExchangeRate(t.current.Rate)
	}
	return t
}

// Current returns the current rate.
func (t *Tracker) Current() Rate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Rate returns the current rate value.
func (t *Tracker) Rate() float64 {
	return t.Current().Rate
}

// Refresh fetches a live rate. On failure the previous rate stays in place
// and the error is returned wrapped in core.ErrFXFailed.
func (t *Tracker) Refresh(ctx context.Context) (Rate, error) {
	if t.source == nil {
		return t.Current(), nil
	}

	rate, err := t.source.FetchRate(ctx)
	if err == nil && rate <= 0 {
		err = fmt.Errorf("non-positive rate %v", rate)
	}
	if err != nil {
		current := t.Current()
		t.logger.Warn("exchange rate refresh failed, keeping previous rate",
			zap.String("source", t.source.Name()),
			zap.Float64("rate", current.Rate),
			zap.Error(err),
		)
		return current, core.WrapError(core.ErrFXFailed, err)
	}

	t.mu.Lock()
	t.current = Rate{Rate: rate, Source: t.source.Name(), UpdatedAt: t.now()}
	current := t.current
	t.mu.Unlock()

	if t.gauge != nil {
		t.gauge.SetExchangeRate(rate)
	}
	t.logger.Debug("exchange rate refreshed", zap.Float64("rate", rate))
	return current, nil
}
