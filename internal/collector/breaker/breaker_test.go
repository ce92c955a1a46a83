package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/collector"
	"github.com/newthinker/folio/internal/core"
)

type flakyCollector struct {
	err   error
	calls int
}

func (f *flakyCollector) Name() string { return "flaky" }
func (f *flakyCollector) SupportedMarkets() []core.HoldingMarket {
	return []core.HoldingMarket{core.HoldingMarketUS}
}
func (f *flakyCollector) Init(cfg collector.Config) error { return nil }
func (f *flakyCollector) FetchQuote(ctx context.Context, symbol string, market core.HoldingMarket) (*core.Quote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &core.Quote{Symbol: symbol, Price: 10}, nil
}

type batchCollector struct{ flakyCollector }

func (b *batchCollector) FetchQuotes(ctx context.Context, symbols []string, market core.HoldingMarket) ([]core.Quote, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	out := make([]core.Quote, len(symbols))
	for i, s := range symbols {
		out[i] = core.Quote{Symbol: s, Price: 10}
	}
	return out, nil
}

func TestWrap_PassesThrough(t *testing.T) {
	inner := &flakyCollector{}
	c := Wrap(inner, DefaultConfig(), nil)

	assert.Equal(t, "flaky", c.Name())
	_, isBatch := c.(collector.BatchCollector)
	assert.False(t, isBatch)

	q, err := c.FetchQuote(context.Background(), "AAPL", core.HoldingMarketUS)
	require.NoError(t, err)
	assert.Equal(t, 10.0, q.Price)
}

func TestWrap_TripsAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyCollector{err: errors.New("boom")}
	cfg := Config{MaxRequests: 1, Timeout: time.Minute, ConsecutiveFailures: 3}
	c := Wrap(inner, cfg, nil)

	for i := 0; i < 3; i++ {
		_, err := c.FetchQuote(context.Background(), "AAPL", core.HoldingMarketUS)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.(*Breaker).State())

	_, err := c.FetchQuote(context.Background(), "AAPL", core.HoldingMarketUS)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, inner.calls)
}

func TestWrap_CancelledCallsDoNotTrip(t *testing.T) {
	inner := &flakyCollector{err: context.Canceled}
	c := Wrap(inner, Config{ConsecutiveFailures: 1, Timeout: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		c.FetchQuote(context.Background(), "AAPL", core.HoldingMarketUS)
	}
	assert.Equal(t, gobreaker.StateClosed, c.(*Breaker).State())
	assert.Equal(t, 3, inner.calls)
}

func TestWrap_Batch(t *testing.T) {
	inner := &batchCollector{}
	c := Wrap(inner, DefaultConfig(), nil)

	bc, ok := c.(collector.BatchCollector)
	require.True(t, ok)

	quotes, err := bc.FetchQuotes(context.Background(), []string{"2330", "2317"}, core.HoldingMarketTW)
	require.NoError(t, err)
	assert.Len(t, quotes, 2)
}
