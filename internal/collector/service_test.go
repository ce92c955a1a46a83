package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/core"
)

type batchMock struct {
	mockCollector
	batchCalls int
}

func (b *batchMock) FetchQuotes(ctx context.Context, symbols []string, market core.HoldingMarket) ([]core.Quote, error) {
	b.batchCalls++
	if b.err != nil {
		return nil, b.err
	}
	var out []core.Quote
	for _, s := range symbols {
		if p, ok := b.prices[s]; ok {
			out = append(out, core.Quote{Symbol: s, Price: p})
		}
	}
	return out, nil
}

type recorder struct {
	fetches map[string]int
	hits    int
	misses  int
}

func (r *recorder) RecordQuoteFetch(provider, status string) {
	if r.fetches == nil {
		r.fetches = make(map[string]int)
	}
	r.fetches[provider+"/"+status]++
}

func (r *recorder) RecordCacheLookup(hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func TestRequest_Split(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		us, tw  []string
		wantErr bool
	}{
		{"us default", Request{Symbols: []string{"aapl", " MSFT ", "AAPL"}}, []string{"AAPL", "MSFT"}, nil, false},
		{"tw", Request{Market: core.MarketTW, Symbols: []string{"2330"}}, nil, []string{"2330"}, false},
		{"mixed", Request{Market: core.MarketMixed, USSymbols: []string{"AAPL"}, TWSymbols: []string{"2330"}}, []string{"AAPL"}, []string{"2330"}, false},
		{"mixed ignores symbols", Request{Market: core.MarketMixed, Symbols: []string{"AAPL"}}, nil, nil, true},
		{"unknown market", Request{Market: "JP", Symbols: []string{"7203"}}, nil, nil, true},
		{"empty", Request{Market: core.MarketUS}, nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			us, tw, err := tt.req.Split()
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.us, us)
			assert.Equal(t, tt.tw, tw)
		})
	}
}

func TestService_FetchMixed(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockCollector{name: "yahoo", prices: map[string]float64{"AAPL": 190}})
	reg.Register(&batchMock{mockCollector: mockCollector{
		name:    "twse",
		markets: []core.HoldingMarket{core.HoldingMarketTW},
		prices:  map[string]float64{"2330": 650},
	}})
	rec := &recorder{}
	svc := NewService(reg, WithMetrics(rec))

	resp, err := svc.Fetch(context.Background(), Request{
		Market:    core.MarketMixed,
		USSymbols: []string{"AAPL"},
		TWSymbols: []string{"2330"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Quotes, 2)
	assert.Empty(t, resp.Failed)

	aapl, tsmc := resp.Quotes[0], resp.Quotes[1]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, core.MarketUS, aapl.Market)
	assert.Equal(t, core.CurrencyUSD, aapl.Currency)
	assert.Equal(t, "2330", tsmc.Symbol)
	assert.Equal(t, core.CurrencyTWD, tsmc.Currency)
	assert.Equal(t, "twse", tsmc.Source)
	assert.Equal(t, "2330", tsmc.Name)

	assert.Equal(t, 1, rec.fetches["yahoo/ok"])
	assert.Equal(t, 1, rec.fetches["twse/ok"])
}

func TestService_FallsBackToNextCollector(t *testing.T) {
	primary := &mockCollector{name: "primary", err: errors.New("rate limited")}
	secondary := &mockCollector{name: "secondary", prices: map[string]float64{"AAPL": 191}}
	reg := NewRegistry()
	reg.Register(primary)
	reg.Register(secondary)

	resp, err := NewService(reg).Fetch(context.Background(), Request{Symbols: []string{"AAPL"}})
	require.NoError(t, err)
	require.Len(t, resp.Quotes, 1)
	assert.Equal(t, 191.0, resp.Quotes[0].Price)
	assert.Equal(t, "secondary", resp.Quotes[0].Source)
	assert.Equal(t, 1, primary.calls)
}

func TestService_CachesAndServesFromCache(t *testing.T) {
	ctx := context.Background()
	yahoo := &mockCollector{name: "yahoo", prices: map[string]float64{"AAPL": 190}}
	reg := NewRegistry()
	reg.Register(yahoo)
	mem := cache.NewMemory(0)
	rec := &recorder{}
	svc := NewService(reg, WithCache(mem), WithMetrics(rec))
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC) }

	_, err := svc.Fetch(ctx, Request{Symbols: []string{"AAPL"}})
	require.NoError(t, err)

	entry, ok, err := mem.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 190.0, entry.Price)
	assert.Equal(t, "AAPL Corp", entry.Name)

	yahoo.err = errors.New("down")
	resp, err := svc.Fetch(ctx, Request{Symbols: []string{"AAPL", "MSFT"}})
	require.NoError(t, err)
	require.Len(t, resp.Quotes, 1)
	assert.Equal(t, "cache", resp.Quotes[0].Source)
	assert.Equal(t, 190.0, resp.Quotes[0].Price)
	assert.Contains(t, resp.Failed, "MSFT")
	assert.NotContains(t, resp.Failed, "AAPL")
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
}

func TestService_AllFailed(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockCollector{name: "yahoo", err: errors.New("down")})

	resp, err := NewService(reg).Fetch(context.Background(), Request{Symbols: []string{"AAPL"}})
	assert.ErrorIs(t, err, core.ErrQuoteFailed)
	require.NotNil(t, resp)
	assert.Contains(t, resp.Failed["AAPL"], "down")
}

func TestService_NoCollectorForMarket(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockCollector{name: "yahoo"})

	resp, err := NewService(reg).Fetch(context.Background(), Request{
		Market:    core.MarketMixed,
		USSymbols: []string{"AAPL"},
		TWSymbols: []string{"2330"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Quotes, 1)
	assert.Contains(t, resp.Failed["2330"], "no collector")
}

func TestService_BatchMissingSymbol(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&batchMock{mockCollector: mockCollector{
		name:    "twse",
		markets: []core.HoldingMarket{core.HoldingMarketTW},
		prices:  map[string]float64{"2330": 650},
	}})

	resp, err := NewService(reg).Fetch(context.Background(), Request{Market: core.MarketTW, Symbols: []string{"2330", "9999"}})
	require.NoError(t, err)
	assert.Len(t, resp.Quotes, 1)
	assert.Equal(t, "twse: no quote", resp.Failed["9999"])
}
