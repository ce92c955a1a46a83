package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/collector"
	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/llm"
	"github.com/newthinker/folio/internal/llm/mocks"
	"github.com/newthinker/folio/internal/notifier"
	"github.com/newthinker/folio/internal/profile"
	"github.com/newthinker/folio/internal/storage/archive"
)

type mockCollector struct {
	name    string
	markets []core.HoldingMarket
	prices  map[string]float64
	names   map[string]string
	calls   int
}

func (m *mockCollector) Name() string                           { return m.name }
func (m *mockCollector) SupportedMarkets() []core.HoldingMarket { return m.markets }
func (m *mockCollector) Init(cfg collector.Config) error        { return nil }
func (m *mockCollector) FetchQuote(ctx context.Context, symbol string, market core.HoldingMarket) (*core.Quote, error) {
	m.calls++
	price, ok := m.prices[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return &core.Quote{Symbol: symbol, Name: m.names[symbol], Price: price}, nil
}

type fixedRate struct{ rate float64 }

func (f fixedRate) Name() string                                   { return "fixed" }
func (f fixedRate) FetchRate(ctx context.Context) (float64, error) { return f.rate, nil }

type mockNotifier struct {
	received []notifier.Alert
}

func (m *mockNotifier) Name() string                   { return "mock" }
func (m *mockNotifier) Init(cfg notifier.Config) error { return nil }
func (m *mockNotifier) Send(ctx context.Context, a notifier.Alert) error {
	m.received = append(m.received, a)
	return nil
}
func (m *mockNotifier) SendBatch(ctx context.Context, alerts []notifier.Alert) error {
	m.received = append(m.received, alerts...)
	return nil
}

func quoteSource() *mockCollector {
	return &mockCollector{
		name:    "mock",
		markets: []core.HoldingMarket{core.HoldingMarketUS, core.HoldingMarketTW},
		prices:  map[string]float64{"AAPL": 175, "2330": 600},
		names:   map[string]string{"AAPL": "Apple Inc.", "2330": "TSMC"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	if cfg == nil {
		cfg = config.Defaults()
	}
	base := []Option{
		WithStorage(archive.NewMemory()),
		WithCache(cache.NewMemory(time.Hour)),
		WithCollectors(quoteSource()),
		WithFXSource(fixedRate{rate: 30}),
	}
	a, err := New(context.Background(), cfg, zap.NewNop(), append(base, opts...)...)
	require.NoError(t, err)
	return a
}

func activeID(t *testing.T, a *App) string {
	t.Helper()
	p, err := a.Profiles().Active()
	require.NoError(t, err)
	return p.ID
}

func TestApp_New(t *testing.T) {
	a := newTestApp(t, nil)

	stats := a.Stats()
	if stats["running"].(bool) {
		t.Error("new app should not be running")
	}
	assert.Equal(t, 1, stats["profiles"])
	assert.Equal(t, 1, stats["collectors"])
	assert.Equal(t, 32.0, stats["exchange_rate"])
	assert.NotContains(t, stats, "llm")

	p, err := a.Profiles().Active()
	require.NoError(t, err)
	assert.Equal(t, profile.DefaultProfileName, p.Name)
	assert.Equal(t, core.MarketUS, p.Market)
}

func TestApp_New_RejectsUnknownProvider(t *testing.T) {
	cfg := config.Defaults()
	cfg.Quotes.Providers = []config.ProviderConfig{{Name: "bloomberg", Enabled: true}}

	_, err := New(context.Background(), cfg, nil,
		WithStorage(archive.NewMemory()),
		WithCache(cache.NewMemory(time.Hour)),
	)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestApp_New_RejectsBadRule(t *testing.T) {
	cfg := config.Defaults()
	cfg.Alerts.Enabled = true
	cfg.Alerts.Rules = []config.AlertRule{{Name: "bad", Expr: "volatility > 1"}}

	_, err := New(context.Background(), cfg, nil,
		WithStorage(archive.NewMemory()),
		WithCache(cache.NewMemory(time.Hour)),
		WithCollectors(),
	)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestApp_RefreshQuotesThenValuate(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()
	id := activeID(t, a)

	_, _, err := a.Profiles().AddHolding(ctx, id, profile.HoldingInput{Symbol: "aapl", Quantity: 10, CostBasis: 150})
	require.NoError(t, err)

	// nothing cached yet
	snap, err := a.Valuate(ctx, id)
	require.NoError(t, err)
	assert.False(t, snap.Priced())

	resp, err := a.RefreshQuotes(ctx, id)
	require.NoError(t, err)
	require.Len(t, resp.Quotes, 1)

	snap, err = a.Valuate(ctx, id)
	require.NoError(t, err)
	assert.True(t, snap.Priced())
	assert.InDelta(t, 1750, snap.Summary.TotalMarketValue, 1e-9)
	assert.InDelta(t, 250, snap.Summary.TotalUnrealizedPnL, 1e-9)
	assert.Nil(t, snap.Summary.ExchangeRate)
	assert.Equal(t, "Apple Inc.", snap.Metrics[0].Name)

	p, err := a.Profiles().Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", p.Holdings[0].Name)
}

func TestApp_PricesSurviveRestart(t *testing.T) {
	ctx := context.Background()
	storage := archive.NewMemory()

	first := newTestApp(t, nil, WithStorage(storage))
	id := activeID(t, first)
	_, _, err := first.Profiles().AddHolding(ctx, id, profile.HoldingInput{Symbol: "AAPL", Quantity: 10, CostBasis: 150})
	require.NoError(t, err)
	_, err = first.RefreshQuotes(ctx, id)
	require.NoError(t, err)

	tests := []struct {
		name string
		ttl  time.Duration
	}{
		{"fresh cache", time.Hour},
		{"expired cache", time.Nanosecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// no quote source: only the stored document can supply the price
			second := newTestApp(t, nil,
				WithStorage(storage),
				WithCache(cache.NewMemory(tt.ttl)),
				WithCollectors(),
			)

			snap, err := second.Valuate(ctx, id)
			require.NoError(t, err)
			require.Len(t, snap.Metrics, 1)
			assert.Equal(t, 175.0, snap.Metrics[0].CurrentPrice)
			assert.InDelta(t, 1750, snap.Summary.TotalMarketValue, 1e-9)
			assert.Equal(t, "Apple Inc.", snap.Metrics[0].Name)
		})
	}

	second := newTestApp(t, nil, WithStorage(storage), WithCollectors())
	entry, ok, err := second.cache.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok, "persisted prices seed the live cache")
	assert.Equal(t, 175.0, entry.Price)
}

func TestApp_ValuateMixed(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	p, err := a.Profiles().Create(ctx, profile.CreateInput{
		Name: "Global", Market: core.MarketMixed, BaseCurrency: core.CurrencyUSD,
	})
	require.NoError(t, err)
	_, _, err = a.Profiles().AddHolding(ctx, p.ID, profile.HoldingInput{
		Symbol: "AAPL", Quantity: 10, CostBasis: 150, Market: core.HoldingMarketUS,
	})
	require.NoError(t, err)
	_, _, err = a.Profiles().AddHolding(ctx, p.ID, profile.HoldingInput{
		Symbol: "2330", Quantity: 1000, CostBasis: 500, Market: core.HoldingMarketTW,
	})
	require.NoError(t, err)

	rate, err := a.RefreshExchangeRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30.0, rate.Rate)

	_, err = a.RefreshQuotes(ctx, p.ID)
	require.NoError(t, err)

	snap, err := a.Valuate(ctx, p.ID)
	require.NoError(t, err)
	// 1750 USD + 600000 TWD / 30
	assert.InDelta(t, 21750, snap.Summary.TotalMarketValue, 1e-6)
	require.NotNil(t, snap.Summary.ExchangeRate)
	assert.Equal(t, 30.0, *snap.Summary.ExchangeRate)
	require.NotNil(t, snap.Summary.TWBreakdown)
	// breakdowns stay in the trading currency
	assert.InDelta(t, 600000, snap.Summary.TWBreakdown.MarketValue, 1e-6)
}

func TestApp_ValuateUnknownProfile(t *testing.T) {
	a := newTestApp(t, nil)
	_, err := a.Valuate(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrProfileNotFound)
}

func TestApp_RefreshQuotes_NoQuotedHoldings(t *testing.T) {
	src := quoteSource()
	a := newTestApp(t, nil, WithCollectors(src))

	resp, err := a.RefreshQuotes(context.Background(), activeID(t, a))
	require.NoError(t, err)
	assert.Empty(t, resp.Quotes)
	assert.Zero(t, src.calls)
}

func TestApp_FetchQuotesUpdatesActiveNames(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()
	id := activeID(t, a)
	_, _, err := a.Profiles().AddHolding(ctx, id, profile.HoldingInput{Symbol: "AAPL", Quantity: 1, CostBasis: 100})
	require.NoError(t, err)

	resp, err := a.FetchQuotes(ctx, collector.Request{Symbols: []string{"AAPL", "MSFT"}, Market: core.MarketUS})
	require.NoError(t, err)
	assert.Len(t, resp.Quotes, 1)
	assert.Contains(t, resp.Failed, "MSFT")

	p, _ := a.Profiles().Get(id)
	assert.Equal(t, "Apple Inc.", p.Holdings[0].Name)
}

func TestApp_AdviceWithoutProvider(t *testing.T) {
	a := newTestApp(t, nil)
	_, err := a.Advise(context.Background(), activeID(t, a))
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestApp_Advise(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Name().Return("mock").AnyTimes()

	a := newTestApp(t, nil, WithLLM(provider))
	ctx := context.Background()
	id := activeID(t, a)

	// no holdings
	_, err := a.Advise(ctx, id)
	assert.ErrorIs(t, err, core.ErrInvalidRequest)

	_, _, err = a.Profiles().AddHolding(ctx, id, profile.HoldingInput{Symbol: "AAPL", Quantity: 10, CostBasis: 150})
	require.NoError(t, err)

	// unpriced
	_, err = a.Advise(ctx, id)
	assert.ErrorIs(t, err, core.ErrNoPrices)

	_, err = a.RefreshQuotes(ctx, id)
	require.NoError(t, err)

	provider.EXPECT().Chat(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			require.Len(t, req.Messages, 1)
			assert.Contains(t, req.Messages[0].Content, "AAPL")
			assert.Equal(t, 8000, req.MaxTokens)
			return &llm.ChatResponse{Content: "Hold.", FinishReason: "stop"}, nil
		})

	adv, err := a.Advise(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hold.", adv.Content)
	assert.Equal(t, "mock", adv.Provider)
	assert.Equal(t, "mock", a.Stats()["llm"])
}

func TestApp_ValuateFiresAlerts(t *testing.T) {
	cfg := config.Defaults()
	cfg.Alerts.Enabled = true
	cfg.Alerts.Rules = []config.AlertRule{
		{Name: "single-name", Expr: "concentration >= 1", Severity: "critical", Message: "Only one position"},
	}
	a := newTestApp(t, cfg)
	n := &mockNotifier{}
	require.NoError(t, a.notifiers.Register(n))

	ctx := context.Background()
	id := activeID(t, a)

	// an empty profile is never evaluated
	_, err := a.Valuate(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, n.received)

	_, _, err = a.Profiles().AddHolding(ctx, id, profile.HoldingInput{Symbol: "AAPL", Quantity: 10, CostBasis: 150})
	require.NoError(t, err)
	_, err = a.RefreshQuotes(ctx, id)
	require.NoError(t, err)

	_, err = a.Valuate(ctx, id)
	require.NoError(t, err)
	require.Len(t, n.received, 1)
	assert.Equal(t, "single-name", n.received[0].Rule)
	assert.Equal(t, id, n.received[0].ProfileID)

	// cooldown
	_, err = a.Valuate(ctx, id)
	require.NoError(t, err)
	assert.Len(t, n.received, 1)
}

func TestApp_StartStop(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	require.NoError(t, a.Start(ctx))
	assert.Error(t, a.Start(ctx))
	assert.True(t, a.Stats()["running"].(bool))
	// the first refresh runs on start
	assert.Equal(t, 30.0, a.ExchangeRate().Rate)

	require.NoError(t, a.Stop())
	assert.False(t, a.Stats()["running"].(bool))
}

func TestQuoteRequest(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	p, err := a.Profiles().Create(ctx, profile.CreateInput{Name: "TW", Market: core.MarketTW})
	require.NoError(t, err)
	_, ok := QuoteRequest(p)
	assert.False(t, ok)

	_, _, err = a.Profiles().AddHolding(ctx, p.ID, profile.HoldingInput{Symbol: "2330", Quantity: 1000, CostBasis: 500})
	require.NoError(t, err)
	p, _ = a.Profiles().Get(p.ID)

	req, ok := QuoteRequest(p)
	require.True(t, ok)
	assert.Equal(t, core.MarketTW, req.Market)
	assert.Equal(t, []string{"2330"}, req.Symbols)
}
