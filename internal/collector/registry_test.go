package collector

import (
	"context"
	"testing"

	"github.com/newthinker/folio/internal/core"
)

// mockCollector for testing
type mockCollector struct {
	name    string
	markets []core.HoldingMarket
	prices  map[string]float64
	err     error
	calls   int
}

func (m *mockCollector) Name() string { return m.name }
func (m *mockCollector) SupportedMarkets() []core.HoldingMarket {
	if m.markets == nil {
		return []core.HoldingMarket{core.HoldingMarketUS}
	}
	return m.markets
}
func (m *mockCollector) Init(cfg Config) error { return nil }
func (m *mockCollector) FetchQuote(ctx context.Context, symbol string, market core.HoldingMarket) (*core.Quote, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	price, ok := m.prices[symbol]
	if !ok {
		price = 100
	}
	return &core.Quote{Symbol: symbol, Name: symbol + " Corp", Price: price, Market: core.Market(market), Source: m.name}, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockCollector{name: "mock"}
	r.Register(mock)

	c, ok := r.Get("mock")
	if !ok {
		t.Fatal("expected to find registered collector")
	}

	if c.Name() != "mock" {
		t.Errorf("expected name 'mock', got '%s'", c.Name())
	}
}

func TestRegistry_GetAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCollector{name: "a"})
	r.Register(&mockCollector{name: "b"})
	r.Register(&mockCollector{name: "a"})

	all := r.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 collectors, got %d", len(all))
	}
	if all[0].Name() != "a" || all[1].Name() != "b" {
		t.Errorf("expected registration order [a b], got [%s %s]", all[0].Name(), all[1].Name())
	}
}

func TestRegistry_ForMarket(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCollector{name: "yahoo", markets: []core.HoldingMarket{core.HoldingMarketUS, core.HoldingMarketTW}})
	r.Register(&mockCollector{name: "twse", markets: []core.HoldingMarket{core.HoldingMarketTW}})

	tw := r.ForMarket(core.HoldingMarketTW)
	if len(tw) != 2 {
		t.Fatalf("expected 2 TW collectors, got %d", len(tw))
	}
	us := r.ForMarket(core.HoldingMarketUS)
	if len(us) != 1 || us[0].Name() != "yahoo" {
		t.Errorf("expected only yahoo for US, got %v", us)
	}
}
