package portfolio_test

import (
	"testing"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/portfolio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayload(t *testing.T) {
	profile := portfolio.Profile{
		Name:      "Income",
		RiskLevel: core.RiskConservative,
		Market:    core.MarketUS,
		Holdings: []portfolio.Holding{
			equity("AAPL", 10, 100),
			bond("CORP", 10000, 98.5, 99.25, core.BondCorporate),
		},
	}
	metrics := mustMetrics(t, profile.Holdings, map[string]float64{"AAPL": 120}, core.MarketUS, core.CurrencyUSD)
	summary := portfolio.Summarize(metrics, nil)

	payload := portfolio.BuildPayload(profile, metrics, summary)

	assert.Equal(t, "Income", payload.ProfileName)
	assert.Equal(t, core.RiskConservative, payload.RiskLevel)
	assert.Equal(t, core.MarketUS, payload.Market)
	assert.Equal(t, core.CurrencyUSD, payload.BaseCurrency)
	assert.Equal(t, summary.TotalMarketValue, payload.TotalMarketValue)
	assert.Equal(t, summary.TotalCost, payload.TotalCost)
	assert.Equal(t, summary.Concentration, payload.Concentration)
	require.NotNil(t, payload.AssetClassBreakdown)
	assert.Equal(t, summary.AssetClassBreakdown, *payload.AssetClassBreakdown)
	assert.True(t, payload.HasBonds())
	assert.InDelta(t, 275.0/10850.0, payload.TotalUnrealizedPnLPercent(), 1e-12)

	require.Len(t, payload.Holdings, 2)
	aapl := payload.Holdings[0]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, 120.0, aapl.CurrentPrice)
	assert.InDelta(t, 1200.0, aapl.MarketValue, 1e-9)
	assert.InDelta(t, 0.2, aapl.UnrealizedPnLPercent, 1e-12)

	corp := payload.Holdings[1]
	assert.Equal(t, core.AssetBond, corp.AssetClass)
	assert.Equal(t, core.BondCorporate, corp.BondCategory)
	require.NotNil(t, corp.CouponRate)
	assert.Equal(t, 4.25, *corp.CouponRate)
	assert.Equal(t, "2030-05-15", corp.MaturityDate)
}

func TestPortfolioPayload_NoBonds(t *testing.T) {
	payload := portfolio.PortfolioPayload{
		Holdings: []portfolio.HoldingPayload{{Symbol: "AAPL", AssetClass: core.AssetEquity}},
	}
	assert.False(t, payload.HasBonds())
	assert.Equal(t, 0.0, payload.TotalUnrealizedPnLPercent())
}

func TestQuoteMaps(t *testing.T) {
	quotes := []core.Quote{
		{Symbol: "AAPL", Name: "Apple Inc.", Price: 190, Market: core.MarketUS},
		{Symbol: "2330", Name: "TSMC", Price: 650, Market: core.MarketTW},
		{Symbol: "ODD", Price: 1, Market: core.MarketMixed},
	}

	prices := portfolio.QuotesToPriceMap(quotes)
	assert.Equal(t, map[string]float64{"AAPL": 190, "2330": 650, "ODD": 1}, prices)

	names := portfolio.QuotesToNameMap(quotes)
	assert.Equal(t, "TSMC", names["2330"])

	markets := portfolio.QuotesToMarketMap(quotes)
	assert.Equal(t, map[string]core.HoldingMarket{"AAPL": core.HoldingMarketUS, "2330": core.HoldingMarketTW}, markets)
}

func TestApplyNames(t *testing.T) {
	stored := equity("MSFT", 1, 1)
	stored.Name = "Microsoft"
	holdings := []portfolio.Holding{equity("AAPL", 1, 1), stored, equity("TSLA", 1, 1)}

	named := portfolio.ApplyNames(holdings, map[string]string{"AAPL": "Apple Inc."})

	assert.Equal(t, "Apple Inc.", named[0].Name)
	assert.Equal(t, "Microsoft", named[1].Name)
	assert.Equal(t, "TSLA", named[2].Name)
	assert.Empty(t, holdings[0].Name)
}

func TestEvaluate(t *testing.T) {
	profile := portfolio.Profile{
		Name:         "Global",
		Market:       core.MarketMixed,
		BaseCurrency: core.CurrencyUSD,
		Holdings: []portfolio.Holding{
			onMarket(equity("AAPL", 10, 150), core.HoldingMarketUS),
			onMarket(equity("2330", 1000, 600), core.HoldingMarketTW),
		},
	}

	snap, err := portfolio.Evaluate(profile,
		map[string]float64{"AAPL": 160, "2330": 650},
		map[string]string{"2330": "TSMC"}, 32)
	require.NoError(t, err)

	assert.True(t, snap.Priced())
	assert.Equal(t, "TSMC", snap.Metrics[1].Name)
	assert.InDelta(t, 21912.5, snap.Summary.TotalMarketValue, 1e-9)
	require.NotNil(t, snap.Summary.ExchangeRate)
	assert.Equal(t, 32.0, *snap.Summary.ExchangeRate)
	assert.Equal(t, core.MarketMixed, snap.Payload.Market)
}

func TestEvaluate_SingleMarketHidesRate(t *testing.T) {
	profile := portfolio.Profile{
		Name:     "TW",
		Market:   core.MarketTW,
		Holdings: []portfolio.Holding{equity("2330", 1000, 600)},
	}

	snap, err := portfolio.Evaluate(profile, nil, nil, 32)
	require.NoError(t, err)

	assert.Nil(t, snap.Summary.ExchangeRate)
	assert.False(t, snap.Priced())
	assert.Equal(t, core.CurrencyTWD, snap.Payload.BaseCurrency)
	assert.Equal(t, 0.0, snap.Summary.TotalMarketValue)
}

func TestEvaluate_InvalidRate(t *testing.T) {
	profile := portfolio.Profile{Name: "US", Market: core.MarketUS, Holdings: []portfolio.Holding{equity("AAPL", 1, 1)}}
	_, err := portfolio.Evaluate(profile, nil, nil, 0)
	assert.ErrorIs(t, err, core.ErrInvalidRate)
}
