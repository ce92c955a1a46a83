package portfolio

import (
	"sort"

	"github.com/newthinker/folio/internal/core"
)

const (
	topHoldingsLimit   = 5
	concentrationDepth = 3
)

// MarketBreakdown aggregates one market's holdings in that market's own
// currency, without conversion.
type MarketBreakdown struct {
	MarketValue   float64 `json:"marketValue"`
	Cost          float64 `json:"cost"`
	UnrealizedPnL float64 `json:"unrealizedPnL"`
}

// PortfolioSummary is the portfolio-level aggregate of a metrics slice.
type PortfolioSummary struct {
	TotalMarketValue          float64              `json:"totalMarketValue"`
	TotalCost                 float64              `json:"totalCost"`
	TotalUnrealizedPnL        float64              `json:"totalUnrealizedPnL"`
	TotalUnrealizedPnLPercent float64              `json:"totalUnrealizedPnLPercent"`
	TopHoldings               []HoldingWithMetrics `json:"topHoldings"`
	TotalHoldingsCount        int                  `json:"totalHoldingsCount"`
	// Concentration is the summed weight of the three largest positions.
	Concentration       float64             `json:"concentration"`
	ExchangeRate        *float64            `json:"exchangeRate,omitempty"`
	USBreakdown         *MarketBreakdown    `json:"usBreakdown,omitempty"`
	TWBreakdown         *MarketBreakdown    `json:"twBreakdown,omitempty"`
	AssetClassBreakdown AssetClassBreakdown `json:"assetClassBreakdown"`
}

// Summarize aggregates metrics produced by ComputeAllMetrics.
//
// Totals are in the base currency: TotalCost sums each holding's converted
// cost so that TotalUnrealizedPnLPercent compares like with like on mixed
// profiles. The US/TW breakdowns stay in original currency and are nil when
// the market has no holdings. exchangeRate is passed through for display.
func Summarize(metrics []HoldingWithMetrics, exchangeRate *float64) PortfolioSummary {
	var totalValue, totalCost, totalPnL float64
	for _, m := range metrics {
		totalValue += m.MarketValue
		totalCost += m.Cost
		totalPnL += m.UnrealizedPnL
	}

	sorted := make([]HoldingWithMetrics, len(metrics))
	copy(sorted, metrics)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})

	top := sorted[:min(topHoldingsLimit, len(sorted))]
	var concentration float64
	for _, m := range sorted[:min(concentrationDepth, len(sorted))] {
		concentration += m.Weight
	}

	return PortfolioSummary{
		TotalMarketValue:          totalValue,
		TotalCost:                 totalCost,
		TotalUnrealizedPnL:        totalPnL,
		TotalUnrealizedPnLPercent: ratio(totalPnL, totalCost),
		TopHoldings:               top,
		TotalHoldingsCount:        len(metrics),
		Concentration:             concentration,
		ExchangeRate:              exchangeRate,
		USBreakdown:               breakdownByCurrency(metrics, core.CurrencyUSD),
		TWBreakdown:               breakdownByCurrency(metrics, core.CurrencyTWD),
		AssetClassBreakdown:       BreakdownByAssetClass(metrics, totalValue),
	}
}

// breakdownByCurrency buckets holdings by their resolved original currency,
// so a holding always lands in exactly one bucket.
func breakdownByCurrency(metrics []HoldingWithMetrics, cur core.Currency) *MarketBreakdown {
	var b MarketBreakdown
	found := false
	for _, m := range metrics {
		if m.OriginalCurrency != cur {
			continue
		}
		found = true
		b.MarketValue += m.OriginalMarketValue
		b.Cost += m.OriginalCost
		b.UnrealizedPnL += m.OriginalMarketValue - m.OriginalCost
	}
	if !found {
		return nil
	}
	return &b
}
