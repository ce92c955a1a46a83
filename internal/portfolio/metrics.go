package portfolio

import (
	"fmt"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/currency"
)

// HoldingWithMetrics is a holding plus its derived valuation. It is
// recomputed from scratch on every change and is never persisted.
//
// CurrentPrice shadows the embedded manual bond price: it always carries
// the resolved price used for the valuation.
type HoldingWithMetrics struct {
	Holding

	CurrentPrice          float64       `json:"currentPrice"`
	OriginalCurrency      core.Currency `json:"originalCurrency"`
	OriginalMarketValue   float64       `json:"originalMarketValue"`
	MarketValue           float64       `json:"marketValue"`
	OriginalCost          float64       `json:"originalCost"`
	Cost                  float64       `json:"cost"`
	Weight                float64       `json:"weight"`
	UnrealizedPnL         float64       `json:"unrealizedPnL"`
	OriginalUnrealizedPnL float64       `json:"originalUnrealizedPnL"`
	UnrealizedPnLPercent  float64       `json:"unrealizedPnLPercent"`
}

// pricedHolding carries the first-pass intermediates of ComputeAllMetrics.
type pricedHolding struct {
	holding             Holding
	currentPrice        float64
	originalCurrency    core.Currency
	originalMarketValue float64
	marketValue         float64
}

// ComputeAllMetrics values every holding in baseCurrency.
//
// The first pass prices each holding and accumulates the base-currency
// total; the second pass derives weights and P&L from it. rate is the
// number of TWD per USD. An error is returned only for a non-positive rate
// or an unsupported base currency.
func ComputeAllMetrics(
	holdings []Holding,
	priceMap map[string]float64,
	profileMarket core.Market,
	baseCurrency core.Currency,
	rate float64,
) ([]HoldingWithMetrics, error) {
	if rate <= 0 {
		return nil, core.WrapError(core.ErrInvalidRate, fmt.Errorf("got %v", rate))
	}
	if !baseCurrency.IsValid() {
		return nil, core.WrapError(core.ErrInvalidCurrency, fmt.Errorf("base %q", baseCurrency))
	}

	priced := make([]pricedHolding, len(holdings))
	var totalMarketValue float64
	for i, h := range holdings {
		price := ResolvePrice(h, priceMap)
		original := ResolveOriginalCurrency(h, profileMarket)
		originalValue := MarketValue(h, price)

		converted, err := currency.Convert(originalValue, original, baseCurrency, rate)
		if err != nil {
			return nil, err
		}
		totalMarketValue += converted

		priced[i] = pricedHolding{
			holding:             h,
			currentPrice:        price,
			originalCurrency:    original,
			originalMarketValue: originalValue,
			marketValue:         converted,
		}
	}

	result := make([]HoldingWithMetrics, len(priced))
	for i, p := range priced {
		var weight float64
		if totalMarketValue > 0 {
			weight = p.marketValue / totalMarketValue
		}

		originalCost := Cost(p.holding)
		originalPnL := p.originalMarketValue - originalCost

		convertedPnL, err := currency.Convert(originalPnL, p.originalCurrency, baseCurrency, rate)
		if err != nil {
			return nil, err
		}
		convertedCost, err := currency.Convert(originalCost, p.originalCurrency, baseCurrency, rate)
		if err != nil {
			return nil, err
		}

		result[i] = HoldingWithMetrics{
			Holding:               p.holding,
			CurrentPrice:          p.currentPrice,
			OriginalCurrency:      p.originalCurrency,
			OriginalMarketValue:   p.originalMarketValue,
			MarketValue:           p.marketValue,
			OriginalCost:          originalCost,
			Cost:                  convertedCost,
			Weight:                weight,
			UnrealizedPnL:         convertedPnL,
			OriginalUnrealizedPnL: originalPnL,
			UnrealizedPnLPercent:  PnLPercent(p.holding, p.currentPrice),
		}
	}

	return result, nil
}
