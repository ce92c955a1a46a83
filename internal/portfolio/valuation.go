package portfolio

import "github.com/newthinker/folio/internal/core"

// MarketValue returns the value of h at currentPrice in the holding's
// original currency. Bonds are quoted per 100 of face value.
func MarketValue(h Holding, currentPrice float64) float64 {
	if h.IsBond() {
		return h.Quantity * (currentPrice / 100)
	}
	return h.Quantity * currentPrice
}

// Cost returns the total cost of h in its original currency.
func Cost(h Holding) float64 {
	if h.IsBond() {
		return h.Quantity * (h.CostBasis / 100)
	}
	return h.Quantity * h.CostBasis
}

// PnLPercent returns the unrealized return as a fraction (0.2 for +20%).
// Price and cost basis share a unit convention for both asset classes, so
// the formula does not branch.
func PnLPercent(h Holding, currentPrice float64) float64 {
	if h.CostBasis <= 0 {
		return 0
	}
	return (currentPrice - h.CostBasis) / h.CostBasis
}

// ResolvePrice returns the current price of h: the manual price for bonds
// that carry one, otherwise the price map entry. A missing entry means the
// holding is not priced yet and resolves to 0.
func ResolvePrice(h Holding, priceMap map[string]float64) float64 {
	if h.PriceSource() == PriceSourceManual {
		return *h.CurrentPrice
	}
	return priceMap[h.Symbol]
}

// ResolveOriginalCurrency returns the currency h is traded in. The
// holding's own market wins, then the profile market. Every "is this a TW
// holding" decision goes through here.
func ResolveOriginalCurrency(h Holding, profileMarket core.Market) core.Currency {
	switch h.Market {
	case core.HoldingMarketTW:
		return core.CurrencyTWD
	case core.HoldingMarketUS:
		return core.CurrencyUSD
	}
	if profileMarket == core.MarketTW {
		return core.CurrencyTWD
	}
	return core.CurrencyUSD
}
