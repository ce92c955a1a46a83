package portfolio

import "github.com/newthinker/folio/internal/core"

// HoldingPayload is the flattened holding record handed to the advice
// provider. Amounts are in the profile's base currency and percentages are
// fractions.
type HoldingPayload struct {
	Symbol               string            `json:"symbol"`
	Name                 string            `json:"name"`
	Quantity             float64           `json:"quantity"`
	CostBasis            float64           `json:"costBasis"`
	CurrentPrice         float64           `json:"currentPrice"`
	MarketValue          float64           `json:"marketValue"`
	Weight               float64           `json:"weight"`
	UnrealizedPnL        float64           `json:"unrealizedPnL"`
	UnrealizedPnLPercent float64           `json:"unrealizedPnLPercent"`
	AssetClass           core.AssetClass   `json:"assetClass,omitempty"`
	BondCategory         core.BondCategory `json:"bondCategory,omitempty"`
	CouponRate           *float64          `json:"couponRate,omitempty"`
	MaturityDate         string            `json:"maturityDate,omitempty"`
}

// PortfolioPayload is the input of the advice provider.
type PortfolioPayload struct {
	ProfileName         string               `json:"profileName"`
	RiskLevel           core.RiskLevel       `json:"riskLevel"`
	Market              core.Market          `json:"market"`
	BaseCurrency        core.Currency        `json:"baseCurrency"`
	TotalMarketValue    float64              `json:"totalMarketValue"`
	TotalCost           float64              `json:"totalCost"`
	TotalUnrealizedPnL  float64              `json:"totalUnrealizedPnL"`
	Concentration       float64              `json:"concentration"`
	Holdings            []HoldingPayload     `json:"holdings"`
	AssetClassBreakdown *AssetClassBreakdown `json:"assetClassBreakdown,omitempty"`
}

// BuildPayload projects a profile, its metrics and summary into the advice
// input shape. It only selects fields.
func BuildPayload(profile Profile, metrics []HoldingWithMetrics, summary PortfolioSummary) PortfolioPayload {
	holdings := make([]HoldingPayload, len(metrics))
	for i, m := range metrics {
		holdings[i] = HoldingPayload{
			Symbol:               m.Symbol,
			Name:                 m.Name,
			Quantity:             m.Quantity,
			CostBasis:            m.CostBasis,
			CurrentPrice:         m.CurrentPrice,
			MarketValue:          m.MarketValue,
			Weight:               m.Weight,
			UnrealizedPnL:        m.UnrealizedPnL,
			UnrealizedPnLPercent: m.UnrealizedPnLPercent,
			AssetClass:           m.AssetClass,
			BondCategory:         m.BondCategory,
			CouponRate:           m.CouponRate,
			MaturityDate:         m.MaturityDate,
		}
	}

	breakdown := summary.AssetClassBreakdown
	return PortfolioPayload{
		ProfileName:         profile.Name,
		RiskLevel:           profile.RiskLevel,
		Market:              profile.EffectiveMarket(),
		BaseCurrency:        profile.EffectiveBaseCurrency(),
		TotalMarketValue:    summary.TotalMarketValue,
		TotalCost:           summary.TotalCost,
		TotalUnrealizedPnL:  summary.TotalUnrealizedPnL,
		Concentration:       summary.Concentration,
		Holdings:            holdings,
		AssetClassBreakdown: &breakdown,
	}
}

// HasBonds reports whether any holding in the payload is a bond.
func (p PortfolioPayload) HasBonds() bool {
	for _, h := range p.Holdings {
		if h.AssetClass == core.AssetBond {
			return true
		}
	}
	return false
}

// TotalUnrealizedPnLPercent returns the overall return as a fraction.
func (p PortfolioPayload) TotalUnrealizedPnLPercent() float64 {
	return ratio(p.TotalUnrealizedPnL, p.TotalCost)
}
