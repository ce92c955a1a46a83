package portfolio

import "github.com/newthinker/folio/internal/core"

// ClassWeight is the base-currency value of a partition and its share of
// the portfolio.
type ClassWeight struct {
	MarketValue float64 `json:"marketValue"`
	Weight      float64 `json:"weight"`
}

// BondBreakdown splits the bond partition into corporate and treasury bonds.
type BondBreakdown struct {
	TotalMarketValue float64     `json:"totalMarketValue"`
	Weight           float64     `json:"weight"`
	Corp             ClassWeight `json:"corp"`
	UST              ClassWeight `json:"ust"`
}

// AssetClassBreakdown is the allocation between equities and bonds.
type AssetClassBreakdown struct {
	Equity ClassWeight   `json:"equity"`
	Bond   BondBreakdown `json:"bond"`
}

// BreakdownByAssetClass sums base-currency market value per asset class.
// Anything that is not a bond counts as equity. Bonds with an unknown
// category only contribute to the bond total.
func BreakdownByAssetClass(metrics []HoldingWithMetrics, totalMarketValue float64) AssetClassBreakdown {
	var equity, bonds, corp, ust float64
	for _, m := range metrics {
		if !m.IsBond() {
			equity += m.MarketValue
			continue
		}
		bonds += m.MarketValue
		switch m.BondCategory {
		case core.BondCorporate:
			corp += m.MarketValue
		case core.BondTreasury:
			ust += m.MarketValue
		}
	}

	return AssetClassBreakdown{
		Equity: ClassWeight{MarketValue: equity, Weight: ratio(equity, totalMarketValue)},
		Bond: BondBreakdown{
			TotalMarketValue: bonds,
			Weight:           ratio(bonds, totalMarketValue),
			Corp:             ClassWeight{MarketValue: corp, Weight: ratio(corp, totalMarketValue)},
			UST:              ClassWeight{MarketValue: ust, Weight: ratio(ust, totalMarketValue)},
		},
	}
}

// ratio divides guarding against a non-positive denominator.
func ratio(part, total float64) float64 {
	if total > 0 {
		return part / total
	}
	return 0
}
