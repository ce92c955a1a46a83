// Package portfolio implements the valuation and metrics engine: it turns
// holding records plus a price map and an exchange rate into
// currency-normalized per-holding metrics and portfolio summaries.
package portfolio

import (
	"fmt"
	"time"

	"github.com/newthinker/folio/internal/core"
)

// maturityLayout is the ISO date format of Holding.MaturityDate.
const maturityLayout = "2006-01-02"

// PriceSource tells where a holding's current price comes from.
type PriceSource string

const (
	// PriceSourceFeed means the price is looked up in the quote price map.
	PriceSourceFeed PriceSource = "feed"
	// PriceSourceManual means the price was entered on the holding itself.
	// Only bonds use it since no automated bond quote source exists.
	PriceSourceManual PriceSource = "manual"
)

// Holding is a position record.
//
// For equities Quantity is a share count and CostBasis a per-share cost.
// For bonds Quantity is the total face value and CostBasis (like
// CurrentPrice) is quoted per 100 of face value.
type Holding struct {
	ID        string             `json:"id"`
	Symbol    string             `json:"symbol"`
	Name      string             `json:"name"`
	Quantity  float64            `json:"quantity"`
	CostBasis float64            `json:"costBasis"`
	Market    core.HoldingMarket `json:"market,omitempty"`
	Note      string             `json:"note,omitempty"`

	AssetClass   core.AssetClass   `json:"assetClass,omitempty"`
	BondCategory core.BondCategory `json:"bondCategory,omitempty"`
	CouponRate   *float64          `json:"couponRate,omitempty"`
	MaturityDate string            `json:"maturityDate,omitempty"`
	// CurrentPrice is the manually entered bond price per 100 face value.
	CurrentPrice *float64 `json:"currentPrice,omitempty"`
}

// IsBond reports whether the holding uses the face-value pricing convention.
func (h Holding) IsBond() bool {
	return h.AssetClass == core.AssetBond
}

// EffectiveAssetClass returns the asset class, defaulting to equity.
func (h Holding) EffectiveAssetClass() core.AssetClass {
	if h.AssetClass == "" {
		return core.AssetEquity
	}
	return h.AssetClass
}

// PriceSource returns where the holding's current price is resolved from.
func (h Holding) PriceSource() PriceSource {
	if h.IsBond() && h.CurrentPrice != nil {
		return PriceSourceManual
	}
	return PriceSourceFeed
}

// Validate checks a holding the way the input layer does before it is
// stored. The valuation functions never call it.
func (h Holding) Validate() error {
	if h.Symbol == "" {
		return invalidHolding("symbol is required")
	}
	if h.Quantity <= 0 {
		return invalidHolding("quantity must be positive, got %v", h.Quantity)
	}
	if h.CostBasis <= 0 {
		return invalidHolding("cost basis must be positive, got %v", h.CostBasis)
	}
	if h.Market != "" && !h.Market.IsValid() {
		return invalidHolding("unknown market %q", h.Market)
	}

	switch h.AssetClass {
	case "", core.AssetEquity:
		return nil
	case core.AssetBond:
	default:
		return invalidHolding("unknown asset class %q", h.AssetClass)
	}

	if h.CurrentPrice == nil || *h.CurrentPrice <= 0 {
		return invalidHolding("bond %s needs a manual current price", h.Symbol)
	}
	if !h.BondCategory.IsValid() {
		return invalidHolding("unknown bond category %q", h.BondCategory)
	}
	if h.CouponRate != nil && (*h.CouponRate < 0 || *h.CouponRate > 100) {
		return invalidHolding("coupon rate must be within 0-100, got %v", *h.CouponRate)
	}
	if h.MaturityDate != "" {
		if _, err := time.Parse(maturityLayout, h.MaturityDate); err != nil {
			return invalidHolding("maturity date %q is not YYYY-MM-DD", h.MaturityDate)
		}
	}
	return nil
}

func invalidHolding(format string, args ...any) error {
	return core.WrapError(core.ErrInvalidHolding, fmt.Errorf(format, args...))
}

// MergeHolding folds an additional purchase of the same symbol into an
// existing holding using a weighted-average cost basis.
func MergeHolding(existing Holding, quantity, costBasis float64) Holding {
	merged := existing
	totalQuantity := existing.Quantity + quantity
	if totalQuantity <= 0 {
		return merged
	}
	totalCost := existing.CostBasis*existing.Quantity + costBasis*quantity
	merged.Quantity = totalQuantity
	merged.CostBasis = totalCost / totalQuantity
	return merged
}

// Profile is a named portfolio container.
type Profile struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	RiskLevel    core.RiskLevel `json:"riskLevel"`
	Market       core.Market    `json:"market"`
	BaseCurrency core.Currency  `json:"baseCurrency"`
	Holdings     []Holding      `json:"holdings"`
}

// EffectiveMarket returns the profile market, US when unset.
func (p Profile) EffectiveMarket() core.Market {
	if p.Market == "" {
		return core.MarketUS
	}
	return p.Market
}

// EffectiveBaseCurrency returns the reporting currency. Single-market
// profiles always report in their market's currency.
func (p Profile) EffectiveBaseCurrency() core.Currency {
	m := p.EffectiveMarket()
	if m != core.MarketMixed {
		return m.DefaultCurrency()
	}
	if p.BaseCurrency == "" {
		return core.CurrencyUSD
	}
	return p.BaseCurrency
}

// IsMixed reports whether the profile spans both markets.
func (p Profile) IsMixed() bool {
	return p.EffectiveMarket() == core.MarketMixed
}

// FindHolding returns the index of the holding with the given id, or -1.
func (p Profile) FindHolding(id string) int {
	for i := range p.Holdings {
		if p.Holdings[i].ID == id {
			return i
		}
	}
	return -1
}

// FindSymbol returns the index of the first holding with the given symbol, or -1.
func (p Profile) FindSymbol(symbol string) int {
	for i := range p.Holdings {
		if p.Holdings[i].Symbol == symbol {
			return i
		}
	}
	return -1
}

// Symbols returns the distinct symbols of the profile split by the market
// they are quoted on. Bonds are skipped since they carry manual prices.
func (p Profile) Symbols() (us, tw []string) {
	seen := make(map[string]bool)
	for _, h := range p.Holdings {
		if h.PriceSource() == PriceSourceManual || seen[h.Symbol] {
			continue
		}
		seen[h.Symbol] = true
		if ResolveOriginalCurrency(h, p.EffectiveMarket()) == core.CurrencyTWD {
			tw = append(tw, h.Symbol)
		} else {
			us = append(us, h.Symbol)
		}
	}
	return us, tw
}

// Validate checks the profile configuration and every holding.
func (p Profile) Validate() error {
	if p.Name == "" {
		return core.WrapError(core.ErrInvalidProfile, fmt.Errorf("name is required"))
	}
	if !p.Market.IsValid() {
		return core.WrapError(core.ErrInvalidProfile, fmt.Errorf("unknown market %q", p.Market))
	}
	if !p.BaseCurrency.IsValid() {
		return core.WrapError(core.ErrInvalidProfile, fmt.Errorf("unknown base currency %q", p.BaseCurrency))
	}
	if p.Market != core.MarketMixed && p.BaseCurrency != p.Market.DefaultCurrency() {
		return core.WrapError(core.ErrInvalidProfile,
			fmt.Errorf("%s profiles report in %s, got %s", p.Market, p.Market.DefaultCurrency(), p.BaseCurrency))
	}
	if p.RiskLevel != "" && !p.RiskLevel.IsValid() {
		return core.WrapError(core.ErrInvalidProfile, fmt.Errorf("unknown risk level %q", p.RiskLevel))
	}
	for _, h := range p.Holdings {
		if err := p.ValidateHolding(h); err != nil {
			return err
		}
	}
	return nil
}

// ValidateHolding checks h on its own and against the owning profile: an
// explicit holding market is only meaningful on mixed profiles.
func (p Profile) ValidateHolding(h Holding) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if h.Market != "" && !p.IsMixed() && string(h.Market) != string(p.EffectiveMarket()) {
		return invalidHolding("holding market %s does not match %s profile", h.Market, p.EffectiveMarket())
	}
	return nil
}
