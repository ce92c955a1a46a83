package core

import (
	"strings"
	"time"
)

// Market is the market a profile is opened on. It is fixed at creation.
type Market string

const (
	MarketUS    Market = "US"
	MarketTW    Market = "TW"
	MarketMixed Market = "MIXED"
)

// IsValid reports whether m is one of the known profile markets.
func (m Market) IsValid() bool {
	switch m {
	case MarketUS, MarketTW, MarketMixed:
		return true
	}
	return false
}

// Label returns the display label used in advice prompts.
func (m Market) Label() string {
	switch m {
	case MarketTW:
		return "Taiwan equities"
	case MarketMixed:
		return "Mixed (US + Taiwan)"
	default:
		return "US equities"
	}
}

// DefaultCurrency returns the reporting currency implied by a single-market
// profile. MIXED profiles pick their own, USD is returned as a fallback.
func (m Market) DefaultCurrency() Currency {
	if m == MarketTW {
		return CurrencyTWD
	}
	return CurrencyUSD
}

// HoldingMarket is the market a single holding trades on. Unlike Market it
// never takes the MIXED value.
type HoldingMarket string

const (
	HoldingMarketUS HoldingMarket = "US"
	HoldingMarketTW HoldingMarket = "TW"
)

// IsValid reports whether hm is US or TW.
func (hm HoldingMarket) IsValid() bool {
	return hm == HoldingMarketUS || hm == HoldingMarketTW
}

// Currency is a supported reporting or trading currency.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyTWD Currency = "TWD"
)

// IsValid reports whether c is USD or TWD.
func (c Currency) IsValid() bool {
	return c == CurrencyUSD || c == CurrencyTWD
}

// Symbol returns the display prefix for amounts in c.
func (c Currency) Symbol() string {
	if c == CurrencyTWD {
		return "NT$"
	}
	return "$"
}

// AssetClass distinguishes per-share equities from face-value bonds.
type AssetClass string

const (
	AssetEquity AssetClass = "equity"
	AssetBond   AssetClass = "bond"
)

// BondCategory sub-classifies bonds.
type BondCategory string

const (
	BondCorporate BondCategory = "corp"
	BondTreasury  BondCategory = "ust"
)

// IsValid reports whether b is a known bond category.
func (b BondCategory) IsValid() bool {
	return b == BondCorporate || b == BondTreasury
}

// Label returns a human readable name for the category.
func (b BondCategory) Label() string {
	switch b {
	case BondCorporate:
		return "corporate bond"
	case BondTreasury:
		return "US treasury"
	default:
		return string(b)
	}
}

// RiskLevel is the advisory risk preference of a profile.
type RiskLevel string

const (
	RiskConservative RiskLevel = "conservative"
	RiskBalanced     RiskLevel = "balanced"
	RiskAggressive   RiskLevel = "aggressive"
)

// IsValid reports whether r is a known risk level.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskConservative, RiskBalanced, RiskAggressive:
		return true
	}
	return false
}

// Quote represents a price quote for one symbol, in the symbol's own
// trading currency.
type Quote struct {
	Symbol            string    `json:"symbol"`
	Name              string    `json:"name"`
	Price             float64   `json:"price"`
	Market            Market    `json:"market"`
	Currency          Currency  `json:"currency"`
	ChangesPercentage float64   `json:"changesPercentage,omitempty"`
	Change            float64   `json:"change,omitempty"`
	MarketCap         float64   `json:"marketCap,omitempty"`
	Time              time.Time `json:"-"`
	Source            string    `json:"-"`
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price > 0
}

// NormalizeSymbol upper-cases and trims a ticker. TW symbols are numeric so
// they are unaffected.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
