// Package format renders amounts and ratios for display.
package format

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/newthinker/folio/internal/core"
)

// DefaultDecimals is the number of fraction digits used by Money and Percent
// callers that do not care.
const DefaultDecimals = 2

// Currency formats value in cur with exactly decimals fraction digits,
// e.g. "$1,234.50" or "NT$20,800.00". Halves round away from zero.
func Currency(value float64, cur core.Currency, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	if !cur.IsValid() {
		cur = core.CurrencyUSD
	}

	minor := decimal.NewFromFloat(value).Round(int32(decimals)).Shift(int32(decimals))
	f := money.NewFormatter(decimals, ".", ",", cur.Symbol(), "$1")
	return f.Format(minor.IntPart())
}

// Money formats value in cur with DefaultDecimals digits.
func Money(value float64, cur core.Currency) string {
	return Currency(value, cur, DefaultDecimals)
}

// SignedMoney is Money with a leading "+" for non-negative values.
func SignedMoney(value float64, cur core.Currency) string {
	if value >= 0 {
		return "+" + Money(value, cur)
	}
	return Money(value, cur)
}

// Percent formats a fraction as a signed percentage: 0.1234 -> "+12.34%".
// Zero is rendered with a plus sign.
func Percent(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	s := decimal.NewFromFloat(value).Shift(2).StringFixed(int32(decimals))
	if value >= 0 {
		return "+" + s + "%"
	}
	return s + "%"
}

// Ratio formats a fraction as an unsigned percentage: 0.455 -> "45.50%".
func Ratio(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return decimal.NewFromFloat(value).Shift(2).StringFixed(int32(decimals)) + "%"
}
