// Package currency converts amounts between the two supported currencies.
package currency

import (
	"fmt"

	"github.com/newthinker/folio/internal/core"
)

// DefaultRate is the USD/TWD rate used when no live rate is available.
// 1 USD = DefaultRate TWD.
const DefaultRate = 32.0

// Convert converts amount from one currency to another. rate is the number
// of TWD per USD and must be positive.
func Convert(amount float64, from, to core.Currency, rate float64) (float64, error) {
	if rate <= 0 {
		return 0, core.WrapError(core.ErrInvalidRate, fmt.Errorf("got %v", rate))
	}
	if !from.IsValid() {
		return 0, core.WrapError(core.ErrInvalidCurrency, fmt.Errorf("from %q", from))
	}
	if !to.IsValid() {
		return 0, core.WrapError(core.ErrInvalidCurrency, fmt.Errorf("to %q", to))
	}

	switch {
	case from == to:
		return amount, nil
	case from == core.CurrencyUSD && to == core.CurrencyTWD:
		return amount * rate, nil
	default: // TWD -> USD
		return amount / rate, nil
	}
}

// RateOrDefault returns rate when it is usable and DefaultRate otherwise.
func RateOrDefault(rate float64) float64 {
	if rate > 0 {
		return rate
	}
	return DefaultRate
}
