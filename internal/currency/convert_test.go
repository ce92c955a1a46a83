package currency

import (
	"errors"
	"math"
	"testing"

	"github.com/newthinker/folio/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		from   core.Currency
		to     core.Currency
		rate   float64
		want   float64
	}{
		{"same currency", 100, core.CurrencyUSD, core.CurrencyUSD, 32, 100},
		{"same currency TWD", 650000, core.CurrencyTWD, core.CurrencyTWD, 32, 650000},
		{"USD to TWD", 100, core.CurrencyUSD, core.CurrencyTWD, 32, 3200},
		{"TWD to USD", 650000, core.CurrencyTWD, core.CurrencyUSD, 32, 20312.5},
		{"negative amount", -64, core.CurrencyTWD, core.CurrencyUSD, 32, -2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Convert(tc.amount, tc.from, tc.to, tc.rate)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestConvert_RoundTrip(t *testing.T) {
	rates := []float64{0.5, 1, 29.87, 32, 31.4159}
	amounts := []float64{0, 1, 1234.56, -987.65, 1e9}

	for _, r := range rates {
		for _, x := range amounts {
			twd, err := Convert(x, core.CurrencyUSD, core.CurrencyTWD, r)
			require.NoError(t, err)
			back, err := Convert(twd, core.CurrencyTWD, core.CurrencyUSD, r)
			require.NoError(t, err)
			assert.InDelta(t, x, back, math.Max(1e-9, math.Abs(x)*1e-12), "rate %v amount %v", r, x)
		}
	}
}

func TestConvert_InvalidRate(t *testing.T) {
	for _, rate := range []float64{0, -32} {
		_, err := Convert(100, core.CurrencyTWD, core.CurrencyUSD, rate)
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrInvalidRate))
	}

	// rejected even when no conversion is needed
	_, err := Convert(100, core.CurrencyUSD, core.CurrencyUSD, 0)
	assert.True(t, errors.Is(err, core.ErrInvalidRate))
}

func TestConvert_InvalidCurrency(t *testing.T) {
	_, err := Convert(100, core.Currency("EUR"), core.CurrencyUSD, 32)
	assert.True(t, errors.Is(err, core.ErrInvalidCurrency))

	_, err = Convert(100, core.CurrencyUSD, core.Currency(""), 32)
	assert.True(t, errors.Is(err, core.ErrInvalidCurrency))
}

func TestRateOrDefault(t *testing.T) {
	assert.Equal(t, 30.5, RateOrDefault(30.5))
	assert.Equal(t, DefaultRate, RateOrDefault(0))
	assert.Equal(t, DefaultRate, RateOrDefault(-1))
}
