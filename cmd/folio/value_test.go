package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/portfolio"
)

func TestPrintValuation(t *testing.T) {
	p := portfolio.Profile{
		ID:           "p1",
		Name:         "Growth",
		RiskLevel:    core.RiskAggressive,
		Market:       core.MarketUS,
		BaseCurrency: core.CurrencyUSD,
		Holdings: []portfolio.Holding{
			{ID: "h1", Symbol: "AAPL", Name: "Apple Inc.", Quantity: 10, CostBasis: 150},
		},
	}
	snap, err := portfolio.Evaluate(p, map[string]float64{"AAPL": 175}, nil, 30)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printValuation(&buf, snap))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Growth (US, USD, aggressive)"))
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "$1,750.00")
	assert.Contains(t, out, "+$250.00")
	assert.Contains(t, out, "+16.67%")
	assert.Contains(t, out, "100.0%")
	assert.NotContains(t, out, "USD/TWD")
}

func TestPrintValuation_Empty(t *testing.T) {
	p := portfolio.Profile{ID: "p1", Name: "Empty", Market: core.MarketTW, BaseCurrency: core.CurrencyTWD, RiskLevel: core.RiskBalanced}
	snap, err := portfolio.Evaluate(p, nil, nil, 30)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printValuation(&buf, snap))
	assert.Contains(t, buf.String(), "No holdings.")
}

func TestPrintValuation_MissingMarketAndCurrency(t *testing.T) {
	p := portfolio.Profile{
		ID:        "p1",
		Name:      "Legacy",
		RiskLevel: core.RiskBalanced,
		Holdings: []portfolio.Holding{
			{ID: "h1", Symbol: "VTI", Quantity: 4, CostBasis: 200},
			{ID: "h2", Symbol: "BND", Quantity: 1, CostBasis: 70},
		},
	}
	snap, err := portfolio.Evaluate(p, map[string]float64{"VTI": 250}, nil, 30)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printValuation(&buf, snap))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Legacy (US, USD, balanced)"))
	assert.Contains(t, out, "$1,000.00")
	// unpriced holdings still get a row
	assert.Contains(t, out, "BND")
	assert.NotContains(t, out, "No holdings.")
}
