package portfolio_test

import (
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/portfolio"
)

func ptr(v float64) *float64 { return &v }

func equity(symbol string, qty, cost float64) portfolio.Holding {
	return portfolio.Holding{
		ID:        "h-" + symbol,
		Symbol:    symbol,
		Quantity:  qty,
		CostBasis: cost,
	}
}

func bond(symbol string, face, cost, price float64, cat core.BondCategory) portfolio.Holding {
	return portfolio.Holding{
		ID:           "h-" + symbol,
		Symbol:       symbol,
		Quantity:     face,
		CostBasis:    cost,
		AssetClass:   core.AssetBond,
		BondCategory: cat,
		CouponRate:   ptr(4.25),
		MaturityDate: "2030-05-15",
		CurrentPrice: ptr(price),
	}
}

func onMarket(h portfolio.Holding, m core.HoldingMarket) portfolio.Holding {
	h.Market = m
	return h
}
