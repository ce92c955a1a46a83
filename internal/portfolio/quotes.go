package portfolio

import "github.com/newthinker/folio/internal/core"

// QuotesToPriceMap indexes quote prices by symbol.
func QuotesToPriceMap(quotes []core.Quote) map[string]float64 {
	m := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		m[q.Symbol] = q.Price
	}
	return m
}

// QuotesToNameMap indexes quote display names by symbol.
func QuotesToNameMap(quotes []core.Quote) map[string]string {
	m := make(map[string]string, len(quotes))
	for _, q := range quotes {
		m[q.Symbol] = q.Name
	}
	return m
}

// QuotesToMarketMap indexes the market of single-market quotes by symbol.
func QuotesToMarketMap(quotes []core.Quote) map[string]core.HoldingMarket {
	m := make(map[string]core.HoldingMarket, len(quotes))
	for _, q := range quotes {
		hm := core.HoldingMarket(q.Market)
		if hm.IsValid() {
			m[q.Symbol] = hm
		}
	}
	return m
}

// ApplyNames returns copies of holdings whose Name is taken from nameMap,
// falling back to the stored name and then the symbol.
func ApplyNames(holdings []Holding, nameMap map[string]string) []Holding {
	out := make([]Holding, len(holdings))
	for i, h := range holdings {
		switch {
		case nameMap[h.Symbol] != "":
			h.Name = nameMap[h.Symbol]
		case h.Name == "":
			h.Name = h.Symbol
		}
		out[i] = h
	}
	return out
}
