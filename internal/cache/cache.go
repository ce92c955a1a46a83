// Package cache keeps the last known price of each symbol so a valuation can
// still be produced when a quote source is unavailable.
package cache

import (
	"context"
	"time"
)

// Entry is a cached price together with the moment it was observed.
// Timestamp is in unix milliseconds.
type Entry struct {
	Price     float64 `json:"price"`
	Name      string  `json:"name,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// NewEntry stamps price with t.
func NewEntry(price float64, name string, t time.Time) Entry {
	return Entry{Price: price, Name: name, Timestamp: t.UnixMilli()}
}

// Time returns the observation time of the entry.
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// PriceCache stores last known prices by symbol.
type PriceCache interface {
	// Get returns the entry for symbol. ok is false on a miss.
	Get(ctx context.Context, symbol string) (entry Entry, ok bool, err error)
	Set(ctx context.Context, symbol string, entry Entry) error
	// All returns every live entry.
	All(ctx context.Context) (map[string]Entry, error)
	Close() error
}

// PriceMap projects cache entries onto a symbol -> price map.
func PriceMap(entries map[string]Entry) map[string]float64 {
	m := make(map[string]float64, len(entries))
	for symbol, e := range entries {
		m[symbol] = e.Price
	}
	return m
}
