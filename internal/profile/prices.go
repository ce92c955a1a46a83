package profile

import (
	"context"
	"maps"

	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/storage/state"
)

// CachedPrices returns a copy of the persisted last known prices.
func (s *Service) CachedPrices() map[string]cache.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.PriceCache == nil {
		return map[string]cache.Entry{}
	}
	return maps.Clone(s.data.PriceCache)
}

// StorePrices merges entries into the persisted price cache and saves the
// document. Non-positive prices and entries older than the stored one for
// the same symbol are ignored; nothing is written when no entry is newer.
func (s *Service) StorePrices(ctx context.Context, entries map[string]cache.Entry) error {
	s.mu.RLock()
	fresh := newerEntries(s.data.PriceCache, entries)
	s.mu.RUnlock()
	if len(fresh) == 0 {
		return nil
	}

	return s.mutate(ctx, func(d *state.StoredData) error {
		if d.PriceCache == nil {
			d.PriceCache = make(map[string]cache.Entry, len(fresh))
		}
		for symbol, e := range newerEntries(d.PriceCache, fresh) {
			d.PriceCache[symbol] = e
		}
		return nil
	})
}

func newerEntries(stored, entries map[string]cache.Entry) map[string]cache.Entry {
	fresh := make(map[string]cache.Entry)
	for symbol, e := range entries {
		if e.Price <= 0 {
			continue
		}
		if old, ok := stored[symbol]; ok && (old == e || old.Timestamp > e.Timestamp) {
			continue
		}
		fresh[symbol] = e
	}
	return fresh
}
