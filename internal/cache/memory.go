package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process PriceCache. A zero ttl keeps entries forever.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an in-memory cache.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) expired(e Entry) bool {
	return m.ttl > 0 && m.now().Sub(e.Time()) > m.ttl
}

// Get implements PriceCache.
func (m *Memory) Get(ctx context.Context, symbol string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[symbol]
	if !ok || m.expired(e) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Set implements PriceCache.
func (m *Memory) Set(ctx context.Context, symbol string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[symbol] = entry
	return nil
}

// All implements PriceCache.
func (m *Memory) All(ctx context.Context) (map[string]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Entry, len(m.entries))
	for symbol, e := range m.entries {
		if !m.expired(e) {
			result[symbol] = e
		}
	}
	return result, nil
}

// Close implements PriceCache.
func (m *Memory) Close() error {
	return nil
}
