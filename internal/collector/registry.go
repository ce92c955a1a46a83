package collector

import (
	"sync"

	"github.com/newthinker/folio/internal/core"
)

// Registry manages collector plugins. Registration order is the fallback
// order used when several collectors serve the same market.
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]Collector
	order      []string
}

// NewRegistry creates a new collector registry
func NewRegistry() *Registry {
	return &Registry{
		collectors: make(map[string]Collector),
	}
}

// Register adds a collector to the registry. Registering a name twice
// replaces the collector but keeps its position.
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.collectors[c.Name()]; !exists {
		r.order = append(r.order, c.Name())
	}
	r.collectors[c.Name()] = c
}

// Get retrieves a collector by name
func (r *Registry) Get(name string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collectors[name]
	return c, ok
}

// GetAll returns all registered collectors in registration order
func (r *Registry) GetAll() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Collector, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.collectors[name])
	}
	return result
}

// ForMarket returns the collectors serving market m in fallback order.
func (r *Registry) ForMarket(m core.HoldingMarket) []Collector {
	var result []Collector
	for _, c := range r.GetAll() {
		if Supports(c, m) {
			result = append(result, c)
		}
	}
	return result
}
