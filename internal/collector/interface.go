package collector

import (
	"context"
	"time"

	"github.com/newthinker/folio/internal/core"
)

// Config holds collector configuration
type Config struct {
	Enabled bool
	Markets []string
	Timeout time.Duration
	BaseURL string
	APIKey  string
	Extra   map[string]any
}

// Collector defines the interface for quote sources
type Collector interface {
	// Metadata
	Name() string
	SupportedMarkets() []core.HoldingMarket

	// Lifecycle
	Init(cfg Config) error

	// Data fetching. The returned quote carries the caller's symbol, not
	// the provider's spelling of it.
	FetchQuote(ctx context.Context, symbol string, market core.HoldingMarket) (*core.Quote, error)
}

// BatchCollector is implemented by sources that can quote many symbols of
// one market in a single round trip. Symbols that could not be quoted are
// simply absent from the result.
type BatchCollector interface {
	Collector
	FetchQuotes(ctx context.Context, symbols []string, market core.HoldingMarket) ([]core.Quote, error)
}

// Supports reports whether c quotes symbols of market m.
func Supports(c Collector, m core.HoldingMarket) bool {
	for _, sm := range c.SupportedMarkets() {
		if sm == m {
			return true
		}
	}
	return false
}
