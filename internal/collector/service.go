package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/core"
)

// Request asks for quotes. Single-market requests list Symbols under
// Market; MIXED requests split them into USSymbols and TWSymbols.
type Request struct {
	Symbols   []string    `json:"symbols,omitempty"`
	Market    core.Market `json:"market"`
	USSymbols []string    `json:"usSymbols,omitempty"`
	TWSymbols []string    `json:"twSymbols,omitempty"`
}

// Split returns the normalized, de-duplicated symbols per market.
func (r Request) Split() (us, tw []string, err error) {
	market := r.Market
	if market == "" {
		market = core.MarketUS
	}

	switch market {
	case core.MarketUS:
		us = dedupe(r.Symbols)
	case core.MarketTW:
		tw = dedupe(r.Symbols)
	case core.MarketMixed:
		us = dedupe(r.USSymbols)
		tw = dedupe(r.TWSymbols)
	default:
		return nil, nil, core.WrapError(core.ErrInvalidRequest, fmt.Errorf("unknown market %q", r.Market))
	}

	if len(us)+len(tw) == 0 {
		return nil, nil, core.WrapError(core.ErrInvalidRequest, fmt.Errorf("no symbols"))
	}
	return us, tw, nil
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	var out []string
	for _, s := range symbols {
		s = core.NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Response carries the quotes that could be resolved. Failed maps the
// remaining symbols to the last error seen for them.
type Response struct {
	Quotes []core.Quote      `json:"quotes"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Recorder receives quote fetch metrics.
type Recorder interface {
	RecordQuoteFetch(provider, status string)
	RecordCacheLookup(hit bool)
}

// Service resolves quotes through the registered collectors. Collectors for
// a market are tried in registration order; symbols no collector could
// quote fall back to the price cache.
type Service struct {
	registry *Registry
	cache    cache.PriceCache
	metrics  Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache stores fetched prices in c and serves misses from it.
func WithCache(c cache.PriceCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics records fetch outcomes.
func WithMetrics(m Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a quote service over registry.
func NewService(registry *Registry, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collectors returns the registered collectors in fallback order.
func (s *Service) Collectors() []Collector {
	return s.registry.GetAll()
}

// Fetch resolves every symbol of req. It fails with core.ErrQuoteFailed
// only when not a single quote could be produced.
func (s *Service) Fetch(ctx context.Context, req Request) (*Response, error) {
	us, tw, err := req.Split()
	if err != nil {
		return nil, err
	}

	resp := &Response{Quotes: []core.Quote{}}
	for _, part := range []struct {
		market  core.HoldingMarket
		symbols []string
	}{
		{core.HoldingMarketUS, us},
		{core.HoldingMarketTW, tw},
	} {
		if len(part.symbols) == 0 {
			continue
		}
		quotes, failed := s.fetchMarket(ctx, part.symbols, part.market)
		resp.Quotes = append(resp.Quotes, quotes...)
		for symbol, reason := range failed {
			if resp.Failed == nil {
				resp.Failed = make(map[string]string)
			}
			resp.Failed[symbol] = reason
		}
	}

	if len(resp.Quotes) == 0 {
		return resp, core.WrapError(core.ErrQuoteFailed, fmt.Errorf("no quotes for %d symbols", len(us)+len(tw)))
	}
	return resp, nil
}

func (s *Service) fetchMarket(ctx context.Context, symbols []string, market core.HoldingMarket) ([]core.Quote, map[string]string) {
	found := make(map[string]core.Quote, len(symbols))
	failed := make(map[string]string)
	remaining := symbols

	collectors := s.registry.ForMarket(market)
	if len(collectors) == 0 {
		for _, symbol := range symbols {
			failed[symbol] = fmt.Sprintf("no collector for %s market", market)
		}
	}

	for _, c := range collectors {
		if len(remaining) == 0 || ctx.Err() != nil {
			break
		}

		got, errs := s.fetchFrom(ctx, c, remaining, market)
		next := make([]string, 0, len(remaining))
		for _, symbol := range remaining {
			if q, ok := got[symbol]; ok {
				found[symbol] = q
				delete(failed, symbol)
				continue
			}
			if err, ok := errs[symbol]; ok {
				failed[symbol] = fmt.Sprintf("%s: %v", c.Name(), err)
			} else if _, ok := failed[symbol]; !ok {
				failed[symbol] = fmt.Sprintf("%s: no quote", c.Name())
			}
			next = append(next, symbol)
		}
		remaining = next
	}

	s.remember(ctx, found)

	for _, symbol := range remaining {
		if q, ok := s.fromCache(ctx, symbol, market); ok {
			found[symbol] = q
			delete(failed, symbol)
		}
	}

	quotes := make([]core.Quote, 0, len(found))
	for _, symbol := range symbols {
		if q, ok := found[symbol]; ok {
			quotes = append(quotes, q)
		}
	}
	return quotes, failed
}

// fetchFrom asks one collector for symbols, batching when supported.
func (s *Service) fetchFrom(ctx context.Context, c Collector, symbols []string, market core.HoldingMarket) (map[string]core.Quote, map[string]error) {
	got := make(map[string]core.Quote)
	errs := make(map[string]error)

	if bc, ok := c.(BatchCollector); ok {
		quotes, err := bc.FetchQuotes(ctx, symbols, market)
		s.record(c.Name(), err)
		if err != nil {
			s.logger.Warn("batch quote fetch failed",
				zap.String("collector", c.Name()),
				zap.Int("symbols", len(symbols)),
				zap.Error(err),
			)
			for _, symbol := range symbols {
				errs[symbol] = err
			}
			return got, errs
		}
		for _, q := range quotes {
			if q.IsValid() {
				got[q.Symbol] = s.complete(q, c.Name(), market)
			}
		}
		return got, errs
	}

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			errs[symbol] = ctx.Err()
			continue
		}
		q, err := c.FetchQuote(ctx, symbol, market)
		s.record(c.Name(), err)
		if err != nil {
			s.logger.Debug("quote fetch failed",
				zap.String("collector", c.Name()),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			errs[symbol] = err
			continue
		}
		if q == nil || !q.IsValid() {
			errs[symbol] = fmt.Errorf("invalid quote")
			continue
		}
		got[symbol] = s.complete(*q, c.Name(), market)
	}
	return got, errs
}

// complete fills the fields a collector may leave empty.
func (s *Service) complete(q core.Quote, source string, market core.HoldingMarket) core.Quote {
	if q.Name == "" {
		q.Name = q.Symbol
	}
	if q.Market == "" {
		q.Market = core.Market(market)
	}
	if q.Currency == "" {
		q.Currency = core.Market(market).DefaultCurrency()
	}
	if q.Source == "" {
		q.Source = source
	}
	if q.Time.IsZero() {
		q.Time = s.now()
	}
	return q
}

func (s *Service) record(provider string, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordQuoteFetch(provider, status)
}

func (s *Service) remember(ctx context.Context, quotes map[string]core.Quote) {
	if s.cache == nil {
		return
	}
	for symbol, q := range quotes {
		if err := s.cache.Set(ctx, symbol, cache.NewEntry(q.Price, q.Name, q.Time)); err != nil {
			s.logger.Warn("caching price failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}

func (s *Service) fromCache(ctx context.Context, symbol string, market core.HoldingMarket) (core.Quote, bool) {
	if s.cache == nil {
		return core.Quote{}, false
	}
	entry, ok, err := s.cache.Get(ctx, symbol)
	if err != nil {
		s.logger.Warn("reading cached price failed", zap.String("symbol", symbol), zap.Error(err))
		return core.Quote{}, false
	}
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(ok)
	}
	if !ok || entry.Price <= 0 {
		return core.Quote{}, false
	}

	name := entry.Name
	if name == "" {
		name = symbol
	}
	s.logger.Info("using cached price",
		zap.String("symbol", symbol),
		zap.Time("observed", entry.Time()),
	)
	return core.Quote{
		Symbol:   symbol,
		Name:     name,
		Price:    entry.Price,
		Market:   core.Market(market),
		Currency: core.Market(market).DefaultCurrency(),
		Time:     entry.Time(),
		Source:   "cache",
	}, true
}
