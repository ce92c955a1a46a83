package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/advice"
	"github.com/newthinker/folio/internal/alert"
	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/collector"
	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/fx"
	"github.com/newthinker/folio/internal/llm"
	"github.com/newthinker/folio/internal/llm/factory"
	"github.com/newthinker/folio/internal/metrics"
	"github.com/newthinker/folio/internal/notifier"
	"github.com/newthinker/folio/internal/portfolio"
	"github.com/newthinker/folio/internal/profile"
	"github.com/newthinker/folio/internal/storage/archive"
	"github.com/newthinker/folio/internal/storage/state"
)

// App is the main application orchestrator. It owns the profile document,
// the quote and exchange-rate collaborators and runs the valuation pipeline.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Registry

	profiles  *profile.Service
	quotes    *collector.Service
	cache     cache.PriceCache
	fx        *fx.Tracker
	scheduler *fx.Scheduler
	advisor   *advice.Service
	notifiers *notifier.Registry
	alerts    *alert.Evaluator

	mu      sync.Mutex
	running bool
}

type options struct {
	storage    archive.Storage
	cache      cache.PriceCache
	collectors []collector.Collector
	fxSource   fx.Source
	provider   llm.Provider
	metrics    *metrics.Registry
}

// Option overrides a component that would otherwise be built from config.
type Option func(*options)

// WithStorage stores the profile document on s.
func WithStorage(s archive.Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithCache uses c as the price cache.
func WithCache(c cache.PriceCache) Option {
	return func(o *options) { o.cache = c }
}

// WithCollectors registers cs, in order, instead of the configured providers.
func WithCollectors(cs ...collector.Collector) Option {
	return func(o *options) { o.collectors = append([]collector.Collector{}, cs...) }
}

// WithFXSource reads live exchange rates from s.
func WithFXSource(s fx.Source) Option {
	return func(o *options) { o.fxSource = s }
}

// WithLLM generates advice with p.
func WithLLM(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithMetrics records into reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *options) { o.metrics = reg }
}

// New builds every component from cfg and loads the profile document.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Defaults()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	reg := o.metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		metrics:   reg,
		notifiers: notifier.NewRegistry(),
	}

	storage := o.storage
	if storage == nil {
		s, err := newStorage(cfg.Storage)
		if err != nil {
			return nil, err
		}
		storage = s
	}
	store := state.NewStore(storage, cfg.Storage.StateFile, logger)
	a.profiles = profile.NewService(store, reg, logger)
	if err := a.profiles.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}

	a.cache = o.cache
	if a.cache == nil {
		c, err := newCache(cfg.Cache, logger)
		if err != nil {
			return nil, err
		}
		a.cache = c
	}
	a.seedCache(ctx)

	registry := collector.NewRegistry()
	source := o.fxSource
	if o.collectors != nil {
		for _, c := range o.collectors {
			registry.Register(c)
		}
	} else {
		yahooClient, err := registerProviders(registry, cfg.Quotes, logger)
		if err != nil {
			return nil, err
		}
		if source == nil {
			source = fx.NewYahooSource(yahooClient)
		}
	}
	a.quotes = collector.NewService(registry,
		collector.WithCache(a.cache),
		collector.WithMetrics(reg),
		collector.WithLogger(logger),
	)

	a.fx = fx.NewTracker(source, cfg.FX.DefaultRate, reg, logger)
	scheduler, err := fx.NewScheduler(a.fx, cfg.FX.Schedule, logger)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	a.scheduler = scheduler

	provider := o.provider
	if provider == nil && cfg.LLM.Provider != "" {
		p, err := factory.New(ctx, cfg.LLM)
		if err != nil {
			return nil, err
		}
		provider = p
	}
	if provider != nil {
		a.advisor = advice.NewService(provider, advice.Config{
			MaxRetries:  cfg.Advice.MaxRetries,
			RetryDelay:  cfg.Advice.RetryDelay,
			Temperature: cfg.Advice.Temperature,
			MaxTokens:   cfg.Advice.MaxTokens,
			Timeout:     cfg.Advice.Timeout,
			Language:    cfg.Advice.Language,
		}, advice.WithMetrics(reg), advice.WithLogger(logger))
	}

	a.notifiers.SetMetrics(reg)
	if err := registerNotifiers(a.notifiers, cfg.Notifiers); err != nil {
		return nil, err
	}

	if cfg.Alerts.Enabled && len(cfg.Alerts.Rules) > 0 {
		rules := make([]alert.Rule, len(cfg.Alerts.Rules))
		for i, r := range cfg.Alerts.Rules {
			rules[i] = alert.Rule{Name: r.Name, Expr: r.Expr, For: r.For, Severity: r.Severity, Message: r.Message}
		}
		eval, err := alert.NewEvaluator(rules, a.notifiers, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Alerts.Cooldown > 0 {
			eval.SetCooldown(cfg.Alerts.Cooldown)
		}
		eval.SetMetrics(reg)
		a.alerts = eval
	}

	return a, nil
}

// Start begins the exchange-rate schedule. The first refresh happens
// immediately.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return fmt.Errorf("app already running")
	}
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	a.running = true

	active, _ := a.profiles.Active()
	a.logger.Info("folio started",
		zap.String("active_profile", active.Name),
		zap.Int("collectors", len(a.quotes.Collectors())),
		zap.Int("notifiers", a.notifiers.Len()),
		zap.Bool("advice", a.advisor != nil),
	)
	return nil
}

// Stop halts the schedule and releases the price cache.
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		a.scheduler.Stop()
		a.running = false
	}
	return a.cache.Close()
}

// Profiles returns the profile service.
func (a *App) Profiles() *profile.Service {
	return a.profiles
}

// Metrics returns the metrics registry.
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// ExchangeRate returns the current USD/TWD rate.
func (a *App) ExchangeRate() fx.Rate {
	return a.fx.Current()
}

// RefreshExchangeRate fetches a live rate. The previous rate is kept when
// that fails.
func (a *App) RefreshExchangeRate(ctx context.Context) (fx.Rate, error) {
	return a.fx.Refresh(ctx)
}

// Stats returns application statistics.
func (a *App) Stats() map[string]any {
	a.mu.Lock()
	running := a.running
	a.mu.Unlock()

	d := a.profiles.State()
	holdings := 0
	for _, p := range d.Profiles {
		holdings += len(p.Holdings)
	}
	stats := map[string]any{
		"running":       running,
		"profiles":      len(d.Profiles),
		"holdings":      holdings,
		"collectors":    len(a.quotes.Collectors()),
		"notifiers":     a.notifiers.Len(),
		"exchange_rate": a.fx.Rate(),
		"alerts":        a.alerts != nil,
	}
	if a.advisor != nil {
		stats["llm"] = a.advisor.Provider()
	}
	return stats
}

// Valuate values a profile with the cached prices and the current exchange
// rate, then evaluates the alert rules against the summary.
func (a *App) Valuate(ctx context.Context, profileID string) (*portfolio.Snapshot, error) {
	start := time.Now()

	p, err := a.profiles.Get(profileID)
	if err != nil {
		return nil, err
	}
	market := string(p.EffectiveMarket())

	entries := a.lastKnownPrices(ctx)
	names := make(map[string]string, len(entries))
	for symbol, e := range entries {
		if e.Name != "" {
			names[symbol] = e.Name
		}
	}

	snap, err := portfolio.Evaluate(p, cache.PriceMap(entries), names, a.fx.Rate())
	if err != nil {
		a.metrics.RecordValuation(market, "error", time.Since(start).Seconds())
		return nil, err
	}
	a.metrics.RecordValuation(market, "success", time.Since(start).Seconds())
	a.metrics.SetPortfolioValue(p.Name, string(p.EffectiveBaseCurrency()), snap.Summary.TotalMarketValue)

	if a.alerts != nil && len(p.Holdings) > 0 {
		a.alerts.Evaluate(ctx, p.ID, p.Name, alert.SummaryMetrics(snap.Summary))
	}
	return snap, nil
}

// QuoteRequest builds the quote request covering every quoted holding of
// the profile. Bonds are skipped.
func QuoteRequest(p portfolio.Profile) (collector.Request, bool) {
	us, tw := p.Symbols()
	if len(us)+len(tw) == 0 {
		return collector.Request{}, false
	}
	if p.IsMixed() {
		return collector.Request{Market: core.MarketMixed, USSymbols: us, TWSymbols: tw}, true
	}
	return collector.Request{Market: p.EffectiveMarket(), Symbols: append(us, tw...)}, true
}

// RefreshQuotes fetches quotes for every holding of a profile, which
// refreshes the price cache, and stores the returned names on the holdings.
func (a *App) RefreshQuotes(ctx context.Context, profileID string) (*collector.Response, error) {
	p, err := a.profiles.Get(profileID)
	if err != nil {
		return nil, err
	}
	req, ok := QuoteRequest(p)
	if !ok {
		return &collector.Response{Quotes: []core.Quote{}}, nil
	}
	resp, err := a.quotes.Fetch(ctx, req)
	if err != nil {
		return resp, err
	}
	a.storePrices(ctx, resp.Quotes)
	a.updateNames(ctx, p.ID, resp.Quotes)
	return resp, nil
}

// FetchQuotes serves a raw quote request. Names of the returned quotes are
// applied to the active profile.
func (a *App) FetchQuotes(ctx context.Context, req collector.Request) (*collector.Response, error) {
	resp, err := a.quotes.Fetch(ctx, req)
	if err != nil {
		return resp, err
	}
	a.storePrices(ctx, resp.Quotes)
	if active, err := a.profiles.Active(); err == nil {
		a.updateNames(ctx, active.ID, resp.Quotes)
	}
	return resp, nil
}

// seedCache loads the persisted prices into the live cache so the quote
// fallback survives a restart. Symbols the cache already holds are kept.
func (a *App) seedCache(ctx context.Context) {
	for symbol, e := range a.profiles.CachedPrices() {
		if _, ok, err := a.cache.Get(ctx, symbol); err != nil || ok {
			continue
		}
		if err := a.cache.Set(ctx, symbol, e); err != nil {
			a.logger.Warn("seeding price cache failed", zap.String("symbol", symbol), zap.Error(err))
			return
		}
	}
}

// lastKnownPrices returns the persisted prices overlaid with the live cache.
// Persisted entries never expire, so a symbol keeps its last observed price
// after the cache TTL or a restart.
func (a *App) lastKnownPrices(ctx context.Context) map[string]cache.Entry {
	entries := a.profiles.CachedPrices()
	live, err := a.cache.All(ctx)
	if err != nil {
		a.logger.Warn("price cache unavailable, using persisted prices", zap.Error(err))
		return entries
	}
	for symbol, e := range live {
		if old, ok := entries[symbol]; !ok || e.Timestamp >= old.Timestamp {
			entries[symbol] = e
		}
	}
	return entries
}

// storePrices persists the quoted prices with the profile document.
func (a *App) storePrices(ctx context.Context, quotes []core.Quote) {
	if len(quotes) == 0 {
		return
	}
	entries := make(map[string]cache.Entry, len(quotes))
	for _, q := range quotes {
		entries[q.Symbol] = cache.NewEntry(q.Price, q.Name, q.Time)
	}
	if err := a.profiles.StorePrices(ctx, entries); err != nil {
		a.logger.Warn("failed to persist prices", zap.Error(err))
	}
}

func (a *App) updateNames(ctx context.Context, profileID string, quotes []core.Quote) {
	names := portfolio.QuotesToNameMap(quotes)
	if len(names) == 0 {
		return
	}
	if err := a.profiles.UpdateNames(ctx, profileID, names); err != nil {
		a.logger.Warn("failed to store quote names",
			zap.String("profile", profileID),
			zap.Error(err),
		)
	}
}

// AdvicePayload values a profile and checks that it can be sent for
// advice.
func (a *App) AdvicePayload(ctx context.Context, profileID string) (portfolio.PortfolioPayload, error) {
	if a.advisor == nil {
		return portfolio.PortfolioPayload{}, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no llm provider configured"))
	}
	snap, err := a.Valuate(ctx, profileID)
	if err != nil {
		return portfolio.PortfolioPayload{}, err
	}
	if err := advice.Check(snap.Payload); err != nil {
		return portfolio.PortfolioPayload{}, err
	}
	return snap.Payload, nil
}

// GenerateAdvice asks the LLM for commentary on payload.
func (a *App) GenerateAdvice(ctx context.Context, payload portfolio.PortfolioPayload) (*advice.Advice, error) {
	if a.advisor == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no llm provider configured"))
	}
	return a.advisor.Advise(ctx, payload)
}

// Advise values a profile and generates advice for it.
func (a *App) Advise(ctx context.Context, profileID string) (*advice.Advice, error) {
	payload, err := a.AdvicePayload(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return a.GenerateAdvice(ctx, payload)
}
