package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/app"
	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/logger"
)

func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFiles(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// withApp handles logger, config and app setup and teardown.
func withApp(fn func(ctx context.Context, a *app.App, cfg *config.Config, log *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{Development: debug, Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults and environment")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer a.Stop()

	return fn(ctx, a, cfg, log)
}

// resolveProfile returns id, or the active profile id when empty.
func resolveProfile(a *app.App, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	p, err := a.Profiles().Active()
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// refresh fetches the exchange rate and the quotes of a profile. Failures
// are logged; the valuation then falls back to cached prices and the
// default rate.
func refresh(ctx context.Context, a *app.App, profileID string, log *zap.Logger) {
	if _, err := a.RefreshExchangeRate(ctx); err != nil {
		log.Warn("exchange rate refresh failed", zap.Error(err))
	}
	resp, err := a.RefreshQuotes(ctx, profileID)
	if err != nil {
		log.Warn("quote refresh failed", zap.Error(err))
		return
	}
	for symbol, reason := range resp.Failed {
		log.Warn("no quote", zap.String("symbol", symbol), zap.String("reason", reason))
	}
}
