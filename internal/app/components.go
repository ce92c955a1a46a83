package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/collector"
	"github.com/newthinker/folio/internal/collector/breaker"
	"github.com/newthinker/folio/internal/collector/twse"
	"github.com/newthinker/folio/internal/collector/yahoo"
	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/notifier"
	"github.com/newthinker/folio/internal/notifier/email"
	"github.com/newthinker/folio/internal/notifier/telegram"
	"github.com/newthinker/folio/internal/notifier/webhook"
	"github.com/newthinker/folio/internal/storage/archive"
)

func newStorage(cfg config.StorageConfig) (archive.Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		s, err := archive.NewLocalFS(cfg.Path)
		if err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		return s, nil
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	case "memory":
		return archive.NewMemory(), nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", cfg.Type))
	}
}

func newCache(cfg config.CacheConfig, logger *zap.Logger) (cache.PriceCache, error) {
	switch cfg.Type {
	case "", "memory":
		return cache.NewMemory(cfg.TTL), nil
	case "redis":
		return cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.TTL,
		}, logger)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown cache type %q", cfg.Type))
	}
}

// registerProviders registers the enabled quote providers in configuration
// order, each behind a circuit breaker when enabled. It returns the Yahoo
// client used for exchange rates, which exists even when Yahoo quotes are
// disabled.
func registerProviders(registry *collector.Registry, cfg config.QuotesConfig, logger *zap.Logger) (*yahoo.Yahoo, error) {
	var yahooClient *yahoo.Yahoo
	for _, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		var c collector.Collector
		switch strings.ToLower(pc.Name) {
		case "yahoo":
			yahooClient = yahoo.New()
			c = yahooClient
		case "twse":
			c = twse.New()
		default:
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown quote provider %q", pc.Name))
		}
		if err := c.Init(collector.Config{
			Enabled: true,
			Markets: pc.Markets,
			Timeout: cfg.Timeout,
			BaseURL: pc.BaseURL,
			APIKey:  pc.APIKey,
		}); err != nil {
			return nil, fmt.Errorf("initializing %s: %w", pc.Name, err)
		}
		if cfg.Breaker.Enabled {
			c = breaker.Wrap(c, breaker.Config{
				MaxRequests:         cfg.Breaker.MaxRequests,
				Interval:            cfg.Breaker.Interval,
				Timeout:             cfg.Breaker.Timeout,
				ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			}, logger)
		}
		registry.Register(c)
	}

	if yahooClient == nil {
		yahooClient = yahoo.New()
		if err := yahooClient.Init(collector.Config{Timeout: cfg.Timeout}); err != nil {
			return nil, err
		}
	}
	return yahooClient, nil
}

// registerNotifiers registers the enabled notifiers. The map key selects
// the channel type.
func registerNotifiers(registry *notifier.Registry, cfgs map[string]config.NotifierConfig) error {
	for name, nc := range cfgs {
		if !nc.Enabled {
			continue
		}
		var n notifier.Notifier
		params := map[string]any{}
		switch name {
		case "telegram":
			n = telegram.New(nc.BotToken, nc.ChatID)
			params["bot_token"] = nc.BotToken
			params["chat_id"] = nc.ChatID
		case "webhook":
			n = webhook.New(nc.URL, nc.Headers)
			params["url"] = nc.URL
			if nc.Headers != nil {
				params["headers"] = nc.Headers
			}
		case "email":
			n = email.New(nc.Host, nc.Port, nc.Username, nc.Password, nc.From, nc.To)
			params["host"] = nc.Host
			params["port"] = nc.Port
			params["username"] = nc.Username
			params["password"] = nc.Password
			params["from"] = nc.From
			params["to"] = nc.To
		default:
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier %q", name))
		}
		if err := n.Init(notifier.Config{Type: name, Params: params}); err != nil {
			return err
		}
		if err := registry.Register(n); err != nil {
			return err
		}
	}
	return nil
}
