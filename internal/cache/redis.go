package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/core"
)

// DefaultPrefix namespaces price keys.
const DefaultPrefix = "folio:price:"

// RedisConfig configures the redis price cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Redis is a PriceCache backed by redis. Entries are JSON values under
// Prefix+symbol and expire after TTL.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	ttl    time.Duration
}

// NewRedis connects to redis and verifies the connection.
func NewRedis(cfg RedisConfig, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
		MaxRetries:  1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("connecting to redis %s: %w", cfg.Addr, err))
	}

	logger.Info("redis price cache connected", zap.String("addr", cfg.Addr), zap.Duration("ttl", cfg.TTL))
	return &Redis{
		client: client,
		logger: logger,
		prefix: prefix,
		ttl:    cfg.TTL,
	}, nil
}

func (r *Redis) key(symbol string) string {
	return r.prefix + symbol
}

// Get implements PriceCache.
func (r *Redis) Get(ctx context.Context, symbol string) (Entry, bool, error) {
	val, err := r.client.Get(ctx, r.key(symbol)).Result()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, core.WrapError(core.ErrCacheFailed, err)
	}
	return decodeEntry(symbol, val)
}

// Set implements PriceCache.
func (r *Redis) Set(ctx context.Context, symbol string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return core.WrapError(core.ErrCacheFailed, err)
	}
	if err := r.client.Set(ctx, r.key(symbol), data, r.ttl).Err(); err != nil {
		return core.WrapError(core.ErrCacheFailed, err)
	}
	return nil
}

// All implements PriceCache. It scans the key space under the prefix.
func (r *Redis) All(ctx context.Context) (map[string]Entry, error) {
	result := make(map[string]Entry)

	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		symbol := strings.TrimPrefix(key, r.prefix)

		val, err := r.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, core.WrapError(core.ErrCacheFailed, err)
		}

		entry, ok, err := decodeEntry(symbol, val)
		if err != nil {
			r.logger.Warn("dropping unreadable cache entry", zap.String("key", key), zap.Error(err))
			continue
		}
		if ok {
			result[symbol] = entry
		}
	}
	if err := iter.Err(); err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, err)
	}
	return result, nil
}

// Close implements PriceCache.
func (r *Redis) Close() error {
	return r.client.Close()
}

func decodeEntry(symbol, val string) (Entry, bool, error) {
	var e Entry
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return Entry{}, false, core.WrapError(core.ErrCacheFailed, fmt.Errorf("decoding %s: %w", symbol, err))
	}
	return e, true, nil
}
