package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/newthinker/folio/internal/core"
)

type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Cache     CacheConfig               `mapstructure:"cache"`
	Quotes    QuotesConfig              `mapstructure:"quotes"`
	FX        FXConfig                  `mapstructure:"fx"`
	LLM       LLMConfig                 `mapstructure:"llm"`
	Advice    AdviceConfig              `mapstructure:"advice"`
	Alerts    AlertsConfig              `mapstructure:"alerts"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Log       LogConfig                 `mapstructure:"log"`
}

// LogConfig tunes the zap logger. The --debug flag overrides both fields.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // "json" or "console"
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	APIKey          string        `mapstructure:"api_key"`
	JobTTLHours     int           `mapstructure:"job_ttl_hours"`
	MaxJobs         int           `mapstructure:"max_jobs"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects where the profile document lives.
type StorageConfig struct {
	Type      string   `mapstructure:"type"` // "localfs", "s3" or "memory"
	Path      string   `mapstructure:"path"` // For localfs
	StateFile string   `mapstructure:"state_file"`
	S3        S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// CacheConfig selects the last-known price cache.
type CacheConfig struct {
	Type  string        `mapstructure:"type"` // "memory" or "redis"
	TTL   time.Duration `mapstructure:"ttl"`
	Redis RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QuotesConfig lists the quote providers in fallback order.
type QuotesConfig struct {
	Timeout   time.Duration    `mapstructure:"timeout"`
	Providers []ProviderConfig `mapstructure:"providers"`
	Breaker   BreakerConfig    `mapstructure:"breaker"`
}

type ProviderConfig struct {
	Name    string   `mapstructure:"name"`
	Enabled bool     `mapstructure:"enabled"`
	Markets []string `mapstructure:"markets"`
	BaseURL string   `mapstructure:"base_url"`
	APIKey  string   `mapstructure:"api_key"`
}

type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

// FXConfig controls the USD/TWD rate tracker.
type FXConfig struct {
	DefaultRate float64 `mapstructure:"default_rate"`
	Schedule    string  `mapstructure:"schedule"`
}

type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Claude   ClaudeConfig  `mapstructure:"claude"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
	Azure    AzureConfig   `mapstructure:"azure"`
	Ollama   OllamaConfig  `mapstructure:"ollama"`
	Gemini   GeminiConfig  `mapstructure:"gemini"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ClaudeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// AzureConfig addresses an Azure OpenAI deployment. Empty fields fall back
// to the AZURE_OPENAI_* environment variables.
type AzureConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	Deployment string `mapstructure:"deployment"`
	APIVersion string `mapstructure:"api_version"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// AdviceConfig tunes advice generation.
type AdviceConfig struct {
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Language    string        `mapstructure:"language"`
}

type NotifierConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	URL      string `mapstructure:"url"`
	// Email notifier fields
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	// Webhook notifier fields
	Headers map[string]string `mapstructure:"headers"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AlertsConfig holds alerts configuration.
type AlertsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	Rules    []AlertRule   `mapstructure:"rules"`
}

// AlertRule defines a single alert rule.
type AlertRule struct {
	Name     string        `mapstructure:"name"`
	Expr     string        `mapstructure:"expr"`
	For      time.Duration `mapstructure:"for"`
	Severity string        `mapstructure:"severity"`
	Message  string        `mapstructure:"message"`
}

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from file on top of Defaults. An empty path
// yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Support environment variable overrides
	v.SetEnvPrefix("FOLIO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if ok && strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.applyAzureEnv()

	return cfg, nil
}

// applyAzureEnv fills the Azure section from AZURE_OPENAI_* variables and
// selects the azure provider when none is configured but an endpoint is.
func (c *Config) applyAzureEnv() {
	az := &c.LLM.Azure
	fill := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fill(&az.Endpoint, "AZURE_OPENAI_ENDPOINT")
	fill(&az.APIKey, "AZURE_OPENAI_API_KEY")
	fill(&az.Deployment, "AZURE_OPENAI_DEPLOYMENT_NAME")
	fill(&az.APIVersion, "AZURE_OPENAI_API_VERSION")

	if c.LLM.Provider == "" && az.Endpoint != "" {
		c.LLM.Provider = "azure"
	}
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			JobTTLHours:     1,
			MaxJobs:         100,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Type:      "localfs",
			Path:      "./data",
			StateFile: "folio/state.json",
		},
		Cache: CacheConfig{
			Type: "memory",
			TTL:  24 * time.Hour,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "folio:price:",
			},
		},
		Quotes: QuotesConfig{
			Timeout: 10 * time.Second,
			Providers: []ProviderConfig{
				{Name: "twse", Enabled: true, Markets: []string{"TW"}},
				{Name: "yahoo", Enabled: true, Markets: []string{"US", "TW"}},
			},
			Breaker: BreakerConfig{
				Enabled:             true,
				MaxRequests:         3,
				Interval:            60 * time.Second,
				Timeout:             30 * time.Second,
				ConsecutiveFailures: 5,
			},
		},
		FX: FXConfig{
			DefaultRate: 32,
			Schedule:    "@every 30m",
		},
		LLM: LLMConfig{
			Timeout: 120 * time.Second,
		},
		Advice: AdviceConfig{
			MaxRetries:  3,
			RetryDelay:  time.Second,
			Temperature: 0.5,
			MaxTokens:   8000,
			Timeout:     120 * time.Second,
			Language:    "Traditional Chinese",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Alerts: AlertsConfig{
			Enabled:  false,
			Cooldown: time.Hour,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	switch c.Log.Format {
	case "", "json", "console":
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown log format: %s", c.Log.Format))
	}

	switch c.Storage.Type {
	case "", "localfs", "memory":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage.s3.bucket required when type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	switch c.Cache.Type {
	case "", "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("cache.redis.addr required when type is redis"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown cache type %q", c.Cache.Type))
	}

	for _, p := range c.Quotes.Providers {
		for _, m := range p.Markets {
			if !core.HoldingMarket(m).IsValid() {
				return core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("quote provider %s: unknown market %q", p.Name, m))
			}
		}
	}

	if c.FX.DefaultRate <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("fx.default_rate must be positive, got %v", c.FX.DefaultRate))
	}

	if c.Advice.MaxRetries < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("advice.max_retries must be at least 1, got %d", c.Advice.MaxRetries))
	}
	if c.Advice.Temperature < 0 || c.Advice.Temperature > 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("advice.temperature must be between 0 and 2, got %v", c.Advice.Temperature))
	}
	if c.Advice.MaxTokens < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("advice.max_tokens must be positive, got %d", c.Advice.MaxTokens))
	}

	// LLM validation - if provider set, check config exists
	switch c.LLM.Provider {
	case "":
	case "claude":
		if c.LLM.Claude.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("claude api_key required when provider is claude"))
		}
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("openai api_key required when provider is openai"))
		}
	case "azure":
		if c.LLM.Azure.Endpoint == "" || c.LLM.Azure.APIKey == "" || c.LLM.Azure.Deployment == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("azure endpoint, api_key and deployment required when provider is azure"))
		}
	case "ollama":
		if c.LLM.Ollama.Endpoint == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("ollama endpoint required when provider is ollama"))
		}
	case "gemini":
		if c.LLM.Gemini.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("gemini api_key required when provider is gemini"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}

	return nil
}
