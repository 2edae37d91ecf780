// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Harvest   HarvestConfig   `mapstructure:"harvest"`
	Synthetic SyntheticConfig `mapstructure:"synthetic"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	AI        AIConfig        `mapstructure:"ai"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs the storefront transport used for product and page fetches.
type CrawlerConfig struct {
	UserAgent          string        `mapstructure:"user_agent"`
	RespectRobots      bool          `mapstructure:"respect_robots"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	TotalTimeout       time.Duration `mapstructure:"total_timeout"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes"`
	StoreInfoCacheSize int           `mapstructure:"store_info_cache_size"`
	StoreInfoTTL       time.Duration `mapstructure:"store_info_ttl"`
}

// HarvestConfig tunes the review widget API harvester.
type HarvestConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	TargetPositive int           `mapstructure:"target_positive"`
	TargetNegative int           `mapstructure:"target_negative"`
	PageSize       int           `mapstructure:"page_size"`
	MaxPages       int           `mapstructure:"max_pages"`
	PageDelay      time.Duration `mapstructure:"page_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker guarding the widget API.
type BreakerConfig struct {
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	OpenTimeout  time.Duration `mapstructure:"open_timeout"`
	Interval     time.Duration `mapstructure:"interval"`
}

// SyntheticConfig controls fallback review generation.
type SyntheticConfig struct {
	// Enabled lets the harvester substitute synthetic reviews when the
	// widget API is unusable; when false such failures yield no reviews.
	Enabled    bool   `mapstructure:"enabled"`
	Seed       uint64 `mapstructure:"seed"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// HeadlessConfig configures the headless rendering fallback used for widget detection.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// AIConfig selects and tunes the content generation provider.
type AIConfig struct {
	Provider       string        `mapstructure:"provider"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REVCOPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("crawler.insecure_skip_verify", false)
	v.SetDefault("crawler.connect_timeout", 3*time.Second)
	v.SetDefault("crawler.read_timeout", 5*time.Second)
	v.SetDefault("crawler.total_timeout", 10*time.Second)
	v.SetDefault("crawler.max_body_bytes", int64(8<<20))
	v.SetDefault("crawler.store_info_cache_size", 256)
	v.SetDefault("crawler.store_info_ttl", time.Hour)
	v.SetDefault("harvest.base_url", "https://api.yotpo.com/v1")
	v.SetDefault("harvest.target_positive", 50)
	v.SetDefault("harvest.target_negative", 50)
	v.SetDefault("harvest.page_size", 50)
	v.SetDefault("harvest.max_pages", 10)
	v.SetDefault("harvest.page_delay", 100*time.Millisecond)
	v.SetDefault("harvest.request_timeout", 5*time.Second)
	v.SetDefault("harvest.breaker.min_requests", 5)
	v.SetDefault("harvest.breaker.failure_ratio", 0.5)
	v.SetDefault("harvest.breaker.open_timeout", 30*time.Second)
	v.SetDefault("harvest.breaker.interval", 60*time.Second)
	v.SetDefault("synthetic.enabled", true)
	v.SetDefault("synthetic.seed", 0)
	v.SetDefault("synthetic.max_age_days", 180)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 60)
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 2)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("ai.provider", "mock")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.max_attempts", 3)
	v.SetDefault("ai.initial_backoff", time.Second)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.TotalTimeout <= 0 {
		return fmt.Errorf("crawler.total_timeout must be > 0")
	}
	if c.Crawler.ConnectTimeout <= 0 || c.Crawler.ReadTimeout <= 0 {
		return fmt.Errorf("crawler.connect_timeout and crawler.read_timeout must be > 0")
	}
	if c.Harvest.BaseURL == "" {
		return fmt.Errorf("harvest.base_url must be set")
	}
	if c.Harvest.PageSize <= 0 {
		return fmt.Errorf("harvest.page_size must be > 0")
	}
	if c.Harvest.MaxPages <= 0 {
		return fmt.Errorf("harvest.max_pages must be > 0")
	}
	if c.Harvest.TargetPositive < 0 || c.Harvest.TargetNegative < 0 {
		return fmt.Errorf("harvest.target_positive and harvest.target_negative must be >= 0")
	}
	if c.Harvest.RequestTimeout <= 0 {
		return fmt.Errorf("harvest.request_timeout must be > 0")
	}
	if c.Synthetic.MaxAgeDays <= 0 {
		return fmt.Errorf("synthetic.max_age_days must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.AI.Provider {
	case "mock", "":
	case "openai", "deepseek":
		if c.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key must be set for provider %q", c.AI.Provider)
		}
		if c.AI.MaxAttempts <= 0 {
			return fmt.Errorf("ai.max_attempts must be > 0")
		}
	default:
		return fmt.Errorf("ai.provider %q is not supported", c.AI.Provider)
	}
	return nil
}

// RequestBudget returns the per-request timeout applied by the API server.
func (c Config) RequestBudget() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
