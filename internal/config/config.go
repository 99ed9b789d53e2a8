// Package config loads crawler settings from defaults, an optional YAML file,
// PRODUCTCRAWLER_* environment variables and command-line flags.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/product-sitemap-crawler/internal/extract"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "PRODUCTCRAWLER"

// Config is the root configuration object.
type Config struct {
	Crawler  CrawlerConfig     `mapstructure:"crawler"`
	HTTP     HTTPConfig        `mapstructure:"http"`
	Fetcher  FetcherConfig     `mapstructure:"fetcher"`
	Headless HeadlessConfig    `mapstructure:"headless"`
	Extract  extract.Selectors `mapstructure:"extract"`
	Storage  StorageConfig     `mapstructure:"storage"`
	Archive  ArchiveConfig     `mapstructure:"archive"`
	PubSub   PubSubConfig      `mapstructure:"pubsub"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Tracing  TracingConfig     `mapstructure:"tracing"`
	Logging  LoggingConfig     `mapstructure:"logging"`
}

// CrawlerConfig describes the site and the pacing of a run.
type CrawlerConfig struct {
	TargetSite        string  `mapstructure:"target_site"`
	MaxProducts       int     `mapstructure:"max_products"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	UserAgent         string  `mapstructure:"user_agent"`
	SitemapPath       string  `mapstructure:"sitemap_path"`
	RobotsPath        string  `mapstructure:"robots_path"`
}

// HTTPConfig controls the plain HTTP fetcher.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxBodyBytes   int `mapstructure:"max_body_bytes"`
}

// FetcherConfig selects the fetcher implementation.
type FetcherConfig struct {
	Backend string `mapstructure:"backend"`
}

// HeadlessConfig controls the chromedp fetcher.
type HeadlessConfig struct {
	NavTimeoutSec int `mapstructure:"nav_timeout_seconds"`
	// PromoteMinBytes is the body size below which script-heavy probes are promoted.
	PromoteMinBytes int `mapstructure:"promote_min_bytes"`
}

// StorageConfig selects and configures the product store.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// MongoConfig locates the product collection.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// PostgresConfig locates the product table.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// RedisConfig locates the product keyspace.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ArchiveConfig selects where raw product HTML is kept.
type ArchiveConfig struct {
	Backend string `mapstructure:"backend"`
	Prefix  string `mapstructure:"prefix"`
	Bucket  string `mapstructure:"bucket"`
	BaseDir string `mapstructure:"base_dir"`
}

// PubSubConfig enables upsert notifications when both fields are set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Enabled reports whether notifications should be published.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.TopicName != ""
}

// MetricsConfig enables the metrics listener when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	ProjectID   string  `mapstructure:"project_id"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config. Flags that were set on the command line win over the
// file and the environment.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	if err := bindFlags(v, flags); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Crawler.TargetSite = strings.TrimRight(strings.TrimSpace(cfg.Crawler.TargetSite), "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"site":         "crawler.target_site",
	"max-products": "crawler.max_products",
	"rps":          "crawler.requests_per_second",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.target_site", "")
	v.SetDefault("crawler.max_products", 5)
	v.SetDefault("crawler.requests_per_second", 1.0)
	v.SetDefault("crawler.burst", 1)
	v.SetDefault("crawler.user_agent", "product-sitemap-crawler/0.1")
	v.SetDefault("crawler.sitemap_path", "/sitemap.xml")
	v.SetDefault("crawler.robots_path", "/robots.txt")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_body_bytes", 50<<20)
	v.SetDefault("fetcher.backend", "colly")
	v.SetDefault("headless.nav_timeout_seconds", 30)
	v.SetDefault("headless.promote_min_bytes", 2048)

	sel := extract.DefaultSelectors()
	v.SetDefault("extract.title_selector", sel.Title)
	v.SetDefault("extract.current_price_selector", sel.CurrentPrice)
	v.SetDefault("extract.original_price_selector", sel.OriginalPrice)
	v.SetDefault("extract.detail_selector", sel.Detail)
	v.SetDefault("extract.value_selector", sel.Value)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.mongo.uri", "")
	v.SetDefault("storage.mongo.database", "product_crawler")
	v.SetDefault("storage.mongo.collection", "products")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.table", "products")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("storage.redis.addr", "")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.key_prefix", "product:")

	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.prefix", "snapshots")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.base_dir", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "product-sitemap-crawler")
	v.SetDefault("tracing.project_id", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate checks the configuration for required fields and valid values.
func (c Config) Validate() error {
	if c.Crawler.TargetSite == "" {
		return fmt.Errorf("crawler.target_site is required")
	}
	u, err := url.Parse(c.Crawler.TargetSite)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("crawler.target_site must be an absolute http(s) URL, got %q", c.Crawler.TargetSite)
	}
	if c.Crawler.MaxProducts <= 0 {
		return fmt.Errorf("crawler.max_products must be > 0")
	}
	if c.Crawler.RequestsPerSecond < 0 {
		return fmt.Errorf("crawler.requests_per_second must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be >= 0")
	}
	switch c.Fetcher.Backend {
	case "colly":
	case "chromedp", "auto":
		if c.Headless.NavTimeoutSec <= 0 {
			return fmt.Errorf("headless.nav_timeout_seconds must be > 0")
		}
	default:
		return fmt.Errorf("fetcher.backend %q is not supported", c.Fetcher.Backend)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	return c.Archive.validate()
}

func (s StorageConfig) validate() error {
	switch s.Backend {
	case "memory":
	case "mongo":
		if s.Mongo.URI == "" {
			return fmt.Errorf("storage.mongo.uri is required for the mongo backend")
		}
	case "postgres":
		if s.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
		}
	case "redis":
		if s.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", s.Backend)
	}
	return nil
}

func (a ArchiveConfig) validate() error {
	switch a.Backend {
	case "", "none", "memory":
	case "local":
		if a.BaseDir == "" {
			return fmt.Errorf("archive.base_dir is required for the local archive")
		}
	case "gcs":
		if a.Bucket == "" {
			return fmt.Errorf("archive.bucket is required for the gcs archive")
		}
	default:
		return fmt.Errorf("archive.backend %q is not supported", a.Backend)
	}
	return nil
}

// SitemapURL returns the absolute sitemap location.
func (c Config) SitemapURL() string {
	return c.Crawler.TargetSite + c.Crawler.SitemapPath
}

// RobotsURL returns the absolute robots.txt location.
func (c Config) RobotsURL() string {
	return c.Crawler.TargetSite + c.Crawler.RobotsPath
}

// HTTPTimeout returns the per-request timeout for the plain fetcher.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NavigationTimeout returns the per-page budget for the headless fetcher.
func (c Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}
