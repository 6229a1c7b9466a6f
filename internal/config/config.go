// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/recipe-harvester/internal/assemble"
	"github.com/JakeFAU/recipe-harvester/internal/extract"
	"github.com/JakeFAU/recipe-harvester/internal/fetcher"
	"github.com/JakeFAU/recipe-harvester/internal/headless/detector"
	"github.com/JakeFAU/recipe-harvester/internal/imageurl"
	"github.com/JakeFAU/recipe-harvester/internal/policy/ratelimit"
	gcppublisher "github.com/JakeFAU/recipe-harvester/internal/publisher/pubsub"
	"github.com/JakeFAU/recipe-harvester/internal/storage/gcs"
	"github.com/JakeFAU/recipe-harvester/internal/storage/postgres"
	"github.com/JakeFAU/recipe-harvester/internal/store/csvstore"
)

// EnvPrefix prefixes every environment override, e.g. RECIPES_STORE_PATH.
const EnvPrefix = "RECIPES"

// Fetch modes.
const (
	FetchModeColly    = "colly"
	FetchModeHeadless = "headless"
	FetchModeAuto     = "auto"
)

// Archive backends.
const (
	ArchiveNone   = "none"
	ArchiveLocal  = "local"
	ArchiveMemory = "memory"
	ArchiveGCS    = "gcs"
)

// Config captures every knob of the harvester.
type Config struct {
	Site      SiteConfig          `mapstructure:"site"`
	Image     imageurl.Config     `mapstructure:"image"`
	Fetch     FetchConfig         `mapstructure:"fetch"`
	Store     csvstore.Config     `mapstructure:"store"`
	Selectors extract.Selectors   `mapstructure:"selectors"`
	Assemble  assemble.Config     `mapstructure:"assemble"`
	Logging   LoggingConfig       `mapstructure:"logging"`
	Metrics   MetricsConfig       `mapstructure:"metrics"`
	DB        postgres.Config     `mapstructure:"db"`
	GCS       gcs.Config          `mapstructure:"gcs"`
	PubSub    gcppublisher.Config `mapstructure:"pubsub"`
	Archive   ArchiveConfig       `mapstructure:"archive"`
}

// SiteConfig describes the recipe site being harvested.
type SiteConfig struct {
	BaseOrigin     string `mapstructure:"base_origin"`
	DefaultDietary string `mapstructure:"default_dietary"`
}

// FetchConfig selects and tunes the page transport.
type FetchConfig struct {
	Mode          string              `mapstructure:"mode"`
	UserAgent     string              `mapstructure:"user_agent"`
	RespectRobots bool                `mapstructure:"respect_robots"`
	Timeout       time.Duration       `mapstructure:"timeout"`
	Headers       map[string]string   `mapstructure:"headers"`
	WaitSelector  string              `mapstructure:"wait_selector"`
	WaitTimeout   time.Duration       `mapstructure:"wait_timeout"`
	Retry         fetcher.RetryConfig `mapstructure:"retry"`
	Rate          ratelimit.Config    `mapstructure:"rate"`

	// PromotionThreshold is the body size below which auto mode considers a static page
	// for a headless retry.
	PromotionThreshold int `mapstructure:"promotion_threshold"`
	// AllowedHosts limits fetching to these hosts. Empty means the site host only.
	AllowedHosts []string `mapstructure:"allowed_hosts"`
}

// LoggingConfig toggles zap development features and span logging.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
	Tracing     bool `mapstructure:"tracing"`
}

// MetricsConfig controls the optional operational HTTP server.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ArchiveConfig chooses where store backups are copied after a run.
type ArchiveConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	Prefix  string `mapstructure:"prefix"`
}

// Load builds a Config from defaults, an optional file and RECIPES_* environment variables.
func Load(path string) (Config, error) {
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

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.inherit()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.base_origin", imageurl.DefaultBaseOrigin)
	v.SetDefault("site.default_dietary", "")
	v.SetDefault("image.proxy_host", imageurl.DefaultProxyHost)
	v.SetDefault("image.base_origin", "")
	v.SetDefault("image.cdn_host", imageurl.DefaultCDNHost)
	v.SetDefault("fetch.mode", FetchModeColly)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.timeout", 60*time.Second)
	v.SetDefault("fetch.wait_selector", "h1")
	v.SetDefault("fetch.wait_timeout", 60*time.Second)
	v.SetDefault("fetch.retry.max_retries", 3)
	v.SetDefault("fetch.retry.base_delay", 2*time.Second)
	v.SetDefault("fetch.rate.rps", 0.5)
	v.SetDefault("fetch.rate.burst", 1)
	v.SetDefault("fetch.promotion_threshold", detector.DefaultThreshold)
	v.SetDefault("fetch.allowed_hosts", []string{})
	v.SetDefault("store.path", "mob_recipes_local.csv")
	v.SetDefault("assemble.base_origin", "")
	v.SetDefault("assemble.default_chef_name", assemble.DefaultChefName)
	v.SetDefault("assemble.default_chef_image", assemble.DefaultChefImage)
	v.SetDefault("assemble.default_dietary", "")
	v.SetDefault("assemble.placeholder_images", assemble.DefaultPlaceholders())
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.tracing", false)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", postgres.DefaultTable)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("gcs.bucket", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_id", "")
	v.SetDefault("archive.backend", ArchiveNone)
	v.SetDefault("archive.dir", "backups")
	v.SetDefault("archive.prefix", "recipes")
}

// inherit fills sections that repeat site-wide settings.
func (c *Config) inherit() {
	c.Site.BaseOrigin = strings.TrimRight(strings.TrimSpace(c.Site.BaseOrigin), "/")
	if c.Image.BaseOrigin == "" {
		c.Image.BaseOrigin = c.Site.BaseOrigin
	}
	if c.Assemble.BaseOrigin == "" {
		c.Assemble.BaseOrigin = c.Site.BaseOrigin
	}
	if c.Assemble.DefaultDietary == "" {
		c.Assemble.DefaultDietary = c.Site.DefaultDietary
	}
	c.Selectors = c.Selectors.WithDefaults()
	c.Fetch.Mode = strings.ToLower(strings.TrimSpace(c.Fetch.Mode))
	if len(c.Fetch.AllowedHosts) == 0 {
		c.Fetch.AllowedHosts = []string{c.Site.BaseOrigin}
	}
	c.Archive.Backend = strings.ToLower(strings.TrimSpace(c.Archive.Backend))
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.Site.BaseOrigin, "http://") && !strings.HasPrefix(c.Site.BaseOrigin, "https://") {
		return fmt.Errorf("site.base_origin must be an http(s) origin, got %q", c.Site.BaseOrigin)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path is required")
	}
	switch c.Fetch.Mode {
	case FetchModeColly, FetchModeHeadless, FetchModeAuto:
	default:
		return fmt.Errorf("fetch.mode must be one of colly, headless or auto, got %q", c.Fetch.Mode)
	}
	if c.Fetch.PromotionThreshold < 0 {
		return fmt.Errorf("fetch.promotion_threshold must be >= 0")
	}
	if c.Fetch.Retry.MaxRetries < 0 {
		return fmt.Errorf("fetch.retry.max_retries must be >= 0")
	}
	if c.Fetch.Retry.BaseDelay < 0 {
		return fmt.Errorf("fetch.retry.base_delay must be >= 0")
	}
	if c.Fetch.Rate.RPS < 0 {
		return fmt.Errorf("fetch.rate.rps must be >= 0")
	}
	switch c.Archive.Backend {
	case ArchiveNone, ArchiveMemory:
	case ArchiveLocal:
		if strings.TrimSpace(c.Archive.Dir) == "" {
			return fmt.Errorf("archive.dir is required for the local archive")
		}
	case ArchiveGCS:
		if strings.TrimSpace(c.GCS.Bucket) == "" {
			return fmt.Errorf("gcs.bucket is required for the gcs archive")
		}
	default:
		return fmt.Errorf("unknown archive.backend %q", c.Archive.Backend)
	}
	if c.PubSub.TopicID != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_id is set")
	}
	return nil
}
