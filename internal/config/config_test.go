package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/recipe-harvester/internal/assemble"
	"github.com/JakeFAU/recipe-harvester/internal/extract"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://www.mob.co.uk", cfg.Site.BaseOrigin)
	assert.Equal(t, "https://www.mob.co.uk", cfg.Image.BaseOrigin)
	assert.Equal(t, "https://www.mob.co.uk", cfg.Assemble.BaseOrigin)
	assert.Equal(t, "images.weserv.nl", cfg.Image.ProxyHost)
	assert.Equal(t, FetchModeColly, cfg.Fetch.Mode)
	assert.Equal(t, 3, cfg.Fetch.Retry.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Fetch.Retry.BaseDelay)
	assert.InDelta(t, 0.5, cfg.Fetch.Rate.RPS, 1e-9)
	assert.Equal(t, "mob_recipes_local.csv", cfg.Store.Path)
	assert.Equal(t, assemble.DefaultChefName, cfg.Assemble.DefaultChefName)
	assert.Equal(t, assemble.DefaultPlaceholders(), cfg.Assemble.PlaceholderImages)
	assert.Equal(t, extract.DefaultSelectors(), cfg.Selectors)
	assert.Equal(t, ArchiveNone, cfg.Archive.Backend)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 2048, cfg.Fetch.PromotionThreshold)
	assert.Equal(t, []string{"https://www.mob.co.uk"}, cfg.Fetch.AllowedHosts)
}

func TestValidateAcceptsAutoMode(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Fetch.Mode = FetchModeAuto
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
site:
  base_origin: https://staging.mob.co.uk/
  default_dietary: Vegetarian
fetch:
  mode: Headless
  wait_selector: main h1
  retry:
    max_retries: 5
    base_delay: 500ms
  rate:
    rps: 2
    burst: 3
  headers:
    Accept-Language: en-GB
store:
  path: data/recipes.csv
selectors:
  hero: section.hero
logging:
  development: false
metrics:
  addr: ":9102"
db:
  dsn: postgres://localhost/recipes
  table: mob_recipes
archive:
  backend: local
  dir: /tmp/recipe-backups
pubsub:
  project_id: kitchen
  topic_id: recipes-saved
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://staging.mob.co.uk", cfg.Site.BaseOrigin)
	assert.Equal(t, "https://staging.mob.co.uk", cfg.Image.BaseOrigin)
	assert.Equal(t, "Vegetarian", cfg.Assemble.DefaultDietary)
	assert.Equal(t, FetchModeHeadless, cfg.Fetch.Mode)
	assert.Equal(t, "main h1", cfg.Fetch.WaitSelector)
	assert.Equal(t, 5, cfg.Fetch.Retry.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.Retry.BaseDelay)
	assert.Equal(t, 3, cfg.Fetch.Rate.Burst)
	assert.Equal(t, "en-GB", cfg.Fetch.Headers["accept-language"])
	assert.Equal(t, "data/recipes.csv", cfg.Store.Path)
	assert.Equal(t, "section.hero", cfg.Selectors.Hero)
	assert.Equal(t, extract.DefaultSelectors().Card, cfg.Selectors.Card)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, ":9102", cfg.Metrics.Addr)
	assert.Equal(t, "mob_recipes", cfg.DB.Table)
	assert.Equal(t, ArchiveLocal, cfg.Archive.Backend)
	assert.Equal(t, "recipes-saved", cfg.PubSub.TopicID)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RECIPES_STORE_PATH", "env.csv")
	t.Setenv("RECIPES_FETCH_RETRY_MAX_RETRIES", "7")
	t.Setenv("RECIPES_METRICS_ADDR", "127.0.0.1:9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.csv", cfg.Store.Path)
	assert.Equal(t, 7, cfg.Fetch.Retry.MaxRetries)
	assert.Equal(t, "127.0.0.1:9000", cfg.Metrics.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad origin", func(c *Config) { c.Site.BaseOrigin = "www.mob.co.uk" }, "site.base_origin"},
		{"no store", func(c *Config) { c.Store.Path = " " }, "store.path"},
		{"bad mode", func(c *Config) { c.Fetch.Mode = "curl" }, "fetch.mode"},
		{"negative retries", func(c *Config) { c.Fetch.Retry.MaxRetries = -1 }, "max_retries"},
		{"negative delay", func(c *Config) { c.Fetch.Retry.BaseDelay = -time.Second }, "base_delay"},
		{"negative rps", func(c *Config) { c.Fetch.Rate.RPS = -1 }, "rps"},
		{"negative threshold", func(c *Config) { c.Fetch.PromotionThreshold = -1 }, "promotion_threshold"},
		{"local archive without dir", func(c *Config) {
			c.Archive.Backend = ArchiveLocal
			c.Archive.Dir = ""
		}, "archive.dir"},
		{"gcs archive without bucket", func(c *Config) { c.Archive.Backend = ArchiveGCS }, "gcs.bucket"},
		{"unknown archive", func(c *Config) { c.Archive.Backend = "s3" }, "archive.backend"},
		{"topic without project", func(c *Config) { c.PubSub.TopicID = "t" }, "pubsub.project_id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
