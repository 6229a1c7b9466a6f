package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-harvester/internal/config"
	"github.com/JakeFAU/recipe-harvester/internal/fetcher"
	"github.com/JakeFAU/recipe-harvester/internal/recipe"
	"github.com/JakeFAU/recipe-harvester/internal/store/csvstore"
)

const salmonPage = `<html><head>
<meta property="og:image" content="https://files.mob-cdn.co.uk/og.jpg">
</head><body>
<div class="RecipeHero relative">
  <h1 class="RecipeHero__heading">Salmon Pasta Salad</h1>
  <div class="body-text-sm mt-2"><div class="line-clamp-2">A bright, punchy salad.</div></div>
  <div class="RecipeHero_meta flex"><div>Serves 4</div><div>25 mins</div></div>
  <a href="/chefs/ben-lebus"><img src="//files.mob-cdn.co.uk/ben.jpg"><h3>Ben Lebus</h3></a>
  <div class="RecipeHero__mediaContainer"><img src="//files.mob-cdn.co.uk/hero.jpg"></div>
</div>
</body></html>`

func writeConfig(t *testing.T, origin, storePath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf(`
site:
  base_origin: %s
store:
  path: %s
fetch:
  retry:
    max_retries: 0
  rate:
    rps: 0
logging:
  development: false
`, origin, storePath)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScrapeCommandUpsertsRecipe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recipes/salmon-pasta-salad" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(salmonPage))
	}))
	defer srv.Close()

	storePath := filepath.Join(t.TempDir(), "recipes.csv")
	cfg := writeConfig(t, srv.URL, storePath)

	urlFile := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(urlFile, []byte("# pages\n/recipes/missing\n"), 0o600))

	out, err := execute(t, "--config", cfg, "scrape", "--file", urlFile, "/recipes/salmon-pasta-salad")
	require.NoError(t, err)
	assert.Contains(t, out, "saved 1, skipped 1, failed 0")

	st, err := csvstore.New(csvstore.Config{Path: storePath})
	require.NoError(t, err)
	recs, err := st.Records()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Salmon Pasta Salad", recs[0].Title)
	assert.Equal(t, "Ben Lebus", recs[0].ChefName)
	assert.True(t, strings.HasPrefix(recs[0].Image, "https://images.weserv.nl/?url=https://files.mob-cdn.co.uk/hero.jpg"))
}

func TestScrapeCommandNeedsURLs(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "https://www.mob.co.uk", filepath.Join(t.TempDir(), "recipes.csv"))
	_, err := execute(t, "--config", cfg, "scrape")
	require.ErrorContains(t, err, "no recipe URLs")
}

func TestCollectCommandRequiresListing(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "https://www.mob.co.uk", filepath.Join(t.TempDir(), "recipes.csv"))
	_, err := execute(t, "--config", cfg, "collect")
	require.Error(t, err)
}

func TestTagAndReimageCommands(t *testing.T) {
	t.Parallel()

	storePath := filepath.Join(t.TempDir(), "recipes.csv")
	st, err := csvstore.New(csvstore.Config{Path: storePath})
	require.NoError(t, err)
	require.NoError(t, st.AppendBatch([]recipe.Record{
		{Title: "Fish Tacos", Description: "Pescatarian crowd pleaser", DietaryRequirements: "None",
			Image: "https://images.weserv.nl/?url=https://www.mob.co.uk/t.jpg&w=640&h=640&fit=cover&q=75"},
		{Title: "Dal", Description: "Lentils", DietaryRequirements: "Vegan"},
	}, true))
	cfg := writeConfig(t, "https://www.mob.co.uk", storePath)

	out, err := execute(t, "--config", cfg, "tag")
	require.NoError(t, err)
	assert.Contains(t, out, "tagged Pescatarian 1 of 2 rows")

	out, err = execute(t, "--config", cfg, "reimage")
	require.NoError(t, err)
	assert.Contains(t, out, "updated 1 of 2 rows")

	recs, err := st.Records()
	require.NoError(t, err)
	assert.Equal(t, "Pescatarian", recs[0].DietaryRequirements)
	assert.True(t, strings.HasSuffix(recs[0].Image, "&output=webp&af=&il="))
	assert.Equal(t, "Vegan", recs[1].DietaryRequirements)
}

func TestMaintenanceCommandsNeedStore(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "https://www.mob.co.uk", filepath.Join(t.TempDir(), "missing.csv"))
	_, err := execute(t, "--config", cfg, "tag", "--keyword", "vegan", "--label", "Vegan")
	require.ErrorContains(t, err, "store does not exist")
}

func TestReadURLList(t *testing.T) {
	t.Parallel()

	urls, err := readURLList(strings.NewReader("\n# comment\n /recipes/a \nhttps://www.mob.co.uk/recipes/b\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/recipes/a", "https://www.mob.co.uk/recipes/b"}, urls)

	_, err = targetURLs(nil, filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

func TestFetchStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&fetcher.StatusError{URL: "u", Code: 404}, "404"},
		{fmt.Errorf("wrapped: %w", context.Canceled), "canceled"},
		{errors.New("reset"), "error"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, fetchStatus(tc.err))
	}
}

func TestRuntimeFromEmptyContext(t *testing.T) {
	t.Parallel()

	_, err := runtimeFrom(context.Background())
	require.Error(t, err)
}

func TestBuildFetcherRefusesOffSiteURLs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(salmonPage))
	}))
	defer srv.Close()

	var done closers
	defer done.close()
	f, err := buildFetcher(config.FetchConfig{
		Mode:         config.FetchModeColly,
		AllowedHosts: []string{srv.URL},
	}, zap.NewNop(), &done)
	require.NoError(t, err)

	body, err := f.Fetch(context.Background(), srv.URL+"/recipes/salmon")
	require.NoError(t, err)
	assert.Contains(t, string(body), "Salmon Pasta Salad")

	_, err = f.Fetch(context.Background(), "https://example.com/recipes/salmon")
	require.ErrorIs(t, err, fetcher.ErrNotAllowed)
}

func TestLoadEnvFile(t *testing.T) {
	const key = "RECIPES_TEST_ENV_FILE_MARKER"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), "harvester.env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv(key))

	require.NoError(t, loadEnvFile(""), "a missing ./.env is not an error")
	require.Error(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}
