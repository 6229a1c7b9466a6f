package maintenance

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/recipe-harvester/internal/imageurl"
	"github.com/JakeFAU/recipe-harvester/internal/recipe"
	"github.com/JakeFAU/recipe-harvester/internal/store/csvstore"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

const (
	proxiedImage = "https://images.weserv.nl/?url=https://www.mob.co.uk/a.jpg&w=400&q=90"
	rawCDNImage  = "https://mob-cdn.co.uk/b.jpg"
)

func newStore(t *testing.T, recs ...recipe.Record) *csvstore.Store {
	t.Helper()
	s, err := csvstore.New(
		csvstore.Config{Path: filepath.Join(t.TempDir(), "recipes.csv")},
		csvstore.WithClock(fixedClock{time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)}),
	)
	require.NoError(t, err)
	if len(recs) > 0 {
		require.NoError(t, s.AppendBatch(recs, true))
	}
	return s
}

func TestReimageTouchesOnlyProxiedCells(t *testing.T) {
	t.Parallel()

	s := newStore(t,
		recipe.Record{Title: "Dal", Image: proxiedImage, ChefImage: rawCDNImage},
		recipe.Record{Title: "Soup", Image: rawCDNImage, ChefImage: ""},
	)

	res, err := Apply(s, Reimage(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 1, res.Changed)
	assert.FileExists(t, res.BackupPath)

	recs, err := s.Records()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t,
		"https://images.weserv.nl/?url=https://www.mob.co.uk/a.jpg&w=640&q=75&h=640&fit=cover&output=webp&af=&il=",
		recs[0].Image)
	assert.Equal(t, rawCDNImage, recs[0].ChefImage)
	assert.Equal(t, rawCDNImage, recs[1].Image)

	again, err := Apply(s, Reimage(imageurl.New(imageurl.Config{})), nil)
	require.NoError(t, err)
	assert.Zero(t, again.Changed)
}

func TestTagMatchesDescriptionIgnoringCase(t *testing.T) {
	t.Parallel()

	s := newStore(t,
		recipe.Record{Title: "Fish Tacos", Description: "A PESCATARIAN favourite", DietaryRequirements: "None"},
		recipe.Record{Title: "Dal", Description: "Lentils", DietaryRequirements: "Vegan"},
		recipe.Record{Title: "Prawns", Description: "pescatarian feast", DietaryRequirements: "Pescatarian"},
	)

	res, err := Apply(s, Tag(DefaultTagKeyword, DefaultTagLabel), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 1, res.Changed)

	recs, err := s.Records()
	require.NoError(t, err)
	assert.Equal(t, "Pescatarian", recs[0].DietaryRequirements)
	assert.Equal(t, "Vegan", recs[1].DietaryRequirements)
	assert.Equal(t, "Pescatarian", recs[2].DietaryRequirements)
}

func TestTagIgnoresBlankKeyword(t *testing.T) {
	t.Parallel()

	row := csvstore.Row{recipe.ColumnDescription: "anything"}
	assert.False(t, Tag("  ", "Vegan")(row))
	assert.Empty(t, row[recipe.ColumnDietaryRequirements])
}

func TestApplyMissingStore(t *testing.T) {
	t.Parallel()

	_, err := Apply(newStore(t), Tag("x", "y"), nil)
	require.ErrorIs(t, err, ErrMissingStore)
}

type brokenTable struct {
	*csvstore.Store
	restored string
}

func (b *brokenTable) Rewrite(func([]csvstore.Row) []csvstore.Row) (int, error) {
	if err := os.WriteFile(b.Path(), []byte("garbage"), 0o600); err != nil {
		return 0, err
	}
	return 0, errors.New("disk full")
}

func (b *brokenTable) Restore(path string) error {
	b.restored = path
	return b.Store.Restore(path)
}

func TestApplyRestoresOnFailure(t *testing.T) {
	t.Parallel()

	s := newStore(t, recipe.Record{Title: "Dal"})
	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	tbl := &brokenTable{Store: s}
	_, err = Apply(tbl, Tag("x", "y"), nil)
	require.ErrorContains(t, err, "disk full")
	assert.NotEmpty(t, tbl.restored)

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
