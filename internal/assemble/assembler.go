// Package assemble turns resolved page fields into a persistable recipe record. It runs
// the primary, chef and listing-card passes in that order, applies the chef defaults,
// gates incomplete records, and normalizes both image fields.
package assemble

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-harvester/internal/extract"
	"github.com/JakeFAU/recipe-harvester/internal/imageurl"
	"github.com/JakeFAU/recipe-harvester/internal/recipe"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultChefName  = "Mob"
	DefaultChefImage = "https://images.weserv.nl/?url=https://files.mob-cdn.co.uk/files/PROFILE-ICONS_BLACK-2.png?mtime=1702924115&w=640&h=640&fit=cover&q=75&output=jpg&sharp=1&af=&il="
)

var (
	// ErrIncomplete is returned when the title or the image is still empty after every pass.
	ErrIncomplete = errors.New("incomplete record")
	// ErrPlaceholder is returned when the page only carried a placeholder image and no
	// description, which means its content never rendered.
	ErrPlaceholder = errors.New("placeholder record")
)

// Config controls defaulting and gating.
type Config struct {
	BaseOrigin        string   `mapstructure:"base_origin"`
	DefaultChefName   string   `mapstructure:"default_chef_name"`
	DefaultChefImage  string   `mapstructure:"default_chef_image"`
	DefaultDietary    string   `mapstructure:"default_dietary"`
	PlaceholderImages []string `mapstructure:"placeholder_images"`
}

// Input is everything known about one recipe.
type Input struct {
	URL            string
	Primary        *extract.Page
	Chef           *extract.Page
	Card           *extract.Card
	DefaultDietary string
	// PrimaryFields is the result of ResolvePrimary for Primary. When set, Build continues
	// from it instead of resolving Primary again, and takes ownership of it.
	PrimaryFields *extract.FieldSet
}

// Result is an assembled record plus where each field came from.
type Result struct {
	Record recipe.Record
	// Sources maps each first-match field to the source that filled it.
	Sources map[extract.Field]string
	// Defaulted lists the fields filled from configured defaults.
	Defaulted []extract.Field
}

// Assembler builds records from pages.
type Assembler struct {
	resolver   *extract.Resolver
	normalizer *imageurl.Normalizer
	policy     PlaceholderPolicy
	cfg        Config
	logger     *zap.Logger
}

// New wires an Assembler. A nil normalizer uses the default proxy configuration.
func New(resolver *extract.Resolver, normalizer *imageurl.Normalizer, cfg Config, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = extract.NewResolver(extract.Selectors{}, logger)
	}
	if normalizer == nil {
		normalizer = imageurl.New(imageurl.Config{})
	}
	if cfg.BaseOrigin == "" {
		cfg.BaseOrigin = imageurl.DefaultBaseOrigin
	}
	if cfg.DefaultChefName == "" {
		cfg.DefaultChefName = DefaultChefName
	}
	if cfg.DefaultChefImage == "" {
		cfg.DefaultChefImage = DefaultChefImage
	}
	sentinels := cfg.PlaceholderImages
	if sentinels == nil {
		sentinels = DefaultPlaceholders()
	}
	return &Assembler{
		resolver:   resolver,
		normalizer: normalizer,
		policy:     NewPlaceholderPolicy(normalizer, sentinels...),
		cfg:        cfg,
		logger:     logger,
	}
}

// Assemble builds the record for in. It returns ErrIncomplete or ErrPlaceholder (wrapped)
// when the record must not be persisted.
func (a *Assembler) Assemble(in Input) (recipe.Record, error) {
	res, err := a.Build(in)
	if err != nil {
		return recipe.Record{}, err
	}
	return res.Record, nil
}

// Build is Assemble with provenance.
func (a *Assembler) Build(in Input) (Result, error) {
	fs := a.resolve(in)

	var defaulted []extract.Field
	if fs.Fill(extract.FieldChefName, a.cfg.DefaultChefName, "default") {
		defaulted = append(defaulted, extract.FieldChefName)
	}
	if fs.Fill(extract.FieldChefImage, a.cfg.DefaultChefImage, "default") {
		defaulted = append(defaulted, extract.FieldChefImage)
	}

	fallback := in.DefaultDietary
	if fallback == "" {
		fallback = a.cfg.DefaultDietary
	}
	fs.Record.DietaryRequirements = extract.DietaryLabel(fs.DietaryTags, fallback)

	rec := fs.Record
	var missing []string
	if rec.Title == "" {
		missing = append(missing, recipe.ColumnTitle)
	}
	if rec.Image == "" {
		missing = append(missing, recipe.ColumnImage)
	}
	if len(missing) > 0 {
		return Result{}, fmt.Errorf("%w: %s has no %s", ErrIncomplete, in.URL, strings.Join(missing, ", "))
	}
	if a.policy.Rejects(rec.Image, rec.Description) {
		return Result{}, fmt.Errorf("%w: %s", ErrPlaceholder, in.URL)
	}

	rec.Image = a.normalizer.Normalize(rec.Image, imageurl.ModeScrape)
	rec.ChefImage = a.normalizer.Normalize(rec.ChefImage, imageurl.ModeScrape)

	sources := make(map[extract.Field]string, len(extract.Fields()))
	for _, f := range extract.Fields() {
		if s := fs.Source(f); s != "" {
			sources[f] = s
		}
	}
	return Result{Record: rec, Sources: sources, Defaulted: defaulted}, nil
}

// ResolvePrimary runs the primary page pass. A nil page yields an empty field set.
func (a *Assembler) ResolvePrimary(primary *extract.Page) *extract.FieldSet {
	fs := extract.NewFieldSet()
	if primary != nil {
		a.resolver.ResolveInto(fs, *primary, extract.RolePrimary, "")
	}
	return fs
}

// ChefPageURL returns the absolute chef page URL to fetch for a recipe, or "" when no
// chef page is needed: the chef image is already resolved, or no chef path is known.
// primary is the result of ResolvePrimary and may be nil.
func (a *Assembler) ChefPageURL(primary *extract.FieldSet, card *extract.Card) string {
	path := ""
	if primary != nil {
		if primary.Filled(extract.FieldChefImage) {
			return ""
		}
		path = primary.ChefPath
	}
	if path == "" && card != nil {
		path = card.ChefPath
	}
	if path == "" {
		return ""
	}
	return extract.ResolveURL(a.cfg.BaseOrigin, path)
}

func (a *Assembler) resolve(in Input) *extract.FieldSet {
	fs := in.PrimaryFields
	if fs == nil {
		fs = a.ResolvePrimary(in.Primary)
	}
	knownChef := ""
	if in.Card != nil {
		knownChef = strings.TrimSpace(in.Card.ChefName)
	}
	if in.Chef != nil && len(fs.Missing()) > 0 {
		a.resolver.ResolveInto(fs, *in.Chef, extract.RoleChef, knownChef)
	}
	if in.Card != nil && len(fs.Missing()) > 0 {
		extract.FillFromCard(fs, *in.Card)
	}
	if missing := fs.Missing(); len(missing) > 0 {
		a.logger.Debug("fields left for defaults",
			zap.String("url", in.URL),
			zap.Int("missing", len(missing)),
		)
	}
	return fs
}
