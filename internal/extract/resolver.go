package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-harvester/internal/htmldoc"
	"github.com/JakeFAU/recipe-harvester/internal/jsonld"
)

// Scope is what a source sees: the page under resolution and the fields resolved so far.
type Scope struct {
	Page      Page
	Fields    *FieldSet
	KnownChef string
	Selectors Selectors
}

// Doc returns the page document, never nil.
func (s Scope) Doc() htmldoc.Node {
	if s.Page.Doc == nil {
		return htmldoc.Empty()
	}
	return s.Page.Doc
}

// Hero returns the recipe hero region.
func (s Scope) Hero() htmldoc.Node {
	return s.Doc().Find(s.Selectors.Hero)
}

// ChefName is the chef identity already known for this assembly.
func (s Scope) ChefName() string {
	if s.Fields != nil && s.Fields.Record.ChefName != "" {
		return s.Fields.Record.ChefName
	}
	return s.KnownChef
}

// Source is one candidate for a field.
type Source struct {
	Name    string
	Resolve func(Scope) string
}

// Chain is the ordered list of sources for one field.
type Chain struct {
	Field   Field
	Sources []Source
}

// Resolver fills FieldSets from pages.
type Resolver struct {
	selectors Selectors
	chains    map[Role][]Chain
	logger    *zap.Logger
}

// NewResolver builds a Resolver; empty selectors fall back to DefaultSelectors.
func NewResolver(selectors Selectors, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		selectors: selectors.WithDefaults(),
		chains: map[Role][]Chain{
			RolePrimary: primaryChains(),
			RoleChef:    chefChains(),
		},
		logger: logger,
	}
}

// Selectors returns the selectors in use.
func (r *Resolver) Selectors() Selectors {
	return r.selectors
}

// Chains returns a copy of the chains applied for role.
func (r *Resolver) Chains(role Role) []Chain {
	src := r.chains[role]
	out := make([]Chain, len(src))
	for i, c := range src {
		out[i] = Chain{Field: c.Field, Sources: append([]Source(nil), c.Sources...)}
	}
	return out
}

// Resolve runs the chains for role against page and returns a new FieldSet. knownChef is
// the chef name established elsewhere, if any; it restricts which Person objects count.
func (r *Resolver) Resolve(page Page, role Role, knownChef string) *FieldSet {
	fs := NewFieldSet()
	r.ResolveInto(fs, page, role, knownChef)
	return fs
}

// ResolveInto continues filling fs from page. Fields already filled are left untouched.
func (r *Resolver) ResolveInto(fs *FieldSet, page Page, role Role, knownChef string) {
	scope := Scope{Page: page, Fields: fs, KnownChef: knownChef, Selectors: r.selectors}
	for _, chain := range r.chains[role] {
		if fs.Filled(chain.Field) {
			continue
		}
		for _, src := range chain.Sources {
			if fs.Fill(chain.Field, src.Resolve(scope), src.Name) {
				break
			}
		}
	}

	if role == RolePrimary {
		fs.DietaryTags = append(fs.DietaryTags, DietaryTags(page.Objects)...)
		if fs.ChefPath == "" {
			fs.ChefPath = scope.Hero().Find(r.selectors.ChefLink).Attr("href")
		}
	}

	if missing := fs.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, f := range missing {
			names[i] = string(f)
		}
		r.logger.Debug("fields unresolved after pass",
			zap.String("url", page.URL),
			zap.String("role", role.String()),
			zap.Strings("fields", names),
		)
	}
}

func primaryChains() []Chain {
	return []Chain{
		{Field: FieldTitle, Sources: []Source{
			{Name: "hero-heading", Resolve: heroHeading},
			{Name: "recipe-name", Resolve: recipeString("name")},
		}},
		{Field: FieldDescription, Sources: []Source{
			{Name: "hero-description", Resolve: heroDescription},
			{Name: "recipe-description", Resolve: recipeString("description")},
			{Name: "recipe-about", Resolve: recipeString("about")},
			{Name: "recipe-article-body", Resolve: recipeString("articleBody")},
			{Name: "secondary-description", Resolve: secondaryDescription},
		}},
		{Field: FieldTime, Sources: []Source{
			{Name: "hero-meta", Resolve: heroTime},
		}},
		{Field: FieldChefName, Sources: []Source{
			{Name: "hero-chef", Resolve: heroChefName},
			{Name: "person-name", Resolve: personName},
		}},
		{Field: FieldImage, Sources: []Source{
			{Name: "hero-media", Resolve: heroImage},
			{Name: "recipe-image", Resolve: recipeImage},
			{Name: "og-image", Resolve: ogImage},
		}},
		{Field: FieldChefImage, Sources: []Source{
			{Name: "hero-chef-avatar", Resolve: heroChefAvatar},
			{Name: "person-image", Resolve: personImage},
		}},
	}
}

func chefChains() []Chain {
	return []Chain{
		{Field: FieldChefName, Sources: []Source{
			{Name: "chef-person-name", Resolve: personName},
		}},
		{Field: FieldChefImage, Sources: []Source{
			{Name: "chef-og-image", Resolve: ogImage},
			{Name: "chef-person-image", Resolve: personImage},
		}},
	}
}

func heroHeading(s Scope) string {
	return s.Hero().Find(s.Selectors.HeroHeading).Text()
}

func heroDescription(s Scope) string {
	return s.Hero().Find(s.Selectors.HeroDescription).Find(s.Selectors.HeroDescriptionInner).Text()
}

func secondaryDescription(s Scope) string {
	return s.Doc().Find(s.Selectors.SecondaryDescription).Text()
}

func heroTime(s Scope) string {
	for _, div := range s.Hero().Find(s.Selectors.HeroMeta).FindAll("div") {
		if t := MatchDuration(div.Text()); t != "" {
			return t
		}
	}
	return ""
}

func heroChefName(s Scope) string {
	return s.Hero().Find(s.Selectors.ChefLink).Find(s.Selectors.ChefLinkName).Text()
}

func heroChefAvatar(s Scope) string {
	return s.Hero().Find(s.Selectors.ChefLink).Find("img").Attr("src")
}

func heroImage(s Scope) string {
	return s.Hero().Find(s.Selectors.HeroMedia).Find("img").Attr("src")
}

func ogImage(s Scope) string {
	return s.Doc().Find(s.Selectors.OGImage).Attr("content")
}

func recipeString(key string) func(Scope) string {
	return func(s Scope) string {
		return firstOf(s.Page.Objects, jsonld.TypeRecipe, func(o jsonld.Object) string {
			return strings.TrimSpace(o.String(key))
		})
	}
}

func recipeImage(s Scope) string {
	return firstOf(s.Page.Objects, jsonld.TypeRecipe, func(o jsonld.Object) string {
		return o.Image("image")
	})
}

func personName(s Scope) string {
	return firstOf(eligiblePeople(s), jsonld.TypePerson, func(o jsonld.Object) string {
		return strings.TrimSpace(o.String("name"))
	})
}

func personImage(s Scope) string {
	return firstOf(eligiblePeople(s), jsonld.TypePerson, func(o jsonld.Object) string {
		return o.Image("image")
	})
}

// eligiblePeople keeps the Person objects that may describe the recipe's chef: all of them
// while no chef name is known, otherwise only those whose name matches it.
func eligiblePeople(s Scope) []jsonld.Object {
	known := s.ChefName()
	var out []jsonld.Object
	for _, o := range s.Page.Objects {
		if !o.Is(jsonld.TypePerson) {
			continue
		}
		if known == "" || strings.TrimSpace(o.String("name")) == known {
			out = append(out, o)
		}
	}
	return out
}

func firstOf(objects []jsonld.Object, typ string, get func(jsonld.Object) string) string {
	for _, o := range objects {
		if !o.Is(typ) {
			continue
		}
		if v := get(o); v != "" {
			return v
		}
	}
	return ""
}
