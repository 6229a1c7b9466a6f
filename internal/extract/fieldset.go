package extract

import (
	"strings"

	"github.com/JakeFAU/recipe-harvester/internal/htmldoc"
	"github.com/JakeFAU/recipe-harvester/internal/jsonld"
	"github.com/JakeFAU/recipe-harvester/internal/recipe"
)

// Field names a first-match-wins output field. Values are the store column names.
type Field string

// Resolvable fields. Dietary requirements are a union, not a first match, and are tracked
// separately on FieldSet.
const (
	FieldTitle       Field = recipe.ColumnTitle
	FieldDescription Field = recipe.ColumnDescription
	FieldTime        Field = recipe.ColumnTime
	FieldChefName    Field = recipe.ColumnChefName
	FieldImage       Field = recipe.ColumnImage
	FieldChefImage   Field = recipe.ColumnChefImage
)

// Fields lists the first-match fields in resolution order.
func Fields() []Field {
	return []Field{FieldTitle, FieldDescription, FieldTime, FieldChefName, FieldImage, FieldChefImage}
}

// Page is a fetched page ready for resolution.
type Page struct {
	URL     string
	Doc     htmldoc.Node
	Objects []jsonld.Object
}

// Role tells the resolver which kind of page it is looking at.
type Role int

const (
	// RolePrimary is the recipe page itself.
	RolePrimary Role = iota
	// RoleChef is the chef's profile page, used only to fill chef fields.
	RoleChef
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleChef:
		return "chef"
	default:
		return "unknown"
	}
}

// FieldSet is the working state of one assembly: a partially filled record plus the
// source that filled each field.
type FieldSet struct {
	Record      recipe.Record
	DietaryTags []string
	ChefPath    string
	sources     map[Field]string
}

// NewFieldSet returns an empty FieldSet.
func NewFieldSet() *FieldSet {
	return &FieldSet{sources: make(map[Field]string)}
}

// Fill sets field to value if the field is still empty and value is not. It reports
// whether the field was set.
func (fs *FieldSet) Fill(field Field, value, source string) bool {
	value = strings.TrimSpace(value)
	if value == "" || fs.Filled(field) {
		return false
	}
	if !fs.Record.Set(string(field), value) {
		return false
	}
	fs.sources[field] = source
	return true
}

// Filled reports whether field already holds a value.
func (fs *FieldSet) Filled(field Field) bool {
	_, ok := fs.sources[field]
	return ok
}

// Value returns the current value of field.
func (fs *FieldSet) Value(field Field) string {
	return fs.Record.Get(string(field))
}

// Source returns the name of the source that filled field, or "".
func (fs *FieldSet) Source(field Field) string {
	return fs.sources[field]
}

// Missing lists the fields still empty, in resolution order.
func (fs *FieldSet) Missing() []Field {
	var out []Field
	for _, f := range Fields() {
		if !fs.Filled(f) {
			out = append(out, f)
		}
	}
	return out
}
