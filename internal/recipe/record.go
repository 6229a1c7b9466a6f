// Package recipe defines the record persisted by the harvester and the column layout of the
// tabular store.
package recipe

// Column names of the tabular store, in their fixed order.
const (
	ColumnImage               = "Image"
	ColumnTitle               = "Title"
	ColumnTime                = "Time"
	ColumnChefName            = "Chef Name"
	ColumnChefImage           = "Chef Image"
	ColumnDescription         = "Description"
	ColumnDietaryRequirements = "Dietary Requirements"
)

// NoDietaryRequirements is stored when a recipe carries no dietary tags.
const NoDietaryRequirements = "None"

// Columns returns the header row of the tabular store.
func Columns() []string {
	return []string{
		ColumnImage,
		ColumnTitle,
		ColumnTime,
		ColumnChefName,
		ColumnChefImage,
		ColumnDescription,
		ColumnDietaryRequirements,
	}
}

// Record is one recipe row. Title is the natural key.
type Record struct {
	Image               string `json:"image"`
	Title               string `json:"title"`
	Time                string `json:"time"`
	ChefName            string `json:"chef_name"`
	ChefImage           string `json:"chef_image"`
	Description         string `json:"description"`
	DietaryRequirements string `json:"dietary_requirements"`
}

// Values returns the record's cells in column order.
func (r Record) Values() []string {
	return []string{
		r.Image,
		r.Title,
		r.Time,
		r.ChefName,
		r.ChefImage,
		r.Description,
		r.DietaryRequirements,
	}
}

// Get returns the cell stored under column, or "" for unknown columns.
func (r Record) Get(column string) string {
	switch column {
	case ColumnImage:
		return r.Image
	case ColumnTitle:
		return r.Title
	case ColumnTime:
		return r.Time
	case ColumnChefName:
		return r.ChefName
	case ColumnChefImage:
		return r.ChefImage
	case ColumnDescription:
		return r.Description
	case ColumnDietaryRequirements:
		return r.DietaryRequirements
	default:
		return ""
	}
}

// Set assigns value to column. Unknown columns are ignored and report false.
func (r *Record) Set(column, value string) bool {
	switch column {
	case ColumnImage:
		r.Image = value
	case ColumnTitle:
		r.Title = value
	case ColumnTime:
		r.Time = value
	case ColumnChefName:
		r.ChefName = value
	case ColumnChefImage:
		r.ChefImage = value
	case ColumnDescription:
		r.Description = value
	case ColumnDietaryRequirements:
		r.DietaryRequirements = value
	default:
		return false
	}
	return true
}
