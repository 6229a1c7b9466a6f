package extract

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/JakeFAU/recipe-harvester/internal/jsonld"
	"github.com/JakeFAU/recipe-harvester/internal/recipe"
)

var schemaPrefixes = []string{"https://schema.org/", "http://schema.org/"}

// DietaryTags collects the raw dietary tags of every Recipe object: recipeCategory,
// comma separated keywords, and suitableForDiet (top level or under nutrition).
func DietaryTags(objects []jsonld.Object) []string {
	var tags []string
	for _, o := range objects {
		if !o.Is(jsonld.TypeRecipe) {
			continue
		}
		tags = append(tags, o.Strings("recipeCategory")...)
		for _, kw := range o.Strings("keywords") {
			tags = append(tags, strings.Split(kw, ",")...)
		}
		for _, diet := range append(o.Strings("suitableForDiet"), o.Nested("nutrition").Strings("suitableForDiet")...) {
			tags = append(tags, dietName(diet))
		}
	}
	return tags
}

// dietName reduces a schema.org diet IRI such as https://schema.org/VeganDiet to its name.
func dietName(v string) string {
	v = strings.TrimSpace(v)
	for _, p := range schemaPrefixes {
		if strings.HasPrefix(v, p) {
			return strings.TrimPrefix(v, p)
		}
	}
	return v
}

// DietaryLabel trims, de-duplicates and sorts tags, joining them with ", ". Tags differing
// only in case are distinct, so the label depends on the tag multiset and not its order.
// An empty result yields defaultCategory when one is given, otherwise
// recipe.NoDietaryRequirements.
func DietaryLabel(tags []string, defaultCategory string) string {
	cleaned := lo.Filter(lo.Map(tags, func(t string, _ int) string {
		return strings.TrimSpace(t)
	}), func(t string, _ int) bool {
		return t != ""
	})
	unique := lo.Uniq(cleaned)
	if len(unique) == 0 {
		if defaultCategory != "" {
			return defaultCategory
		}
		return recipe.NoDietaryRequirements
	}
	sort.Strings(unique)
	return strings.Join(unique, ", ")
}
