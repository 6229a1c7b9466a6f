package assemble

import (
	"strings"

	"github.com/JakeFAU/recipe-harvester/internal/imageurl"
)

// DefaultPlaceholders are the images the site serves before a recipe's own media loads.
func DefaultPlaceholders() []string {
	return []string{
		"https://files.mob-cdn.co.uk/files/PROFILE-ICONS_BLACK-2.png",
		DefaultChefImage,
	}
}

// PlaceholderPolicy rejects records whose image is a known placeholder while their
// description is empty. Either signal alone is accepted.
type PlaceholderPolicy struct {
	normalizer *imageurl.Normalizer
	sentinels  map[string]struct{}
}

// NewPlaceholderPolicy builds a policy for the given sentinel images. Sentinels are compared
// both as given and in normalized form.
func NewPlaceholderPolicy(normalizer *imageurl.Normalizer, sentinels ...string) PlaceholderPolicy {
	if normalizer == nil {
		normalizer = imageurl.New(imageurl.Config{})
	}
	set := make(map[string]struct{}, 2*len(sentinels))
	for _, s := range sentinels {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		set[s] = struct{}{}
		set[normalizer.Normalize(s, imageurl.ModeScrape)] = struct{}{}
	}
	return PlaceholderPolicy{normalizer: normalizer, sentinels: set}
}

// IsPlaceholder reports whether image is one of the sentinels.
func (p PlaceholderPolicy) IsPlaceholder(image string) bool {
	image = strings.TrimSpace(image)
	if image == "" || len(p.sentinels) == 0 {
		return false
	}
	if _, ok := p.sentinels[image]; ok {
		return true
	}
	_, ok := p.sentinels[p.normalizer.Normalize(image, imageurl.ModeScrape)]
	return ok
}

// Rejects reports whether a record with this image and description must be skipped.
func (p PlaceholderPolicy) Rejects(image, description string) bool {
	return strings.TrimSpace(description) == "" && p.IsPlaceholder(image)
}
