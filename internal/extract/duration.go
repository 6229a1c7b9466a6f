package extract

import (
	"regexp"
	"strings"
)

var (
	heroDuration = regexp.MustCompile(`\d+\s*hr(?:\s*\d+\s*mins?)?|\d+\s*mins?`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// MatchDuration extracts the first "N hr [M mins]" or "N mins" run from text, or "".
func MatchDuration(text string) string {
	return heroDuration.FindString(text)
}

// CleanTime tidies listing-card time text, where the label is glued to the number
// ("25 minscook").
func CleanTime(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "minscook", "mins")
	text = strings.ReplaceAll(text, "hrcook", "hr")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}
