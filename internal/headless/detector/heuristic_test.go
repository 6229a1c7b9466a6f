package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicShouldPromote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want bool
	}{
		{"empty body", "  \n", true},
		{"next shell without heading", `<div id="__next"></div>`, true},
		{"next page with rendered hero", `<div id="__next"><H1 class="RecipeHero__heading">Dal</H1></div>`, false},
		{"script heavy stub", `<html><script>var a=1;</script><p>t</p></html>`, true},
		{"plain page", `<html><body><p>` + strings.Repeat("text ", 50) + `</p></body></html>`, false},
		{"unclosed script", `<p>x</p><script src="a.js"`, true},
	}
	h := NewHeuristic(1000)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, h.ShouldPromote([]byte(tc.body)))
		})
	}
}

func TestNewHeuristicDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultThreshold, NewHeuristic(0).BodyLengthThreshold)
	assert.Equal(t, DefaultThreshold, NewHeuristic(-5).BodyLengthThreshold)
	assert.Equal(t, 10, NewHeuristic(10).BodyLengthThreshold)
}
