package imageurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultAvatar = "https://images.weserv.nl/?url=https://files.mob-cdn.co.uk/files/PROFILE-ICONS_BLACK-2.png?mtime=1702924115&w=640&h=640&fit=cover&q=75&output=jpg&sharp=1&af=&il="

func TestStripCrop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "single preset",
			in:   "https://files.mob-cdn.co.uk/recipes/2024/12/_1200x630_crop_center-center_82_none/foo.jpg",
			want: "https://files.mob-cdn.co.uk/recipes/2024/12/foo.jpg",
		},
		{
			name: "adjacent presets",
			in:   "/a/_10x10_crop_x/_20x20_crop_y/foo.jpg",
			want: "/a/foo.jpg",
		},
		{
			name: "no preset",
			in:   "https://files.mob-cdn.co.uk/recipes/foo.jpg",
			want: "https://files.mob-cdn.co.uk/recipes/foo.jpg",
		},
		{
			name: "non numeric size is kept",
			in:   "/a/_axb_crop_x/foo.jpg",
			want: "/a/_axb_crop_x/foo.jpg",
		},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StripCrop(tt.in))
		})
	}
}

func TestNormalizeWrapsRecognizedShapes(t *testing.T) {
	t.Parallel()

	n := New(Config{})
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "scheme relative",
			in:   "//cdn/x.jpg",
			want: "https://images.weserv.nl/?url=https://cdn/x.jpg&w=640&h=640&fit=cover&q=75",
		},
		{
			name: "host relative",
			in:   "/uploads/x.jpg",
			want: "https://images.weserv.nl/?url=https://www.mob.co.uk/uploads/x.jpg&w=640&h=640&fit=cover&q=75",
		},
		{
			name: "known cdn with crop",
			in:   "https://files.mob-cdn.co.uk/r/_1200x630_crop_center-center_82_none/foo.jpg",
			want: "https://images.weserv.nl/?url=https://files.mob-cdn.co.uk/r/foo.jpg&w=640&h=640&fit=cover&q=75",
		},
		{
			name: "embedded query separators are escaped",
			in:   "https://files.mob-cdn.co.uk/r/foo.jpg?a=1&b=2",
			want: "https://images.weserv.nl/?url=https://files.mob-cdn.co.uk/r/foo.jpg?a=1%26b=2&w=640&h=640&fit=cover&q=75",
		},
		{
			name: "unrecognized shape is untouched",
			in:   "https://example.com/foo.jpg",
			want: "https://example.com/foo.jpg",
		},
		{name: "empty", in: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, n.Normalize(tt.in, ModeScrape))
		})
	}
}

func TestNormalizeOverridesProxiedParameters(t *testing.T) {
	t.Parallel()

	n := New(Config{})
	got := n.Normalize("https://images.weserv.nl/?url=https://cdn/x.jpg&w=100&q=10&sharp=1", ModeScrape)
	assert.Equal(t, "https://images.weserv.nl/?url=https://cdn/x.jpg&w=640&q=75&sharp=1&h=640&fit=cover", got)

	assert.Equal(t, defaultAvatar, n.Normalize(defaultAvatar, ModeScrape))
}

func TestNormalizeCSVUpdateMode(t *testing.T) {
	t.Parallel()

	n := New(Config{})
	got := n.Normalize(defaultAvatar, ModeCSVUpdate)
	assert.Equal(t,
		"https://images.weserv.nl/?url=https://files.mob-cdn.co.uk/files/PROFILE-ICONS_BLACK-2.png?mtime=1702924115&w=640&h=640&fit=cover&q=75&output=webp&sharp=1&af=&il=",
		got,
	)

	wrapped := n.Normalize("//cdn/x.jpg", ModeCSVUpdate)
	assert.Equal(t, "https://images.weserv.nl/?url=https://cdn/x.jpg&w=640&h=640&fit=cover&q=75&output=webp&af=&il=", wrapped)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	n := New(Config{})
	inputs := []string{
		"//cdn/x.jpg",
		"/uploads/_300x300_crop_center/x.jpg",
		"https://files.mob-cdn.co.uk/r/foo.jpg?a=1&b=2+3",
		"https://images.weserv.nl/?url=https://cdn/x.jpg&w=100",
		"https://images.weserv.nl/",
		"https://example.com/foo.jpg",
		defaultAvatar,
		"",
	}
	for _, mode := range []Mode{ModeScrape, ModeCSVUpdate} {
		for _, in := range inputs {
			once := n.Normalize(in, mode)
			require.Equal(t, once, n.Normalize(once, mode), "input %q mode %d", in, mode)
		}
	}
}

func TestIsProxiedRequiresExactHost(t *testing.T) {
	t.Parallel()

	n := New(Config{ProxyHost: "img.example.net"})
	assert.True(t, n.IsProxied("https://img.example.net/?url=x"))
	assert.True(t, n.IsProxied("https://img.example.net"))
	assert.False(t, n.IsProxied("https://img.example.net.evil.org/?url=x"))
	assert.False(t, n.IsProxied("https://images.weserv.nl/?url=x"))
}
