// Package imageurl rewrites recipe image URLs so they are served through the resizing proxy.
package imageurl

import (
	"regexp"
	"strings"
)

// Mode selects which proxy parameters are forced.
type Mode int

const (
	// ModeScrape applies the sizing parameters used while scraping.
	ModeScrape Mode = iota
	// ModeCSVUpdate additionally forces WebP output with auto-format and interlacing.
	ModeCSVUpdate
)

// Defaults used when Config leaves a field empty.
const (
	DefaultProxyHost  = "images.weserv.nl"
	DefaultBaseOrigin = "https://www.mob.co.uk"
	DefaultCDNHost    = "mob-cdn.co.uk"
)

var cropSegment = regexp.MustCompile(`/_[0-9]+x[0-9]+_crop_[^/]+/`)

type param struct {
	key   string
	value string
}

var sizingParams = []param{
	{"w", "640"},
	{"h", "640"},
	{"fit", "cover"},
	{"q", "75"},
}

var csvUpdateParams = []param{
	{"output", "webp"},
	{"af", ""},
	{"il", ""},
}

// Config controls the hosts the normalizer recognizes.
type Config struct {
	ProxyHost  string `mapstructure:"proxy_host"`
	BaseOrigin string `mapstructure:"base_origin"`
	CDNHost    string `mapstructure:"cdn_host"`
}

// Normalizer strips CDN crop presets and wraps image URLs in the proxy.
type Normalizer struct {
	proxyPrefix string
	baseOrigin  string
	cdnHost     string
}

// New builds a Normalizer, filling empty config fields with the defaults.
func New(cfg Config) *Normalizer {
	proxy := strings.TrimSpace(cfg.ProxyHost)
	if proxy == "" {
		proxy = DefaultProxyHost
	}
	origin := strings.TrimRight(strings.TrimSpace(cfg.BaseOrigin), "/")
	if origin == "" {
		origin = DefaultBaseOrigin
	}
	cdn := strings.TrimSpace(cfg.CDNHost)
	if cdn == "" {
		cdn = DefaultCDNHost
	}
	return &Normalizer{
		proxyPrefix: "https://" + proxy,
		baseOrigin:  origin,
		cdnHost:     cdn,
	}
}

// StripCrop removes every /_<w>x<h>_crop_<descriptor>/ path segment.
func StripCrop(raw string) string {
	// Adjacent segments share a slash, so one pass can leave a match behind.
	for cropSegment.MatchString(raw) {
		raw = cropSegment.ReplaceAllString(raw, "/")
	}
	return raw
}

// Normalize returns the proxied form of raw. URLs of an unrecognized shape are returned
// unchanged. Normalize is idempotent for a given mode.
func (n *Normalizer) Normalize(raw string, mode Mode) string {
	u := StripCrop(strings.TrimSpace(raw))
	if u == "" {
		return ""
	}
	if n.IsProxied(u) {
		return n.reparameterize(u, mode)
	}

	var original string
	switch {
	case strings.HasPrefix(u, "//"):
		original = "https:" + u
	case strings.HasPrefix(u, "/"):
		original = n.baseOrigin + u
	case strings.Contains(u, n.cdnHost):
		original = u
	default:
		return u
	}

	pairs := make([]string, 0, 1+len(sizingParams)+len(csvUpdateParams))
	pairs = append(pairs, "url="+escapeEmbedded(original))
	for _, p := range forced(mode) {
		pairs = append(pairs, p.key+"="+p.value)
	}
	return n.proxyPrefix + "/?" + strings.Join(pairs, "&")
}

// IsProxied reports whether u already targets the image proxy.
func (n *Normalizer) IsProxied(u string) bool {
	if !strings.HasPrefix(u, n.proxyPrefix) {
		return false
	}
	rest := u[len(n.proxyPrefix):]
	return rest == "" || rest[0] == '/' || rest[0] == '?'
}

// reparameterize overwrites the forced keys of an already proxied URL. Other keys keep
// their position and raw encoding; forced keys that are missing are appended.
func (n *Normalizer) reparameterize(u string, mode Mode) string {
	base, rawQuery, _ := strings.Cut(u, "?")
	rawQuery, fragment, hasFragment := strings.Cut(rawQuery, "#")

	want := forced(mode)
	index := make(map[string]int, len(want))
	for i, p := range want {
		index[p.key] = i
	}
	written := make([]bool, len(want))

	var pairs []string
	if rawQuery != "" {
		for _, pair := range strings.Split(rawQuery, "&") {
			if pair == "" {
				continue
			}
			key, _, _ := strings.Cut(pair, "=")
			i, ok := index[key]
			if !ok {
				pairs = append(pairs, pair)
				continue
			}
			if written[i] {
				continue
			}
			written[i] = true
			pairs = append(pairs, key+"="+want[i].value)
		}
	}
	for i, p := range want {
		if !written[i] {
			pairs = append(pairs, p.key+"="+p.value)
		}
	}

	out := base + "?" + strings.Join(pairs, "&")
	if hasFragment {
		out += "#" + fragment
	}
	return out
}

func forced(mode Mode) []param {
	if mode == ModeCSVUpdate {
		out := make([]param, 0, len(sizingParams)+len(csvUpdateParams))
		out = append(out, sizingParams...)
		return append(out, csvUpdateParams...)
	}
	return sizingParams
}

var embeddedEscaper = strings.NewReplacer(
	"&", "%26",
	"#", "%23",
	"+", "%2B",
	";", "%3B",
	" ", "%20",
)

// escapeEmbedded escapes only the characters that would split or truncate the proxy query.
func escapeEmbedded(s string) string {
	return embeddedEscaper.Replace(s)
}
