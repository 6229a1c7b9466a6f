// Package hosts restricts fetching to the recipe site's own hostnames.
package hosts

import (
	"net/url"
	"strings"
)

// Policy allows http(s) URLs whose hostname is in the allow list. A hostname matches itself
// and its "www." form in either direction.
type Policy struct {
	allowed map[string]struct{}
}

// New builds a Policy from hostnames or origins such as "https://www.mob.co.uk".
func New(hosts ...string) *Policy {
	p := &Policy{allowed: make(map[string]struct{}, len(hosts)*2)}
	for _, h := range hosts {
		name := hostname(h)
		if name == "" {
			continue
		}
		p.allowed[name] = struct{}{}
		if bare, ok := strings.CutPrefix(name, "www."); ok {
			p.allowed[bare] = struct{}{}
		} else {
			p.allowed["www."+name] = struct{}{}
		}
	}
	return p
}

// AllowFetch reports whether rawURL may be requested. An empty policy allows everything.
func (p *Policy) AllowFetch(rawURL string) bool {
	if p == nil || len(p.allowed) == 0 {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	_, ok := p.allowed[strings.ToLower(u.Hostname())]
	return ok
}

func hostname(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
