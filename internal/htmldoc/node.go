// Package htmldoc adapts goquery selections to the small document interface the field
// resolver consumes.
package htmldoc

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is a parsed element (or document). Lookups on a missing element yield an empty Node
// instead of failing, so resolvers can fall through without checks at every step.
type Node interface {
	// Find returns the first descendant matching the CSS selector.
	Find(selector string) Node
	// FindAll returns every descendant matching the CSS selector.
	FindAll(selector string) []Node
	// Text returns the element text with runs of whitespace collapsed.
	Text() string
	// RawText returns the unmodified text content.
	RawText() string
	// Attr returns the trimmed attribute value, or "" when absent.
	Attr(name string) string
	// Exists reports whether the node matched anything.
	Exists() bool
}

type selection struct {
	sel *goquery.Selection
}

// Parse reads an HTML document.
func Parse(r io.Reader) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return selection{sel: doc.Selection}, nil
}

// ParseString reads an HTML document held in memory.
func ParseString(html string) (Node, error) {
	return Parse(strings.NewReader(html))
}

func (s selection) Find(selector string) Node {
	if !s.Exists() {
		return s
	}
	return selection{sel: s.sel.Find(selector).First()}
}

func (s selection) FindAll(selector string) []Node {
	if !s.Exists() {
		return nil
	}
	found := s.sel.Find(selector)
	out := make([]Node, 0, found.Length())
	found.Each(func(_ int, item *goquery.Selection) {
		out = append(out, selection{sel: item})
	})
	return out
}

func (s selection) Text() string {
	return normSpace(s.RawText())
}

func (s selection) RawText() string {
	if !s.Exists() {
		return ""
	}
	return s.sel.Text()
}

func (s selection) Attr(name string) string {
	if !s.Exists() {
		return ""
	}
	v, ok := s.sel.Attr(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func (s selection) Exists() bool {
	return s.sel != nil && s.sel.Length() > 0
}

// Empty returns a Node that matches nothing.
func Empty() Node {
	return selection{}
}

// ScriptBlocks returns the raw bodies of every application/ld+json script in n.
func ScriptBlocks(n Node) []string {
	if n == nil {
		return nil
	}
	scripts := n.FindAll(`script[type="application/ld+json"]`)
	out := make([]string, 0, len(scripts))
	for _, s := range scripts {
		out = append(out, s.RawText())
	}
	return out
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
