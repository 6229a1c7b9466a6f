// Package jsonld turns embedded application/ld+json blocks into schema.org objects.
package jsonld

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Schema.org types the harvester cares about.
const (
	TypeRecipe = "Recipe"
	TypePerson = "Person"
)

// Object is one embedded structured-data object.
type Object struct {
	Type  string
	Attrs map[string]any
}

// Is reports whether the object carries the given type.
func (o Object) Is(typ string) bool {
	return o.Type == typ
}

// String returns a scalar attribute as text.
func (o Object) String(key string) string {
	return scalar(o.Attrs[key])
}

// Image resolves an image attribute given as a string, as {"url": ...}, or as a list whose
// first element is either of those.
func (o Object) Image(key string) string {
	return imageValue(o.Attrs[key])
}

// Strings returns an attribute given as a string or a list of strings.
func (o Object) Strings(key string) []string {
	switch v := o.Attrs[key].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := scalar(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Nested returns a child object, or an empty object when key is absent or not an object.
func (o Object) Nested(key string) Object {
	m, ok := o.Attrs[key].(map[string]any)
	if !ok {
		return Object{Attrs: map[string]any{}}
	}
	return newObject(m)
}

func imageValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]any:
		return strings.TrimSpace(scalar(val["url"]))
	case []any:
		if len(val) == 0 {
			return ""
		}
		return imageValue(val[0])
	default:
		return ""
	}
}

func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func newObject(m map[string]any) Object {
	return Object{Type: typeOf(m["@type"]), Attrs: m}
}

// typeOf reads @type, which may be a string or a list; the first known type wins.
func typeOf(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		first := ""
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s == TypeRecipe || s == TypePerson {
				return s
			}
			if first == "" {
				first = s
			}
		}
		return first
	default:
		return ""
	}
}

// Extract parses each block and flattens top-level arrays and @graph containers. Blocks
// that fail to parse are reported to onError and skipped.
func Extract(blocks []string, onError func(error)) []Object {
	var out []Object
	for i, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		var raw any
		if err := json.Unmarshal([]byte(block), &raw); err != nil {
			if onError != nil {
				onError(fmt.Errorf("decode json-ld block %d: %w", i, err))
			}
			continue
		}
		out = flatten(out, raw)
	}
	return out
}

func flatten(out []Object, v any) []Object {
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			out = flatten(out, item)
		}
	case map[string]any:
		if graph, ok := val["@graph"].([]any); ok {
			for _, item := range graph {
				out = flatten(out, item)
			}
			if _, typed := val["@type"]; !typed {
				return out
			}
		}
		out = append(out, newObject(val))
	}
	return out
}
