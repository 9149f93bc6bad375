package ctxdoc

import (
	"fmt"
	"regexp"
)

var placeholder = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Hydrate rewrites every {{expr}} occurrence in text using Resolve against
// doc. A missing path leaves the original "{{expr}}" text in place so
// partial hydration stays observable, per §4.1. Hydration is pure and
// deterministic given doc.
func Hydrate(text string, doc Document) string {
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		expr := placeholder.FindStringSubmatch(match)[1]
		key := trimSpace(expr)
		val, ok := Resolve(doc, key)
		if !ok || val == nil {
			return match
		}
		return stringify(val)
	})
}

// HydrateValue hydrates string fields of arbitrary node configuration
// values, leaving other JSON types (numbers, bools, nested maps/slices)
// untouched at this level — callers recurse into maps/slices themselves
// when a whole config tree needs hydration (see HydrateConfig).
func HydrateValue(v any, doc Document) any {
	if s, ok := v.(string); ok {
		return Hydrate(s, doc)
	}
	return v
}

// HydrateConfig recursively hydrates every string value found in a node
// config document (maps and slices), leaving non-string types untouched.
func HydrateConfig(cfg any, doc Document) any {
	switch t := cfg.(type) {
	case string:
		return Hydrate(t, doc)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = HydrateConfig(v, doc)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = HydrateConfig(v, doc)
		}
		return out
	default:
		return cfg
	}
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
