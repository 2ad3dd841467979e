package scraper

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// embeddedJSON decodes every JSON blob a Next.js style page ships in its
// script tags. Blobs that fail to decode are skipped.
func embeddedJSON(doc *goquery.Document) []any {
	var out []any
	doc.Find(`script#__NEXT_DATA__, script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err == nil {
			out = append(out, v)
		}
	})
	return out
}

// dig walks nested objects along path, returning nil on any miss.
func dig(v any, path ...string) any {
	for _, key := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

// firstList returns the first non-empty array found at any of paths.
func firstList(v any, paths ...[]string) []any {
	for _, p := range paths {
		if list, ok := dig(v, p...).([]any); ok && len(list) > 0 {
			return list
		}
	}
	return nil
}

func jsonString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func jsonInt(v any) *int {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			n := int(i)
			return &n
		}
		if f, err := t.Float64(); err == nil {
			n := int(f)
			return &n
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return &i
		}
	}
	return nil
}
