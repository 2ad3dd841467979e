package scraper

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/ranking"
)

// Site params come from YAML or JSON, so numbers may arrive as int or
// float64 and flags as bool or string.

func paramString(params map[string]any, key, def string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return def
	}
	return formatParam(v)
}

func paramInt(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

func paramBool(params map[string]any, key string, def bool) bool {
	v, ok := params[key]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	}
	return def
}

func formatParam(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// effectiveSort returns the strategy a site should request upstream.
func effectiveSort(site models.SiteConfig) models.SortStrategy {
	if site.SortType == "" {
		return models.SortDefault
	}
	return site.SortType
}

// applySort merges the upstream fragment for the site's strategy into q.
func applySort(q url.Values, supported map[models.SortStrategy]string, site models.SiteConfig) {
	fragment, ok := ranking.UpstreamParam(supported, effectiveSort(site))
	if !ok {
		return
	}
	extra, err := url.ParseQuery(fragment)
	if err != nil {
		return
	}
	for k, vs := range extra {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
}

// siteURL returns the base or search URL for a site, honouring overrides in
// params.
func siteURL(site models.SiteConfig, key, def string) string {
	return strings.TrimRight(paramString(site.Params, key, def), "/")
}

// queryParam maps a site param to its upstream query-string name.
type queryParam struct {
	key  string
	name string
	def  any
}

// buildQuery renders spec against params, falling back to each default.
// A nil default with no configured value omits the parameter.
func buildQuery(params map[string]any, spec []queryParam) url.Values {
	q := url.Values{}
	for _, p := range spec {
		v, ok := params[p.key]
		if !ok || v == nil {
			v = p.def
		}
		if v == nil {
			continue
		}
		q.Set(p.name, formatParam(v))
	}
	return q
}

// withQuery merges q into the query string of rawURL.
func withQuery(rawURL string, q url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid search URL %q: %w", rawURL, err)
	}
	merged := u.Query()
	for k, vs := range q {
		merged[k] = vs
	}
	u.RawQuery = merged.Encode()
	return u.String(), nil
}

// origin returns the scheme and host of rawURL, used to resolve relative
// links found in a payload.
func origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// lastPathSegment returns the final non-empty path element of rawURL.
func lastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	return parts[len(parts)-1]
}
