package util

import (
	"net/url"
	"strings"
)

// AbsoluteURL resolves ref against base. Protocol-relative references get
// https. An empty ref yields an empty string.
func AbsoluteURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refURL.IsAbs() {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// NormalizeURL strips tracking parameters and a trailing slash from rawURL.
func NormalizeURL(rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, err
	}
	if parsedURL.Scheme == "http" {
		parsedURL.Scheme = "https"
	}
	if len(parsedURL.Path) > 1 && strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path = parsedURL.Path[:len(parsedURL.Path)-1]
		// Clear RawPath so String() regenerates the path without the trailing slash
		parsedURL.RawPath = ""
	}
	queryParams := parsedURL.Query()
	trackingParams := []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fromSearchResults", "search_identifier"}
	for _, param := range trackingParams {
		queryParams.Del(param)
	}
	parsedURL.RawQuery = queryParams.Encode()
	return parsedURL.String(), nil
}

// IsImageURL reports whether src looks like a real listing photo rather than
// a placeholder or icon.
func IsImageURL(src string) bool {
	lower := strings.ToLower(src)
	if lower == "" || strings.HasPrefix(lower, "data:") {
		return false
	}
	return !strings.HasSuffix(lower, ".svg") && !strings.Contains(lower, "placeholder")
}
