package snapshot

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are stripped during canonicalization.
var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "ref"}

// Canonicalize normalizes a URL so the same article always maps to the same
// evidence source: https scheme, lowercased host, tracking params removed,
// trailing slash dropped. Idempotent.
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url has no host: %q", raw)
	}

	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for _, param := range trackingParams {
			q.Del(param)
		}
		u.RawQuery = q.Encode()
	}

	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String(), nil
}

// Domain extracts the lowercased host (without port) from a canonical URL.
func Domain(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
