// Package urlutil provides small URL helpers shared by the probes.
package urlutil

import (
	"net/url"
	"strings"
)

// Scheme returns the lowercased scheme of rawURL, or "" when it cannot be parsed.
func Scheme(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Scheme)
}

// IsHTTPScheme returns true if the URL has an http or https scheme.
// Returns false for empty strings, non-HTTP schemes, or unparseable URLs.
func IsHTTPScheme(rawURL string) bool {
	scheme := Scheme(rawURL)
	return scheme == "http" || scheme == "https"
}

// Redact replaces any password in rawURL with "xxxxx" so camera URLs with
// embedded credentials can be logged. Unparseable input is returned as-is.
func Redact(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Redacted()
}
