// Package urlx validates request URLs and resolves image URLs extracted
// from rendered pages against their base page URL.
package urlx

import (
	"net/url"
	"strings"

	"github.com/use-agent/glimpse/models"
)

// Normalize trims and validates a request URL, returning its canonical
// absolute form. Only http and https URLs are accepted.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", models.NewExtractError(models.ErrCodeInvalidInput, models.MsgURLRequired, nil)
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return "", models.NewExtractError(models.ErrCodeInvalidInput, models.MsgInvalidURLFormat, nil)
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return "", models.NewExtractError(models.ErrCodeInvalidInput, models.MsgInvalidURLFormat, err)
	}
	return u.String(), nil
}

// ResolveImageURL turns a raw image reference into an absolute URL.
//
//   - query string and fragment are stripped from raw;
//   - absolute http(s) URLs are kept as-is;
//   - protocol-relative URLs ("//host/p") are prefixed with "https:";
//   - host-relative URLs ("/p") are prefixed with the base's scheme+host;
//   - everything else resolves against the base URL's directory.
//
// Empty input yields "" (the candidate is dropped, not an error).
func ResolveImageURL(raw, base string) string {
	raw = stripQueryFragment(raw)
	if raw == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return schemeAndHost(base) + raw
	default:
		return directoryOf(base) + raw
	}
}

// CleanImageURLs de-duplicates resolved image URLs preserving first-seen
// order, optionally keeping only HTTPS URLs. Empty entries are dropped.
func CleanImageURLs(urls []string, httpsOnly bool) []string {
	cleaned := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if httpsOnly && !strings.HasPrefix(u, "https://") {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		cleaned = append(cleaned, u)
	}
	return cleaned
}

// stripQueryFragment drops everything after the first '?' or '#'.
func stripQueryFragment(s string) string {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	return s
}

// schemeAndHost returns the first three '/'-delimited segments of an
// absolute URL, e.g. "https://example.com/a/b" -> "https://example.com".
func schemeAndHost(base string) string {
	parts := strings.SplitN(base, "/", 4)
	if len(parts) < 3 {
		return strings.TrimSuffix(base, "/")
	}
	return strings.Join(parts[:3], "/")
}

// directoryOf returns the base URL up to and including the slash that
// terminates its directory. A base with no path beyond the host resolves
// to the host root.
func directoryOf(base string) string {
	base = stripQueryFragment(base)
	host := schemeAndHost(base)
	if i := strings.LastIndexByte(base, '/'); i >= len(host) {
		return base[:i+1]
	}
	return host + "/"
}
