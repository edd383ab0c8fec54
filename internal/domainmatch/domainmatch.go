// Package domainmatch validates whitelist entries, extracts hostnames from
// arbitrary URLs, and decides whether a page hostname is allowed.
//
// Matching is literal substring containment: a hostname is allowed when it
// contains any whitelist entry anywhere, with no label-boundary check. A
// hostname like "notgoogle.com" therefore matches the entry "google.com".
// This mirrors the shipped behavior and is preserved deliberately; see the
// open-questions section of DESIGN.md before tightening it.
package domainmatch

import (
	"net/url"
	"strings"
)

const (
	maxDomainLength = 253
	maxLabelLength  = 63
)

// CleanDomain normalizes a user-entered whitelist domain: trim, lowercase,
// strip an http/https scheme, drop everything after the first path, query, or
// fragment separator, and drop a trailing port. Returns false when the result
// is not a valid domain. Pure function.
func CleanDomain(input string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")

	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}

	if !validDomain(s) {
		return "", false
	}
	return s, true
}

// ExtractHostname pulls a lowercased hostname out of an arbitrary URL. Inputs
// with a scheme go through the URL parser; anything else, or a parse failure,
// falls back to the same stripping CleanDomain performs. Never panics;
// returns false on unrecoverable input.
func ExtractHostname(rawURL string) (string, bool) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", false
	}

	if strings.Contains(trimmed, "://") {
		if parsed, err := url.Parse(trimmed); err == nil {
			if host := strings.ToLower(parsed.Hostname()); host != "" {
				return host, true
			}
		}
	}

	return CleanDomain(trimmed)
}

// Whitelist is a set of cleaned domain entries, unique by exact string.
type Whitelist map[string]struct{}

// NewWhitelist builds a Whitelist from raw entries, cleaning each and
// silently dropping invalid ones.
func NewWhitelist(entries []string) Whitelist {
	w := make(Whitelist, len(entries))
	for _, entry := range entries {
		if cleaned, ok := CleanDomain(entry); ok {
			w[cleaned] = struct{}{}
		}
	}
	return w
}

// Entries returns the whitelist contents in unspecified order.
func (w Whitelist) Entries() []string {
	out := make([]string, 0, len(w))
	for entry := range w {
		out = append(out, entry)
	}
	return out
}

// IsAllowed reports whether the URL's hostname contains any whitelist entry
// as a substring. Extraction failure fails closed: an unknown host is not
// allowed. An empty whitelist allows nothing.
func IsAllowed(rawURL string, w Whitelist) bool {
	host, ok := ExtractHostname(rawURL)
	if !ok {
		return false
	}
	for entry := range w {
		if strings.Contains(host, entry) {
			return true
		}
	}
	return false
}

// validDomain enforces the whitelist entry format: non-empty, at most 253
// characters, at least one dot, no leading/trailing/double dot, labels of
// 1-63 characters with no hyphen at either edge. Bare names like "localhost"
// are rejected here; those are handled by the exemption rules, not the
// whitelist.
func validDomain(s string) bool {
	if s == "" || len(s) > maxDomainLength {
		return false
	}
	if !strings.Contains(s, ".") {
		return false
	}
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") || strings.Contains(s, "..") {
		return false
	}

	for _, label := range strings.Split(s, ".") {
		if len(label) == 0 || len(label) > maxLabelLength {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
	}
	return true
}
