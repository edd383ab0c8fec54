package blocker

import (
	"strings"

	"github.com/tomatomonkey/tomatomonkey/internal/domainmatch"
)

// URLs matching these rules are never blocked, regardless of timer or
// whitelist state. Bare names like localhost belong here, not in the
// whitelist, which rejects dot-less entries.
var exemptPrefixes = []string{
	"about:",
	"chrome:",
	"chrome-extension:",
	"moz-extension:",
	"edge:",
	"file:",
	"data:",
	"javascript:",
	"blob:",
	"view-source:",
}

var exemptHostFragments = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
}

// IsExempt reports whether a URL is covered by the static exemption rules.
// Exemption always wins over the whitelist decision.
func IsExempt(rawURL string) bool {
	s := strings.ToLower(strings.TrimSpace(rawURL))
	if s == "" {
		return false
	}

	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	// Prefer the parsed hostname; fall back to the raw string for inputs the
	// extractor cannot handle (e.g. "localhost:3000" without a scheme).
	target := s
	if host, ok := domainmatch.ExtractHostname(s); ok {
		target = host
	}
	for _, fragment := range exemptHostFragments {
		if strings.Contains(target, fragment) {
			return true
		}
	}
	return false
}
