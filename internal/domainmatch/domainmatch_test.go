package domainmatch

import (
	"strings"
	"testing"
)

func TestCleanDomain(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "Plain domain", input: "google.com", want: "google.com", wantOK: true},
		{name: "Uppercase", input: "GOOGLE.COM", want: "google.com", wantOK: true},
		{name: "Whitespace", input: "  google.com  ", want: "google.com", wantOK: true},
		{name: "HTTP prefix", input: "http://google.com", want: "google.com", wantOK: true},
		{name: "HTTPS prefix", input: "https://google.com", want: "google.com", wantOK: true},
		{name: "Path stripped", input: "google.com/search?q=x", want: "google.com", wantOK: true},
		{name: "Fragment stripped", input: "google.com#top", want: "google.com", wantOK: true},
		{name: "Port stripped", input: "google.com:8080", want: "google.com", wantOK: true},
		{name: "Subdomain kept", input: "mail.google.com", want: "mail.google.com", wantOK: true},
		{name: "Empty", input: "", wantOK: false},
		{name: "No dot", input: "localhost", wantOK: false},
		{name: "Leading dot", input: ".google.com", wantOK: false},
		{name: "Trailing dot", input: "google.com.", wantOK: false},
		{name: "Double dot", input: "google..com", wantOK: false},
		{name: "Leading hyphen label", input: "-example.com", wantOK: false},
		{name: "Trailing hyphen label", input: "example-.com", wantOK: false},
		{name: "Too long", input: strings.Repeat("a", 260) + ".com", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CleanDomain(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("CleanDomain(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("CleanDomain(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractHostname(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		want   string
		wantOK bool
	}{
		{name: "Full URL", rawURL: "https://mail.google.com/inbox", want: "mail.google.com", wantOK: true},
		{name: "URL with port", rawURL: "http://example.com:8080/x", want: "example.com", wantOK: true},
		{name: "Bare domain", rawURL: "example.com/page", want: "example.com", wantOK: true},
		{name: "Uppercase host", rawURL: "HTTPS://Example.COM/Path", want: "example.com", wantOK: true},
		{name: "Garbage", rawURL: "://///", wantOK: false},
		{name: "Empty", rawURL: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractHostname(tt.rawURL)
			if ok != tt.wantOK {
				t.Fatalf("ExtractHostname(%q) ok = %v, want %v", tt.rawURL, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ExtractHostname(%q) = %q, want %q", tt.rawURL, got, tt.want)
			}
		})
	}
}

func TestNewWhitelistDropsInvalid(t *testing.T) {
	w := NewWhitelist([]string{"google.com", "not a domain", "", "https://Docs.Google.com/edit"})

	entries := w.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() returned %d entries, want 2: %v", len(entries), entries)
	}

	if _, ok := w["google.com"]; !ok {
		t.Error("whitelist missing google.com")
	}
	if _, ok := w["docs.google.com"]; !ok {
		t.Error("whitelist missing docs.google.com")
	}
}

func TestIsAllowed(t *testing.T) {
	w := NewWhitelist([]string{"google.com"})

	tests := []struct {
		name   string
		rawURL string
		want   bool
	}{
		{name: "Exact match", rawURL: "https://google.com/search", want: true},
		{name: "Subdomain match", rawURL: "https://mail.google.com/", want: true},
		{name: "Containment match", rawURL: "https://notgoogle.com/", want: true},
		{name: "Different domain", rawURL: "https://reddit.com/r/all", want: false},
		{name: "Unparseable URL fails closed", rawURL: "://///", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAllowed(tt.rawURL, w); got != tt.want {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.rawURL, got, tt.want)
			}
		})
	}
}

func TestIsAllowedEmptyWhitelist(t *testing.T) {
	w := NewWhitelist(nil)

	if IsAllowed("https://example.com/", w) {
		t.Error("IsAllowed() = true with empty whitelist, want false")
	}
}
