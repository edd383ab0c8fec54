package settings

import (
	"testing"

	"github.com/tomatomonkey/tomatomonkey/internal/storage"
)

func TestParseDefaults(t *testing.T) {
	s := Parse("")
	if s.SessionMinutes != 25 {
		t.Errorf("SessionMinutes = %d, want 25", s.SessionMinutes)
	}
	if !s.NotificationsEnabled {
		t.Error("NotificationsEnabled = false, want true")
	}
	if len(s.Whitelist) != 0 {
		t.Errorf("Whitelist = %v, want empty", s.Whitelist)
	}
}

func TestParseCorruptFallsBackToDefaults(t *testing.T) {
	s := Parse("{broken json")
	if s.SessionMinutes != 25 {
		t.Errorf("SessionMinutes = %d, want 25", s.SessionMinutes)
	}
}

func TestParseClampsSessionMinutes(t *testing.T) {
	s := Parse(`{"sessionMinutes": 0, "whitelist": ["google.com"]}`)
	if s.SessionMinutes != 25 {
		t.Errorf("SessionMinutes = %d, want 25", s.SessionMinutes)
	}
	if len(s.Whitelist) != 1 {
		t.Errorf("Whitelist = %v, want [google.com]", s.Whitelist)
	}
}

func TestLoadMissingKey(t *testing.T) {
	store := storage.NewHub().Open()
	s := Load(store)
	if s.SessionMinutes != 25 {
		t.Errorf("SessionMinutes = %d, want 25", s.SessionMinutes)
	}
}

func TestSaveCleansWhitelist(t *testing.T) {
	store := storage.NewHub().Open()

	s := Default()
	s.Whitelist = []string{
		"https://Docs.Google.com/edit",
		"google.com",
		"GOOGLE.COM",
		"not a domain",
		"",
	}
	if err := Save(store, s); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded := Load(store)
	want := []string{"docs.google.com", "google.com"}
	if len(loaded.Whitelist) != len(want) {
		t.Fatalf("Whitelist = %v, want %v", loaded.Whitelist, want)
	}
	for i, entry := range want {
		if loaded.Whitelist[i] != entry {
			t.Errorf("Whitelist[%d] = %q, want %q", i, loaded.Whitelist[i], entry)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	store := storage.NewHub().Open()

	s := Default()
	s.SessionMinutes = 50
	s.NotificationsEnabled = false
	s.Whitelist = []string{"example.com"}
	if err := Save(store, s); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded := Load(store)
	if loaded.SessionMinutes != 50 {
		t.Errorf("SessionMinutes = %d, want 50", loaded.SessionMinutes)
	}
	if loaded.NotificationsEnabled {
		t.Error("NotificationsEnabled = true, want false")
	}

	set := loaded.WhitelistSet()
	if _, ok := set["example.com"]; !ok {
		t.Error("WhitelistSet() missing example.com")
	}
}
