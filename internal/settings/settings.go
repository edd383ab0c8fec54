// Package settings owns the user settings persisted under the shared
// "settings" store key: the domain whitelist and session defaults. The
// blocking engine observes this key for whitelist changes.
package settings

import (
	"encoding/json"
	"log"
	"sort"

	"github.com/tomatomonkey/tomatomonkey/internal/domainmatch"
	"github.com/tomatomonkey/tomatomonkey/internal/storage"
)

type Settings struct {
	SessionMinutes       int      `json:"sessionMinutes"`
	NotificationsEnabled bool     `json:"notificationsEnabled"`
	Whitelist            []string `json:"whitelist"`
}

// Default returns the settings used when nothing has been persisted yet.
func Default() Settings {
	return Settings{
		SessionMinutes:       25,
		NotificationsEnabled: true,
	}
}

// Parse decodes a persisted settings payload, falling back to defaults on
// corrupt JSON. Never fails: a broken settings record degrades to an empty
// whitelist, it does not crash initialization.
func Parse(raw string) Settings {
	s := Default()
	if raw == "" {
		return s
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		log.Printf("settings: corrupt persisted settings, using defaults: %v", err)
		return Default()
	}
	if s.SessionMinutes < 1 {
		s.SessionMinutes = Default().SessionMinutes
	}
	return s
}

// Load reads settings from the store, tolerating an absent or unreadable key.
func Load(store storage.Store) Settings {
	raw, ok, err := store.Get(storage.KeySettings)
	if err != nil {
		log.Printf("settings: failed to read settings: %v", err)
		return Default()
	}
	if !ok {
		return Default()
	}
	return Parse(raw)
}

// Save cleans the whitelist through the domain validator, drops invalid and
// duplicate entries, and persists the result. Writing through the store
// notifies every subscribed instance.
func Save(store storage.Store, s Settings) error {
	s.Whitelist = cleanWhitelist(s.Whitelist)
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return store.Set(storage.KeySettings, string(raw))
}

// WhitelistSet builds the matcher set from the stored whitelist entries.
func (s Settings) WhitelistSet() domainmatch.Whitelist {
	return domainmatch.NewWhitelist(s.Whitelist)
}

func cleanWhitelist(entries []string) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		cleaned, ok := domainmatch.CleanDomain(entry)
		if !ok {
			log.Printf("settings: dropping invalid whitelist entry %q", entry)
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	sort.Strings(out)
	return out
}
