// Package blocker decides, for the page this instance is watching, whether
// the blocking overlay should be active, and keeps that decision reconciled
// with the timer state seen locally and in other instances.
package blocker

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/tomatomonkey/tomatomonkey/internal/domainmatch"
	"github.com/tomatomonkey/tomatomonkey/internal/models"
	"github.com/tomatomonkey/tomatomonkey/internal/settings"
	"github.com/tomatomonkey/tomatomonkey/internal/storage"
	"github.com/tomatomonkey/tomatomonkey/internal/timer"
)

// Overlay is the consumed UI capability. Hide may complete asynchronously;
// the engine never assumes the overlay is gone when Hide returns.
// SetBlockingMode is a one-way context push that tells the overlay which
// action buttons to expose; the engine does not depend on it for its logic.
type Overlay interface {
	Show()
	Hide()
	IsVisible() bool
	SetBlockingMode(blocking bool)
}

// Config contains runtime options for the Engine.
type Config struct {
	CacheTTL time.Duration // per-URL decision cache lifetime
}

const defaultCacheTTL = 3 * time.Minute

type cacheEntry struct {
	notAllowed bool
	expires    time.Time
}

type overlayAction int

const (
	actionNone overlayAction = iota
	actionShow
	actionHide
)

// Engine is the per-instance blocking decision state machine. isActive means
// "this instance is enforcing blocking"; whether the watched page is actually
// blocked additionally depends on exemptions, skips, and the whitelist.
type Engine struct {
	mu      sync.Mutex
	store   storage.Store
	timer   *timer.Timer // local snapshot source, may be nil
	overlay Overlay      // may be nil

	whitelist   domainmatch.Whitelist
	currentURL  string
	active      bool
	pageBlocked bool
	skips       map[string]struct{}
	cache       map[string]cacheEntry
	cacheTTL    time.Duration

	nowFn   func() time.Time
	cancels []func()
}

// New creates an Engine, loads the whitelist from persisted settings, and
// subscribes to remote timer-state changes, settings changes, and (when a
// local timer is present) local timer events.
func New(store storage.Store, tm *timer.Timer, overlay Overlay, config Config) *Engine {
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaultCacheTTL
	}

	e := &Engine{
		store:     store,
		timer:     tm,
		overlay:   overlay,
		whitelist: settings.Load(store).WhitelistSet(),
		skips:     make(map[string]struct{}),
		cache:     make(map[string]cacheEntry),
		cacheTTL:  config.CacheTTL,
		nowFn:     time.Now,
	}

	e.cancels = append(e.cancels,
		store.Subscribe(storage.KeyTimerState, e.handleTimerChange),
		store.Subscribe(storage.KeySettings, e.handleSettingsChange),
	)
	if tm != nil {
		e.cancels = append(e.cancels, tm.Subscribe(e.handleTimerEvent))
	}
	return e
}

// Close unsubscribes the engine from its event sources.
func (e *Engine) Close() {
	for _, cancel := range e.cancels {
		cancel()
	}
	e.cancels = nil
}

// Navigate points the engine at a new page URL and re-evaluates it.
func (e *Engine) Navigate(url string) {
	e.mu.Lock()
	e.currentURL = url
	action := e.evaluateLocked()
	e.mu.Unlock()
	e.apply(action)
}

// ShouldBlock applies the decision rules in order: inactive engine, exemption
// rules, and the temporary skip set each force "don't block" before the
// whitelist is consulted. The whitelist verdict is cached per exact URL for a
// bounded window.
func (e *Engine) ShouldBlock(url string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shouldBlockLocked(url)
}

// Activate turns enforcement on. A new session discards prior skips; a
// reconciliation (cross-instance sync, window-focus re-check) preserves them.
func (e *Engine) Activate(isNewSession bool) {
	e.mu.Lock()
	e.active = true
	if isNewSession {
		e.skips = make(map[string]struct{})
	}
	action := e.evaluateLocked()
	state := models.BlockerState{IsActive: true, Timestamp: e.nowFn().UnixMilli()}
	e.mu.Unlock()

	e.apply(action)
	e.persist(state)
}

// Deactivate turns enforcement off, clears the skip set (the session is
// over), and hides the overlay if it is showing.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	e.active = false
	wasBlocked := e.pageBlocked
	e.pageBlocked = false
	e.skips = make(map[string]struct{})
	state := models.BlockerState{IsActive: false, Timestamp: e.nowFn().UnixMilli()}
	e.mu.Unlock()

	if wasBlocked || (e.overlay != nil && e.overlay.IsVisible()) {
		e.apply(actionHide)
	}
	e.persist(state)
}

// Skip excuses the given URL's hostname for the rest of this session. Only
// valid while the watched page is blocked. A malformed URL falls back to the
// watched page's own hostname instead of failing.
func (e *Engine) Skip(rawURL string) bool {
	e.mu.Lock()
	if !e.pageBlocked {
		e.mu.Unlock()
		return false
	}

	host, ok := domainmatch.ExtractHostname(rawURL)
	if !ok {
		if rawURL != "" {
			log.Printf("blocker: cannot extract hostname from %q, skipping current page instead", rawURL)
		}
		host, ok = domainmatch.ExtractHostname(e.currentURL)
		if !ok {
			e.mu.Unlock()
			return false
		}
	}

	e.skips[host] = struct{}{}
	delete(e.cache, rawURL)
	delete(e.cache, e.currentURL)
	action := e.evaluateLocked()
	e.mu.Unlock()

	e.apply(action)
	return true
}

// SetWhitelist replaces the matcher set and invalidates the decision cache.
func (e *Engine) SetWhitelist(entries []string) {
	e.mu.Lock()
	e.whitelist = domainmatch.NewWhitelist(entries)
	e.cache = make(map[string]cacheEntry)
	action := e.evaluateLocked()
	e.mu.Unlock()
	e.apply(action)
}

// HandleWindowFocus re-checks against the local timer snapshot. This bounds
// the damage of a change notification that never arrives: regaining focus
// triggers the same reconciliation a notification would have.
func (e *Engine) HandleWindowFocus() {
	if e.timer == nil {
		return
	}
	e.reconcile(e.timer.Snapshot().Status)
}

// IsActive reports whether this instance is enforcing blocking.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// IsCurrentPageBlocked reports whether the watched page is blocked right now.
func (e *Engine) IsCurrentPageBlocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pageBlocked
}

// CurrentURL returns the URL the engine is watching.
func (e *Engine) CurrentURL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentURL
}

// SkippedHosts returns the session's temporary skip set, sorted.
func (e *Engine) SkippedHosts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	hosts := make([]string, 0, len(e.skips))
	for host := range e.skips {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

func (e *Engine) handleTimerEvent(event timer.Event) {
	switch event.Type {
	case timer.EventStarted:
		e.Activate(true)
	case timer.EventCompleted, timer.EventStopped:
		e.Deactivate()
	}
}

// handleTimerChange reconciles against a timer snapshot written by another
// instance. Only remote origins are acted on; local writes already went
// through the local event path.
func (e *Engine) handleTimerChange(_, _, newValue string, remote bool) {
	if !remote {
		return
	}
	if newValue == "" {
		e.reconcile(models.TimerIdle)
		return
	}

	var state models.TimerState
	if err := json.Unmarshal([]byte(newValue), &state); err != nil {
		log.Printf("blocker: corrupt remote timer state ignored: %v", err)
		return
	}
	e.reconcile(state.Status)
}

// reconcile is idempotent: every call recomputes the block decision from the
// given snapshot rather than trusting a remembered delta.
func (e *Engine) reconcile(status models.TimerStatus) {
	switch status {
	case models.TimerRunning:
		if !e.IsActive() {
			e.Activate(false)
			return
		}
		e.mu.Lock()
		action := e.evaluateLocked()
		e.mu.Unlock()
		e.apply(action)
	case models.TimerIdle, models.TimerCompleted:
		if e.IsActive() || e.IsCurrentPageBlocked() {
			e.Deactivate()
		}
	}
}

func (e *Engine) handleSettingsChange(_, _, newValue string, _ bool) {
	parsed := settings.Parse(newValue)
	e.mu.Lock()
	e.whitelist = parsed.WhitelistSet()
	e.cache = make(map[string]cacheEntry)
	action := e.evaluateLocked()
	e.mu.Unlock()
	e.apply(action)
}

func (e *Engine) shouldBlockLocked(url string) bool {
	if !e.active {
		return false
	}
	if IsExempt(url) {
		return false
	}
	if host, ok := domainmatch.ExtractHostname(url); ok {
		if _, skipped := e.skips[host]; skipped {
			return false
		}
	}

	now := e.nowFn()
	if entry, ok := e.cache[url]; ok && now.Before(entry.expires) {
		return entry.notAllowed
	}
	notAllowed := !domainmatch.IsAllowed(url, e.whitelist)
	e.cache[url] = cacheEntry{notAllowed: notAllowed, expires: now.Add(e.cacheTTL)}
	return notAllowed
}

func (e *Engine) evaluateLocked() overlayAction {
	if e.currentURL == "" {
		if e.pageBlocked {
			e.pageBlocked = false
			return actionHide
		}
		return actionNone
	}

	block := e.shouldBlockLocked(e.currentURL)
	switch {
	case block && !e.pageBlocked:
		e.pageBlocked = true
		return actionShow
	case !block && e.pageBlocked:
		e.pageBlocked = false
		return actionHide
	}
	return actionNone
}

func (e *Engine) apply(action overlayAction) {
	if e.overlay == nil {
		return
	}
	switch action {
	case actionShow:
		e.overlay.SetBlockingMode(true)
		e.overlay.Show()
	case actionHide:
		e.overlay.Hide()
		e.overlay.SetBlockingMode(false)
	}
}

func (e *Engine) persist(state models.BlockerState) {
	raw, err := json.Marshal(state)
	if err != nil {
		log.Printf("blocker: failed to marshal state: %v", err)
		return
	}
	if err := e.store.Set(storage.KeyBlockerState, string(raw)); err != nil {
		log.Printf("blocker: failed to persist state: %v", err)
	}
}
