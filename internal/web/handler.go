package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/tomatomonkey/tomatomonkey/internal/blocker"
	"github.com/tomatomonkey/tomatomonkey/internal/config"
	"github.com/tomatomonkey/tomatomonkey/internal/database"
	"github.com/tomatomonkey/tomatomonkey/internal/reporter"
	"github.com/tomatomonkey/tomatomonkey/internal/settings"
	"github.com/tomatomonkey/tomatomonkey/internal/storage"
	"github.com/tomatomonkey/tomatomonkey/internal/timer"
)

type Handler struct {
	config   *config.Config
	timer    *timer.Timer
	engine   *blocker.Engine
	store    storage.Store
	repo     *database.Repository
	reporter *reporter.Reporter
}

func NewHandler(cfg *config.Config, tm *timer.Timer, engine *blocker.Engine, store storage.Store, repo *database.Repository) *Handler {
	return &Handler{
		config:   cfg,
		timer:    tm,
		engine:   engine,
		store:    store,
		repo:     repo,
		reporter: reporter.New(repo),
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/timer/start", h.handleTimerStart)
	mux.HandleFunc("/api/timer/pause", h.handleTimerPause)
	mux.HandleFunc("/api/timer/resume", h.handleTimerResume)
	mux.HandleFunc("/api/timer/stop", h.handleTimerStop)
	mux.HandleFunc("/api/timer/modify", h.handleTimerModify)
	mux.HandleFunc("/api/blocker/skip", h.handleBlockerSkip)
	mux.HandleFunc("/api/blocker/navigate", h.handleBlockerNavigate)
	mux.HandleFunc("/api/settings", h.handleSettings)
	mux.HandleFunc("/api/report", h.handleReport)

	mux.HandleFunc("/health", h.handleHealth)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := h.timer.Snapshot()

	status := map[string]interface{}{
		"running":       true,
		"database_path": h.config.Database.Path,
		"timer":         state,
		"blocker": map[string]interface{}{
			"active":        h.engine.IsActive(),
			"page_blocked":  h.engine.IsCurrentPageBlocked(),
			"current_url":   h.engine.CurrentURL(),
			"skipped_hosts": h.engine.SkippedHosts(),
		},
	}

	respondJSON(w, status)
}

type startRequest struct {
	TaskID    string `json:"taskId"`
	TaskTitle string `json:"taskTitle"`
	Seconds   int64  `json:"seconds"`
}

func (h *Handler) handleTimerStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if req.Seconds <= 0 {
		req.Seconds = int64(settings.Load(h.store).SessionMinutes) * 60
	}

	if !h.timer.Start(req.TaskID, req.TaskTitle, req.Seconds) {
		http.Error(w, "Timer could not be started", http.StatusConflict)
		return
	}

	respondJSON(w, h.timer.Snapshot())
}

func (h *Handler) handleTimerPause(w http.ResponseWriter, r *http.Request) {
	h.handleTimerTransition(w, r, h.timer.Pause, "Timer is not running")
}

func (h *Handler) handleTimerResume(w http.ResponseWriter, r *http.Request) {
	h.handleTimerTransition(w, r, h.timer.Resume, "Timer is not paused")
}

func (h *Handler) handleTimerStop(w http.ResponseWriter, r *http.Request) {
	h.handleTimerTransition(w, r, h.timer.Stop, "No session to stop")
}

func (h *Handler) handleTimerTransition(w http.ResponseWriter, r *http.Request, apply func() bool, conflictMsg string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !apply() {
		http.Error(w, conflictMsg, http.StatusConflict)
		return
	}

	respondJSON(w, h.timer.Snapshot())
}

type modifyRequest struct {
	Seconds int64 `json:"seconds"`
}

func (h *Handler) handleTimerModify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req modifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if !h.timer.Modify(req.Seconds) {
		http.Error(w, "Duration could not be changed", http.StatusConflict)
		return
	}

	respondJSON(w, h.timer.Snapshot())
}

type skipRequest struct {
	URL string `json:"url"`
}

func (h *Handler) handleBlockerSkip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req skipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if !h.engine.Skip(req.URL) {
		http.Error(w, "Nothing is blocked right now", http.StatusConflict)
		return
	}

	respondJSON(w, map[string]interface{}{
		"skipped_hosts": h.engine.SkippedHosts(),
	})
}

type navigateRequest struct {
	URL string `json:"url"`
}

func (h *Handler) handleBlockerNavigate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	h.engine.Navigate(req.URL)

	respondJSON(w, map[string]interface{}{
		"url":     req.URL,
		"blocked": h.engine.IsCurrentPageBlocked(),
	})
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, settings.Load(h.store))
	case http.MethodPut:
		var s settings.Settings
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		if err := settings.Save(h.store, s); err != nil {
			http.Error(w, fmt.Sprintf("Failed to save settings: %v", err), http.StatusInternalServerError)
			return
		}
		respondJSON(w, settings.Load(h.store))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.repo == nil {
		http.Error(w, "Session history is not available", http.StatusServiceUnavailable)
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate report: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, report)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
