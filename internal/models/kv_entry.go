package models

import (
	"time"

	"gorm.io/gorm"
)

// KVEntry is one shared key/value record. Version increases by one on every
// write, which lets other instances detect changes without comparing wall
// clocks across processes.
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	Version   int64     `gorm:"not null;default:0" json:"version"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SessionEvent records one finished focus session for reporting.
type SessionEvent struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	TaskID         string         `gorm:"index" json:"task_id"`
	TaskTitle      string         `json:"task_title"`
	Outcome        string         `gorm:"not null;index" json:"outcome"` // "completed" or "stopped"
	PlannedSeconds int64          `gorm:"not null;default:0" json:"planned_seconds"`
	FocusedSeconds int64          `gorm:"not null;default:0" json:"focused_seconds"`
	StartedAt      time.Time      `gorm:"not null;index" json:"started_at"`
	EndedAt        time.Time      `gorm:"not null;index" json:"ended_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

type SessionSummary struct {
	Outcome      string  `json:"outcome"`
	TotalSeconds int64   `json:"total_seconds"`
	TotalMinutes float64 `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	SessionCount int     `json:"session_count"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period        ReportPeriod     `json:"period"`
	Outcomes      []SessionSummary `json:"outcomes"`
	TotalSessions int              `json:"total_sessions"`
	TotalSeconds  int64            `json:"total_seconds"`
	TotalMinutes  float64          `json:"total_minutes"`
	TotalHours    float64          `json:"total_hours"`
	GeneratedAt   time.Time        `json:"generated_at"`
}
