package database

import (
	"fmt"
	"time"

	"github.com/tomatomonkey/tomatomonkey/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for shared state entries and
// session history
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// GetEntry retrieves a shared state entry by key. Returns nil when the key
// has never been written.
func (r *Repository) GetEntry(key string) (*models.KVEntry, error) {
	var entry models.KVEntry
	result := r.db.First(&entry, "key = ?", key)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get state entry")
	}
	return &entry, nil
}

// PutEntry writes a shared state entry, bumping its version by one. The new
// version is returned so the writer can recognize its own write when the
// change watcher reports it.
func (r *Repository) PutEntry(key, value string) (int64, error) {
	var version int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var current models.KVEntry
		result := tx.First(&current, "key = ?", key)
		if result.Error != nil && result.Error != gorm.ErrRecordNotFound {
			return result.Error
		}

		version = current.Version + 1
		entry := models.KVEntry{
			Key:     key,
			Value:   value,
			Version: version,
		}
		return tx.Save(&entry).Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to put state entry")
	}
	return version, nil
}

// DeleteEntry removes a shared state entry
func (r *Repository) DeleteEntry(key string) error {
	result := r.db.Delete(&models.KVEntry{}, "key = ?", key)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete state entry")
	}
	return nil
}

// GetEntries retrieves all shared state entries. The table holds a handful of
// keys, so the change watcher reads it whole on every poll.
func (r *Repository) GetEntries() ([]models.KVEntry, error) {
	var entries []models.KVEntry
	result := r.db.Find(&entries)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list state entries")
	}
	return entries, nil
}

// CreateSessionEvent inserts a finished focus session into the history
func (r *Repository) CreateSessionEvent(event *models.SessionEvent) error {
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert session event")
	}
	return nil
}

// GetSessionsSince retrieves all finished sessions since a given time
func (r *Repository) GetSessionsSince(since time.Time) ([]*models.SessionEvent, error) {
	var events []*models.SessionEvent
	result := r.db.Where("ended_at >= ?", since).Order("ended_at ASC").Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query session events")
	}
	return events, nil
}

// GetSessionSummarySince returns aggregated session totals grouped by outcome
// since a given time. SQL does the SUM, the reporter derives the rest.
func (r *Repository) GetSessionSummarySince(since time.Time) ([]models.SessionSummary, error) {
	var summaries []models.SessionSummary

	result := r.db.Model(&models.SessionEvent{}).
		Select("outcome, SUM(focused_seconds) as total_seconds, COUNT(*) as session_count").
		Where("ended_at >= ?", since).
		Group("outcome").
		Order("total_seconds DESC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query session summary")
	}

	return summaries, nil
}

// GetLatestSession retrieves the most recently finished session
func (r *Repository) GetLatestSession() (*models.SessionEvent, error) {
	var event models.SessionEvent
	result := r.db.Order("ended_at DESC").First(&event)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest session")
	}
	return &event, nil
}

// DeleteOldSessions deletes session history older than a specified date
// (soft delete)
func (r *Repository) DeleteOldSessions(before time.Time) (int64, error) {
	result := r.db.Where("ended_at < ?", before).Delete(&models.SessionEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old sessions")
	}
	return result.RowsAffected, nil
}

// Update updates an existing session event
func (r *Repository) Update(event *models.SessionEvent) error {
	result := r.db.Save(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update session event")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session event not found")
	}
	return nil
}

// Clear removes all session history from the database
func (r *Repository) Clear() error {
	result := r.db.Exec("DELETE FROM session_events")
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear session events")
	}
	return nil
}
