package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/minhvu/schedly-be/internal/apperr"
	"github.com/minhvu/schedly-be/internal/models"
)

// EventServiceProvider defines the interface for activity-log services.
type EventServiceProvider interface {
	Record(userID, eventType, level, message string)
	RecentForUser(userID string, limit int) ([]models.Event, error)
}

// EventService keeps a per-user activity log.
type EventService struct {
	db *sql.DB
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

// Record appends an entry to a user's activity log. Logging failures are
// reported but never fail the operation that triggered them.
func (s *EventService) Record(userID, eventType, level, message string) {
	_, err := s.db.Exec(
		"INSERT INTO events (id, user_id, type, level, message, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		uuid.New().String(), userID, eventType, level, message, time.Now(),
	)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to record activity event")
	}
}

// RecentForUser retrieves a user's most recent activity, newest first.
func (s *EventService) RecentForUser(userID string, limit int) ([]models.Event, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, type, level, message, created_at FROM events WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.UserID, &event.Type, &event.Level, &event.Message, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
