package models

import "time"

// Event represents an entry in a user's activity log.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`  // e.g. "auth.login", "schedule.create"
	Level     string    `json:"level"` // e.g. "info", "warn"
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
