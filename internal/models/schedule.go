package models

import "time"

// Schedule represents a single task on a user's timeline.
type Schedule struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Tags        *string   `json:"tags"` // comma-separated, stored as-is
	Priority    *string   `json:"priority"`
	Deadline    time.Time `json:"deadline"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
}
