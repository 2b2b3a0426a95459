package models

import "time"

// Notification represents a message shown to a user, optionally tied to a
// schedule. At most one notification exists per (schedule, user) pair;
// creating another one for the same schedule refreshes the existing row.
type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	ScheduleID *string   `json:"scheduleId"` // Nullable for standalone notifications
	Title      string    `json:"title"`
	Content    *string   `json:"content"`
	Priority   *string   `json:"priority"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}
