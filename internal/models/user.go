package models

import "time"

// User represents a registered account in the system.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	Role         string    `json:"role"`
	AvatarURL    *string   `json:"avatarUrl"`
	DOB          *string   `json:"dob"` // ISO date string, e.g. "2001-04-23"
	Gender       *string   `json:"gender"`
	Phone        *string   `json:"phone"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DefaultRole is assigned when registration omits a role.
const DefaultRole = "user"
