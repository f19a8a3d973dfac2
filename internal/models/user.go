package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	PasswordHash string `json:"-"` // Never returned in JSON
	Role         string `json:"role"`
	IsVerified   bool   `json:"is_verified"`
	AvatarURL    string `json:"avatar_url,omitempty"`

	// Pending password reset state; empty when no reset is pending
	ResetTokenHash      string    `json:"-"`
	ResetTokenExpiresAt time.Time `json:"-"`
}

// UserSnapshot is the cached view of a user served on authenticated
// requests. The users table stays authoritative; a snapshot is only as
// fresh as its cache TTL.
type UserSnapshot struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	IsVerified  bool      `json:"is_verified"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
}

// Snapshot builds the cacheable view of the user.
func (u *User) Snapshot() *UserSnapshot {
	return &UserSnapshot{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		IsVerified:  u.IsVerified,
		AvatarURL:   u.AvatarURL,
	}
}
