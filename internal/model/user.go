package model

import (
	"time"

	"github.com/google/uuid"
)

// UserID uniquely identifies a user across the system.
// IDs are UUIDv7 so lexicographic order follows account creation order.
type UserID string

// Role is a user's authorization role
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// NewUserID generates a fresh, time-ordered user ID
func NewUserID() UserID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the random source fails
		return UserID(uuid.NewString())
	}
	return UserID(id.String())
}

// ParseUserID validates the format of a raw user ID and returns it in
// canonical form
func ParseUserID(raw string) (UserID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", ErrInvalidUserID
	}
	return UserID(id.String()), nil
}

// User is a persisted account
type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`      // unique display handle (immutable)
	PasswordHash string    `json:"password_hash"` // bcrypt hash
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the validated attributes carried by a live session
func (u *User) Identity() Identity {
	return Identity{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
}

// Identity is the validated view of a user derived from a credential.
// It is immutable for the lifetime of a connection.
type Identity struct {
	UserID   UserID
	Username string
	Role     Role
}

// IsAdmin reports whether the identity carries the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
