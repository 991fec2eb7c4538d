// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects an issued access/refresh pair with both expiry instants.
type Tokens struct {
	AccessToken        string
	RefreshToken       string
	HashedRefreshToken string // keyed hash of RefreshToken; stored, never returned to clients
	AccessExpiresAt    time.Time
	RefreshExpiresAt   time.Time
}

// Session is one device/login refresh lineage attached to a user account.
type Session struct {
	TokenHash  string    `json:"token_hash"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"` // fixed at login, preserved across rotations
	UserAgent  string    `json:"user_agent,omitempty"`
	IP         string    `json:"ip,omitempty"`
}

// SessionInfo is the client-visible view of a Session (no token hash).
type SessionInfo struct {
	CreatedAt  time.Time
	LastUsedAt time.Time
	ExpiresAt  time.Time
	UserAgent  string
	IP         string
}

// ClientMeta is best-effort descriptive data about the calling device.
type ClientMeta struct {
	UserAgent string
	IP        string
}

// User represents an account document. The password is never stored in plaintext.
type User struct {
	ID        uuid.UUID // PK
	Email     string    // unique, lower-cased
	PwdHash   string    // bcrypt
	Sessions  []Session
	Ver       int64 // document version, bumped on every save
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// Entry is a simple owner-scoped text record.
type Entry struct {
	ID        uuid.UUID
	UserID    uuid.UUID // FK -> users.id
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
