package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/uniuri"
)

// Session is a server-side session record for locally authenticated users.
// The identity resolver maps a presented bearer token to the owning user.
type Session struct {
	// Token is the opaque session token handed to the client.
	Token string `gorm:"primaryKey;size:64"`
	// UserID is the authenticated user.
	UserID string `gorm:"size:36;not null;index"`
	// ExpiresAt is the absolute expiry; expired sessions resolve to no identity.
	ExpiresAt time.Time `gorm:"not null"`
	// CreatedAt is the timestamp when the session was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the Session model.
func (Session) TableName() string {
	return "sessions"
}

// BeforeCreate assigns a token when none was set.
func (s *Session) BeforeCreate(_ *gorm.DB) error {
	if s.Token == "" {
		s.Token = uniuri.NewLen(uniuri.SessionLen)
	}

	return nil
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
