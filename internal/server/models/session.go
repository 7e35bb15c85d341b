package models

import "time"

// Session binds an issued access/refresh pair to a user until ExpiresAt.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// IsValid reports whether the session's refresh grant is still live at now.
func (s *Session) IsValid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// BlacklistEntry marks a revoked token string until ExpiresAt.
type BlacklistEntry struct {
	Token     string
	ExpiresAt time.Time
}

// IsActive reports whether the entry still rejects its token at now.
func (e *BlacklistEntry) IsActive(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
