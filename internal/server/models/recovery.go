package models

import "time"

// EmailVerification is the single verification record a user owns.
type EmailVerification struct {
	ID         string
	UserID     string
	Token      string
	CreatedAt  time.Time
	IsVerified bool
}

// IsValid reports whether the record is still inside its ttl window at now.
func (v *EmailVerification) IsValid(now time.Time, ttl time.Duration) bool {
	return now.Before(v.CreatedAt.Add(ttl))
}

// PasswordResetToken is a single-use reset grant for a user.
type PasswordResetToken struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
}

// IsValid reports whether the token is still inside its ttl window at now.
func (p *PasswordResetToken) IsValid(now time.Time, ttl time.Duration) bool {
	return now.Before(p.CreatedAt.Add(ttl))
}
