// Package models defines server-side data records persisted in the database.
// Records carry no behaviour beyond pure validity predicates; services decide
// what to do with them.
package models

import "time"

// User is the stored identity: login email, bcrypt password hash and flags.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsActive     bool
	IsAdmin      bool
	CreatedAt    time.Time
}
