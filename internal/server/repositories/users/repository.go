// Package users declares the credential store: stored identities keyed by id
// and by (lower-cased) email.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills in its generated ID and CreatedAt.
	// A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// LockByID takes a row lock on the user until the surrounding transaction ends.
	LockByID(ctx context.Context, id string) error
	SetPassword(ctx context.Context, id string, passwordHash string) error
	SetActive(ctx context.Context, id string, active bool) error
}
