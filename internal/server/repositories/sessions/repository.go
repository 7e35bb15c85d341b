// Package sessions declares the session half of the token ledger: one row per
// issued access/refresh pair, bound to a user until its refresh expiry.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository stores and looks up sessions.
type Repository interface {
	// Create inserts s and fills in its generated ID and CreatedAt.
	Create(ctx context.Context, s *models.Session) (*models.Session, error)

	// FindByRefreshToken returns the session holding the refresh token, or
	// common.ErrorNotFound.
	FindByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error)

	// FindByAccessToken returns the session of userID holding the access token,
	// or common.ErrorNotFound.
	FindByAccessToken(ctx context.Context, userID string, accessToken string) (*models.Session, error)

	// ListActiveByUser returns the sessions of userID that have not expired at now,
	// newest first.
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*models.Session, error)

	// Delete removes a session by id. Deleting a missing row is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes sessions whose expiry is not after now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
