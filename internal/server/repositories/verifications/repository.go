// Package verifications stores the email verification record of each user.
// A user owns at most one record.
package verifications

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	GetByUser(ctx context.Context, userID string) (*models.EmailVerification, error)
	FindByToken(ctx context.Context, token string) (*models.EmailVerification, error)
	// Create inserts v; a second record for the same user yields common.ErrorAlreadyExists.
	Create(ctx context.Context, v *models.EmailVerification) (*models.EmailVerification, error)
	// Renew replaces the token and restarts the validity window.
	Renew(ctx context.Context, id string, token string, createdAt time.Time) error
	MarkVerified(ctx context.Context, id string) error
}
