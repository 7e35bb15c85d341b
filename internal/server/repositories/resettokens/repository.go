// Package resettokens stores single-use password reset grants.
package resettokens

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// FindLatestByUser returns the newest reset record of userID or common.ErrorNotFound.
	FindLatestByUser(ctx context.Context, userID string) (*models.PasswordResetToken, error)
	FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	Create(ctx context.Context, p *models.PasswordResetToken) (*models.PasswordResetToken, error)
	Delete(ctx context.Context, id string) error
	// DeleteByUser drops every reset record of userID.
	DeleteByUser(ctx context.Context, userID string) error
}
