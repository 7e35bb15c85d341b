// Package blacklist declares the revoked-token half of the token ledger.
package blacklist

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Add records entry. Re-adding a token keeps the later expiry.
	Add(ctx context.Context, entry models.BlacklistEntry) error
	// IsBlacklisted reports whether token has an entry that is still active at now.
	IsBlacklisted(ctx context.Context, token string, now time.Time) (bool, error)
	// DeleteExpired removes entries whose expiry is not after now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
