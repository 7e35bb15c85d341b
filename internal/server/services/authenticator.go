package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/blacklist"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// Principal is the identity a bearer token resolved to.
type Principal struct {
	User  *models.User
	Token string
}

// Authenticator resolves bearer tokens on every protected request.
// It only reads.
type Authenticator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.TokenCodec
	logger      logging.Logger
	options
}

func NewAuthenticator(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, opts ...Option) *Authenticator {
	return &Authenticator{
		db:          db,
		repomanager: m,
		codec:       auth.NewTokenCodec([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration),
		logger:      logger.With("module", "authenticator"),
		options:     buildOptions(opts),
	}
}

// Authenticate checks, in order, the blacklist, the signature and expiry, and
// that the user still exists.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	p, err := a.authenticate(ctx, token)
	if err != nil {
		a.metrics.authFailure(common.Kind(err))
		return nil, err
	}
	return p, nil
}

func (a *Authenticator) authenticate(ctx context.Context, token string) (*Principal, error) {
	now := a.now()

	revoked, err := isRevoked(ctx, a.cache, a.repomanager.Blacklist(a.db), token, now, a.logger)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}

	claims, err := a.codec.Decode(token, now)
	if err != nil {
		return nil, err
	}

	user, err := a.repomanager.Users(a.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	return &Principal{User: user, Token: token}, nil
}

// isRevoked asks the cache first and falls back to the ledger. The cache can
// only confirm a revocation; a miss or a cache failure goes to the ledger.
func isRevoked(ctx context.Context, cache RevocationCache, ledger blacklist.Repository, token string, now time.Time, logger logging.Logger) (bool, error) {
	if cache != nil {
		hit, err := cache.IsRevoked(ctx, token)
		if err != nil {
			logger.Warn(ctx, "revocation cache read failed", "error", err)
		} else if hit {
			return true, nil
		}
	}

	found, err := ledger.IsBlacklisted(ctx, token, now)
	if err != nil {
		return false, fmt.Errorf("error checking blacklist: %w", err)
	}
	return found, nil
}
