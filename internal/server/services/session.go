package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService issues, rotates and revokes sessions. A user has at most one
// unexpired session: issuing a new one revokes whatever was active before.
type SessionService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	codec                        *auth.TokenCodec
	hasher                       *auth.PasswordHasher
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger
	options
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, opts ...Option) *SessionService {
	return &SessionService{
		db:                           db,
		repomanager:                  m,
		codec:                        auth.NewTokenCodec([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration),
		hasher:                       auth.NewPasswordHasher(cfg.BcryptCost),
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		logger:                       logger.With("module", "sessions"),
		options:                      buildOptions(opts),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks the credentials and returns a fresh token pair. Unknown email,
// wrong password and inactive account all yield common.ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, email, password string) (*TokenPair, error) {

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn a hash comparison so unknown emails cost the same as bad passwords
			s.hasher.Verify("", password)
			s.metrics.login(common.KindInvalidCredentials)
			return nil, common.ErrInvalidCredentials
		}
		s.metrics.login(common.KindInternal)
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) || !user.IsActive {
		s.metrics.login(common.KindInvalidCredentials)
		return nil, common.ErrInvalidCredentials
	}

	now := s.now()
	var pair *TokenPair
	var revoked []*models.Session

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, user.ID); err != nil {
			return fmt.Errorf("error locking user: %w", err)
		}

		active, err := s.repomanager.Sessions(tx).ListActiveByUser(ctx, user.ID, now)
		if err != nil {
			return fmt.Errorf("error searching active sessions: %w", err)
		}
		for _, sess := range active {
			if err := s.revoke(ctx, tx, sess); err != nil {
				return err
			}
		}
		revoked = active

		pair, err = s.issue(ctx, tx, user.ID, now)
		return err
	})
	if err != nil {
		s.metrics.login(common.KindInternal)
		return nil, err
	}

	s.afterRevoke(ctx, revoked)
	s.metrics.login("ok")
	s.logger.Info(ctx, "user logged in", "user_id", user.ID, "revoked_sessions", len(revoked))
	return pair, nil
}

// Refresh rotates the session holding refreshToken. The old refresh token is
// blacklisted, so a second call with it reports common.ErrTokenRevoked.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken)
	if err != nil {
		s.metrics.refresh(common.Kind(err))
		return nil, err
	}
	s.metrics.refresh("ok")
	return pair, nil
}

func (s *SessionService) refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrTokenInvalid
	}

	now := s.now()

	revoked, err := isRevoked(ctx, s.cache, s.repomanager.Blacklist(s.db), refreshToken, now, s.logger)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}

	sess, err := s.repomanager.Sessions(s.db).FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenInvalid
		}
		return nil, fmt.Errorf("error searching session: %w", err)
	}
	if !sess.IsValid(now) {
		return nil, common.ErrTokenInvalid
	}

	var pair *TokenPair
	var current *models.Session

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, sess.UserID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrTokenInvalid
			}
			return fmt.Errorf("error locking user: %w", err)
		}

		// re-read under the lock: a concurrent refresh may have rotated it already
		var err error
		current, err = s.repomanager.Sessions(tx).FindByRefreshToken(ctx, refreshToken)
		if errors.Is(err, common.ErrorNotFound) {
			blacklisted, err := s.repomanager.Blacklist(tx).IsBlacklisted(ctx, refreshToken, now)
			if err != nil {
				return fmt.Errorf("error checking blacklist: %w", err)
			}
			if blacklisted {
				return common.ErrTokenRevoked
			}
			return common.ErrTokenInvalid
		}
		if err != nil {
			return fmt.Errorf("error searching session: %w", err)
		}
		if !current.IsValid(now) {
			return common.ErrTokenInvalid
		}

		if err := s.revoke(ctx, tx, current); err != nil {
			return err
		}

		pair, err = s.issue(ctx, tx, current.UserID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterRevoke(ctx, []*models.Session{current})
	s.logger.Info(ctx, "session rotated", "user_id", current.UserID)
	return pair, nil
}

// Logout revokes the session the access token was issued with. A token whose
// session is already gone is still a successful logout.
func (s *SessionService) Logout(ctx context.Context, accessToken string) error {
	now := s.now()

	claims, err := s.codec.Decode(accessToken, now)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return common.ErrTokenInvalid
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	var revoked *models.Session

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, user.ID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return fmt.Errorf("error locking user: %w", err)
		}

		sess, err := s.repomanager.Sessions(tx).FindByAccessToken(ctx, user.ID, accessToken)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error searching session: %w", err)
		}

		if err := s.revoke(ctx, tx, sess); err != nil {
			return err
		}
		revoked = sess
		return nil
	})
	if err != nil {
		return err
	}

	if revoked != nil {
		s.afterRevoke(ctx, []*models.Session{revoked})
	}
	s.logger.Info(ctx, "user logged out", "user_id", user.ID, "session_found", revoked != nil)
	return nil
}

// revoke blacklists the refresh token until the session's own expiry and
// deletes the session. It must run inside the caller's transaction.
func (s *SessionService) revoke(ctx context.Context, tx dbx.DBTX, sess *models.Session) error {
	entry := models.BlacklistEntry{Token: sess.RefreshToken, ExpiresAt: sess.ExpiresAt}
	if err := s.repomanager.Blacklist(tx).Add(ctx, entry); err != nil {
		return fmt.Errorf("error blacklisting refresh token: %w", err)
	}
	if err := s.repomanager.Sessions(tx).Delete(ctx, sess.ID); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// afterRevoke runs once the revoking transaction has committed.
func (s *SessionService) afterRevoke(ctx context.Context, revoked []*models.Session) {
	now := s.now()
	for _, sess := range revoked {
		s.metrics.revoked()
		entry := models.BlacklistEntry{Token: sess.RefreshToken, ExpiresAt: sess.ExpiresAt}
		if s.cache == nil || !entry.IsActive(now) {
			continue
		}
		if err := s.cache.MarkRevoked(ctx, entry.Token, entry.ExpiresAt); err != nil {
			s.logger.Warn(ctx, "revocation cache write failed", "session_id", sess.ID, "error", err)
		}
	}
}

func (s *SessionService) issue(ctx context.Context, tx dbx.DBTX, userID string, now time.Time) (*TokenPair, error) {
	accessToken, err := s.codec.Encode(userID, now)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	sess := &models.Session{
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    now.Add(s.refreshTokenValidityDuration),
	}
	if _, err := s.repomanager.Sessions(tx).Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &TokenPair{AccessToken: sess.AccessToken, RefreshToken: sess.RefreshToken}, nil
}
