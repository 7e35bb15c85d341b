package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/notify"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// RecoveryService runs the email verification and password reset flows.
// Each user owns one verification record and reuses its reset record while
// it is still valid.
type RecoveryService struct {
	db                        *sql.DB
	repomanager               repomanager.RepositoryManager
	hasher                    *auth.PasswordHasher
	notifier                  notify.Notifier
	frontendURL               string
	verificationValidDuration time.Duration
	resetValidDuration        time.Duration
	logger                    logging.Logger
	options
}

func NewRecoveryService(db *sql.DB, m repomanager.RepositoryManager, notifier notify.Notifier, cfg *config.Config, logger logging.Logger, opts ...Option) *RecoveryService {
	return &RecoveryService{
		db:                        db,
		repomanager:               m,
		hasher:                    auth.NewPasswordHasher(cfg.BcryptCost),
		notifier:                  notifier,
		frontendURL:               strings.TrimRight(cfg.FrontendURL, "/"),
		verificationValidDuration: cfg.EmailVerificationValidityDuration,
		resetValidDuration:        cfg.PasswordResetValidityDuration,
		logger:                    logger.With("module", "recovery"),
		options:                   buildOptions(opts),
	}
}

func (s *RecoveryService) link(path, token string) string {
	return s.frontendURL + path + "?token=" + url.QueryEscape(token)
}

// send is fire-and-forget: delivery failures are logged, never returned.
func (s *RecoveryService) send(ctx context.Context, msg notify.Message) {
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Error(ctx, "notification failed", "kind", string(msg.Kind), "user_id", msg.UserID, "error", err)
	}
}

// RequestEmailVerification makes sure user has a usable verification record
// and mails its link. Already verified users get nothing.
func (s *RecoveryService) RequestEmailVerification(ctx context.Context, user *models.User) error {
	v, err := s.ensureVerification(ctx, s.db, user.ID)
	if err != nil {
		return err
	}
	s.notifyVerification(ctx, user, v)
	return nil
}

func (s *RecoveryService) notifyVerification(ctx context.Context, user *models.User, v *models.EmailVerification) {
	if v.IsVerified {
		return
	}
	s.metrics.recovery("verification_requested")
	s.send(ctx, notify.Message{
		Kind:      notify.KindVerifyEmail,
		UserID:    user.ID,
		Recipient: user.Email,
		Subject:   "Verify your email",
		Link:      s.link("/verify-email/", v.Token),
	})
}

// ensureVerification is get-or-create on the user's record. A valid or
// verified record is returned as is; an expired unverified one gets a new
// token and a new window.
func (s *RecoveryService) ensureVerification(ctx context.Context, db dbx.DBTX, userID string) (*models.EmailVerification, error) {
	repo := s.repomanager.Verifications(db)
	now := s.now()

	v, err := repo.GetByUser(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		v, err = repo.Create(ctx, &models.EmailVerification{UserID: userID, Token: uuid.NewString(), CreatedAt: now})
		if errors.Is(err, common.ErrorAlreadyExists) {
			v, err = repo.GetByUser(ctx, userID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("error loading email verification: %w", err)
	}

	if v.IsVerified || v.IsValid(now, s.verificationValidDuration) {
		return v, nil
	}

	// TODO: needs product sign-off; an expired record gets a new token here instead of reusing the old one
	token := uuid.NewString()
	if err := repo.Renew(ctx, v.ID, token, now); err != nil {
		return nil, fmt.Errorf("error renewing email verification: %w", err)
	}
	v.Token = token
	v.CreatedAt = now
	return v, nil
}

// ConfirmEmailVerification marks the record verified and activates its user.
// Replaying a verified token inside its window is accepted and changes nothing.
func (s *RecoveryService) ConfirmEmailVerification(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrTokenInvalid
	}

	v, err := s.repomanager.Verifications(s.db).FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrTokenInvalid
		}
		return fmt.Errorf("error searching email verification: %w", err)
	}

	if !v.IsValid(s.now(), s.verificationValidDuration) {
		return common.ErrTokenExpired
	}
	if v.IsVerified {
		return nil
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Verifications(tx).MarkVerified(ctx, v.ID); err != nil {
			return fmt.Errorf("error marking email verified: %w", err)
		}
		if err := s.repomanager.Users(tx).SetActive(ctx, v.UserID, true); err != nil {
			return fmt.Errorf("error activating user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.recovery("email_verified")
	s.logger.Info(ctx, "email verified", "user_id", v.UserID)
	return nil
}

// RequestPasswordReset mails a reset link to the owner of email, reusing a
// still valid reset record.
func (s *RecoveryService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	now := s.now()
	var reset *models.PasswordResetToken

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, user.ID); err != nil {
			return fmt.Errorf("error locking user: %w", err)
		}

		repo := s.repomanager.ResetTokens(tx)

		existing, err := repo.FindLatestByUser(ctx, user.ID)
		switch {
		case err == nil && existing.IsValid(now, s.resetValidDuration):
			reset = existing
			return nil
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return fmt.Errorf("error searching reset token: %w", err)
		}

		if err := repo.DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("error dropping stale reset tokens: %w", err)
		}
		reset, err = repo.Create(ctx, &models.PasswordResetToken{UserID: user.ID, Token: uuid.NewString(), CreatedAt: now})
		if err != nil {
			return fmt.Errorf("error creating reset token: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.recovery("reset_requested")
	s.send(ctx, notify.Message{
		Kind:      notify.KindResetPassword,
		UserID:    user.ID,
		Recipient: user.Email,
		Subject:   "Reset your password",
		Link:      s.link("/reset-password/", reset.Token),
	})
	return nil
}

// ConfirmPasswordReset sets newPassword and consumes the reset record.
func (s *RecoveryService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return common.ErrTokenInvalid
	}

	now := s.now()

	reset, err := s.repomanager.ResetTokens(s.db).FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrTokenInvalid
		}
		return fmt.Errorf("error searching reset token: %w", err)
	}
	if !reset.IsValid(now, s.resetValidDuration) {
		return common.ErrTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, reset.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	if err := validatePassword(newPassword, user.Email); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, user.ID); err != nil {
			return fmt.Errorf("error locking user: %w", err)
		}

		// a concurrent confirm may have consumed it while we were hashing
		current, err := s.repomanager.ResetTokens(tx).FindByToken(ctx, token)
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrTokenInvalid
		}
		if err != nil {
			return fmt.Errorf("error searching reset token: %w", err)
		}

		if err := s.repomanager.Users(tx).SetPassword(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("error setting password: %w", err)
		}
		if err := s.repomanager.ResetTokens(tx).Delete(ctx, current.ID); err != nil {
			return fmt.Errorf("error deleting reset token: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.recovery("password_reset")
	s.logger.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}
