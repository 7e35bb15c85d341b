package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type RegistrationService struct {
	db                       *sql.DB
	repomanager              repomanager.RepositoryManager
	hasher                   *auth.PasswordHasher
	recovery                 *RecoveryService
	requireEmailVerification bool
	logger                   logging.Logger
}

func NewRegistrationService(db *sql.DB, m repomanager.RepositoryManager, recovery *RecoveryService, cfg *config.Config, logger logging.Logger) *RegistrationService {
	return &RegistrationService{
		db:                       db,
		repomanager:              m,
		hasher:                   auth.NewPasswordHasher(cfg.BcryptCost),
		recovery:                 recovery,
		requireEmailVerification: cfg.RequireEmailVerification,
		logger:                   logger.With("module", "registration"),
	}
}

// Register creates the identity together with its verification record and
// sends the verification link. A taken email is a validation failure.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)

	if err := validatePassword(in.Password, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     !s.requireEmailVerification,
	}

	var verification *models.EmailVerification

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.NewValidationError("email", "user with this email already exists")
			}
			return fmt.Errorf("error creating user: %w", err)
		}
		user = created

		verification, err = s.recovery.ensureVerification(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recovery.notifyVerification(ctx, user, verification)
	s.logger.Info(ctx, "user registered", "user_id", user.ID, "active", user.IsActive)
	return user, nil
}
