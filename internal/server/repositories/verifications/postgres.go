package verifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, user_id, token, created_at, is_verified`

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.EmailVerification, error) {
	v := &models.EmailVerification{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&v.ID, &v.UserID, &v.Token, &v.CreatedAt, &v.IsVerified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (*models.EmailVerification, error) {
	return r.findOne(ctx, `SELECT `+selectColumns+` FROM email_verifications WHERE user_id = $1`, userID)
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.EmailVerification, error) {
	return r.findOne(ctx, `SELECT `+selectColumns+` FROM email_verifications WHERE token = $1`, token)
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.EmailVerification) (*models.EmailVerification, error) {
	query := `
		INSERT INTO email_verifications (user_id, token, created_at, is_verified)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, v.UserID, v.Token, v.CreatedAt, v.IsVerified).Scan(&v.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Renew(ctx context.Context, id string, token string, createdAt time.Time) error {
	return r.exec(ctx, `UPDATE email_verifications SET token = $2, created_at = $3 WHERE id = $1`, id, token, createdAt)
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE email_verifications SET is_verified = TRUE WHERE id = $1`, id)
}
