package resettokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.PasswordResetToken, error) {
	p := &models.PasswordResetToken{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&p.ID, &p.UserID, &p.Token, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) FindLatestByUser(ctx context.Context, userID string) (*models.PasswordResetToken, error) {
	return r.findOne(ctx,
		`SELECT id, user_id, token, created_at FROM password_reset_tokens WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`,
		userID)
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	return r.findOne(ctx,
		`SELECT id, user_id, token, created_at FROM password_reset_tokens WHERE token = $1`,
		token)
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.PasswordResetToken) (*models.PasswordResetToken, error) {
	query := `
		INSERT INTO password_reset_tokens (user_id, token, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, p.UserID, p.Token, p.CreatedAt).Scan(&p.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
