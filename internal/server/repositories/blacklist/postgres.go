package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, entry models.BlacklistEntry) error {
	query := `
		INSERT INTO token_blacklist (token, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token) DO UPDATE
		SET expires_at = GREATEST(token_blacklist.expires_at, EXCLUDED.expires_at)
	`
	if _, err := r.db.ExecContext(ctx, query, entry.Token, entry.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) IsBlacklisted(ctx context.Context, token string, now time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE token = $1 AND expires_at > $2)`

	var found bool
	if err := r.db.QueryRowContext(ctx, query, token, now).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM token_blacklist WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
