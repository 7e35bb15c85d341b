package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

type PurgeResult struct {
	BlacklistPurged int64
	SessionsPurged  int64
}

// MaintenanceService garbage-collects expired ledger rows. Expired rows are
// already ignored by every lookup, so purging only reclaims space.
type MaintenanceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	options
}

func NewMaintenanceService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, opts ...Option) *MaintenanceService {
	return &MaintenanceService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "maintenance"),
		options:     buildOptions(opts),
	}
}

func (s *MaintenanceService) Purge(ctx context.Context) (*PurgeResult, error) {
	now := s.now()

	blacklisted, err := s.repomanager.Blacklist(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("error purging blacklist: %w", err)
	}

	sessions, err := s.repomanager.Sessions(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("error purging sessions: %w", err)
	}

	res := &PurgeResult{BlacklistPurged: blacklisted, SessionsPurged: sessions}
	s.logger.Info(ctx, "expired ledger rows purged", "blacklist", blacklisted, "sessions", sessions)
	return res, nil
}
