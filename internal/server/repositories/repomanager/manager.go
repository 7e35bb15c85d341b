package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/blacklist"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/verifications"
)

// RepositoryManager vends repositories bound to a DBTX so that services can
// run the same repository code inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Blacklist(db dbx.DBTX) blacklist.Repository
	Verifications(db dbx.DBTX) verifications.Repository
	ResetTokens(db dbx.DBTX) resettokens.Repository
}
