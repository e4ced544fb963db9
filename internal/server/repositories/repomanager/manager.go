// Package repomanager wires repositories to a database handle and runs
// schema migrations. Repositories are created per call against a DBTX so
// the same factory serves both pooled and transactional work.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dcastellanos/contenthub/internal/dbx"
	"github.com/dcastellanos/contenthub/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
