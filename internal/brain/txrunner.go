package brain

import (
	"context"

	"basegraph.app/rubberduck/core/db"
	"basegraph.app/rubberduck/core/db/sqlc"
	"basegraph.app/rubberduck/internal/store"
)

// StoreProvider exposes the stores the orchestrator reads and writes.
// *store.Stores satisfies it.
type StoreProvider interface {
	Projects() store.ProjectStore
	Snapshots() store.SnapshotStore
	Issues() store.IssueStore
}

// TxRunner runs functions within a database transaction. Bootstrap and
// refresh use it so a project record never exists without its snapshot.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

func NewTxRunner(db *db.DB) TxRunner {
	return &dbTxRunner{db: db}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(q *sqlc.Queries) error {
		return fn(store.NewStores(q))
	})
}
