package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		DriverName() string
		Rebind(query string) string
		BindNamed(query string, arg interface{}) (string, []interface{}, error)

		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
		QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	}

	// Transactor runs fn inside a single database transaction, committing when fn returns nil.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)

var _ DBExecutor = (*sqlx.DB)(nil)
var _ DBExecutor = (*sqlx.Tx)(nil)
