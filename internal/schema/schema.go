// Package schema creates the tables the repositories read and write.
package schema

import (
	"context"
	_ "embed"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var ddl string

// Apply creates any missing tables and indexes. It is safe to run on every start.
func Apply(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, ddl)
	return err
}
