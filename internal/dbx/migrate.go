// Package dbx wires the Postgres connection pool and schema migrations.
// Named dbx rather than db to avoid colliding with the SQL migration
// tree, which lives at internal/dbx/migrations.
package dbx

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration under internal/dbx/migrations.
// Grounded on dsmolchanov-nerve's internal/store/migrate.go, which runs
// goose against the same DATABASE_URL the pgxpool connects to.
func Migrate(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetDialect("postgres")
	goose.SetTableName("schema_migrations")
	return goose.UpContext(ctx, db, "internal/dbx/migrations")
}
