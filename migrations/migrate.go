// Package migrations applies the embedded schema with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	// Register the pgx stdlib driver used by database/sql here.
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed postgres/*.sql
var migrationsFS embed.FS

var gooseMu sync.Mutex

// Apply runs all pending migrations against the given DSN.
func Apply(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer db.Close()
	return ApplyDB(ctx, db)
}

// ApplyDB runs all pending migrations on an existing *sql.DB. Goose's
// filesystem hooks are process-global, hence the lock.
func ApplyDB(_ context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "postgres"); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
