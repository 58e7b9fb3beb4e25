package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNoPool is returned by Migrate on a DB built without a connection pool.
var ErrNoPool = errors.New("database has no connection pool")

// Migrate applies pending schema migrations and returns the file names of
// the migrations that were applied.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	if db.pool == nil {
		return nil, ErrNoPool
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer sqlDB.Close()

	provider, err := newMigrator(sqlDB)
	if err != nil {
		return nil, err
	}

	results, err := provider.Up(ctx)
	applied := make([]string, 0, len(results))
	for _, r := range results {
		applied = append(applied, path.Base(r.Source.Path))
	}
	if err != nil {
		return applied, fmt.Errorf("applying migrations: %w", err)
	}
	return applied, nil
}

// newMigrator builds a goose provider over the embedded migrations.
func newMigrator(sqlDB *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return provider, nil
}
