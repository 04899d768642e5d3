// Package db contains the SQLite schema, row models, and queries used by the
// storage package.
package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite" // sqlite sql.DB driver initialization
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, _ string) error {
		const initSQL = `
		pragma journal_mode = WAL; -- allow concurrent readers
		pragma synchronous = normal; -- don't wait for fsync except on checkpointing
		pragma foreign_keys = on;
		pragma busy_timeout = 5000;
		`
		_, err := conn.ExecContext(context.Background(), initSQL, nil)
		return err
	})
}

// Open initializes a SQLite DB connection to the specified dbPath. If the
// database file does not exist, it attempts to create it, and then migrates the
// database to the current schema.
func Open(ctx context.Context, logger *slog.Logger, dbPath string) (*sqlx.DB, error) {
	if dbPath != MemoryPath {
		if _, err := os.Stat(dbPath); err != nil {
			const userOnlyDirPerms = 0o700
			if err = os.MkdirAll(filepath.Dir(dbPath), userOnlyDirPerms); err != nil {
				return nil, fmt.Errorf("failed to create db parent directory: %w", err)
			}
		}
	}

	dsn := dbPath
	if strings.ContainsRune(dsn, '?') {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_txlock=immediate"

	handle, err := sqlx.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create DB handler: %w", err)
	} else if err = handle.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	// a single connection keeps :memory: databases alive and serializes writers
	handle.SetMaxOpenConns(1)

	if err = migrate(ctx, logger.With(slog.String("db", dbPath)), handle); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	return handle, nil
}

func migrate(ctx context.Context, logger *slog.Logger, handle *sqlx.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, handle.DB, fsys,
		goose.WithLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)),
		goose.WithVerbose(true),
	)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}
