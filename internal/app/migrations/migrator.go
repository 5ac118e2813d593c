package migrations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// lockKey serializes migrators of several instances starting at once
const lockKey int64 = 0x636c6d6967 // "clmig"

const createVersionsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    VARCHAR(255) PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrator applies the numbered .sql files of a directory to PostgreSQL, each
// file in its own transaction, recording applied versions in schema_migrations.
type Migrator struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewMigrator(pool *pgxpool.Pool, logger zerolog.Logger) *Migrator {
	return &Migrator{pool: pool, logger: logger}
}

// Version is the leading number of a migration file name ("001_init.sql" is "001")
func Version(path string) string {
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '_'); i >= 0 {
		return name[:i]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// SQLFiles lists the .sql files of dir in execution order
func SQLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// MigrateFromDirectory applies every pending file of dir and returns how many ran.
// A session advisory lock is held for the whole run.
func (m *Migrator) MigrateFromDirectory(ctx context.Context, dir string) (int, error) {
	files, err := SQLFiles(dir)
	if err != nil {
		return 0, err
	}

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire migration connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", lockKey); err != nil {
		return 0, fmt.Errorf("failed to take migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", lockKey); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to release migration lock")
		}
	}()

	if _, err := conn.Exec(ctx, createVersionsTable); err != nil {
		return 0, fmt.Errorf("failed to create migration tracking table: %w", err)
	}
	done, err := appliedVersions(ctx, conn.Conn())
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, file := range files {
		version := Version(file)
		if done[version] {
			m.logger.Debug().Str("file", filepath.Base(file)).Msg("Migration already applied, skipping")
			continue
		}
		if err := apply(ctx, conn.Conn(), file, version); err != nil {
			return applied, err
		}
		m.logger.Info().Str("file", filepath.Base(file)).Msg("Migration applied")
		applied++
	}
	return applied, nil
}

func appliedVersions(ctx context.Context, conn *pgx.Conn) (map[string]bool, error) {
	rows, err := conn.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	done := make(map[string]bool, len(versions))
	for _, v := range versions {
		done[v] = true
	}
	return done, nil
}

// apply runs one file and records its version in the same transaction
func apply(ctx context.Context, conn *pgx.Conn, file, version string) error {
	body, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}
	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("migration %s failed: %w", filepath.Base(file), err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", version, err)
		}
		return nil
	})
}
