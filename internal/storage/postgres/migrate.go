package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockKey identifies the transaction-scoped advisory lock held while migrating.
const migrationLockKey int64 = 4210337

const ensureMigrationTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	filename   TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrate applies the embedded migrations that have not been recorded yet, in filename
// order, inside one transaction guarded by an advisory lock. It returns the names of the
// migrations it applied.
func Migrate(ctx context.Context, pool Pool, logger *zap.Logger) (applied []string, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("migrate")

	names, err := migrationNames()
	if err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin migration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockKey); err != nil {
		return nil, fmt.Errorf("acquire migration lock: %w", err)
	}
	if _, err = tx.Exec(ctx, ensureMigrationTableSQL); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations: %w", err)
	}

	done := make(map[string]bool)
	rows, err := tx.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan migration row: %w", err)
		}
		done[name] = true
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}

	for _, name := range names {
		if done[name] {
			continue
		}
		var body []byte
		body, err = migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		log.Info("applying migration", zap.String("file", name))
		if _, err = tx.Exec(ctx, string(body)); err != nil {
			return nil, fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err = tx.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", name); err != nil {
			return nil, fmt.Errorf("record migration %s: %w", name, err)
		}
		applied = append(applied, name)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit migrations: %w", err)
	}
	log.Info("schema up to date", zap.Int("applied", len(applied)))
	return applied, nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
