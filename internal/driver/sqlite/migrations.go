package sqlite

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/nerrad567/docbind/internal/database"
)

// Migration files are named YYYYMMDD_HHMMSS_name.up.sql. Only forward
// migrations exist; a schema change is undone by a later migration.
const migrationSuffix = ".up.sql"

const createSchemaTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TEXT NOT NULL
) STRICT`

var _ database.SchemaReporter = (*DB)(nil)

// migration is one schema change read from the migrations FS.
type migration struct {
	version string
	name    string
	sql     string
}

func (m migration) String() string { return m.version + "_" + m.name }

// Migrate applies pending migrations in version order, each in its own
// transaction. Migrations committed before a failure stay applied, and the
// next call resumes at the one that failed.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, createSchemaTable); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	all, err := loadMigrations(db.migrations)
	if err != nil {
		return err
	}
	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range all {
		if applied[m.version] {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %s: %w", m, err)
		}
	}
	return nil
}

// SchemaStatus reports which migrations are applied and which are pending.
// It is only meaningful after Migrate has created schema_migrations, which
// Driver.Connect always does.
func (db *DB) SchemaStatus(ctx context.Context) (database.SchemaStatus, error) {
	all, err := loadMigrations(db.migrations)
	if err != nil {
		return database.SchemaStatus{}, err
	}
	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return database.SchemaStatus{}, err
	}

	status := database.SchemaStatus{Applied: []string{}, Pending: []string{}}
	for _, m := range all {
		if applied[m.version] {
			status.Applied = append(status.Applied, m.String())
		} else {
			status.Pending = append(status.Pending, m.String())
		}
	}
	return status, nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("reading schema_migrations: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (db *DB) apply(ctx context.Context, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// loadMigrations reads the forward migrations at the root of fsys, sorted
// by version. A nil fsys has none. Misnamed or duplicate files are errors
// rather than being skipped.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	if fsys == nil {
		return nil, nil
	}
	files, err := fs.Glob(fsys, "*"+migrationSuffix)
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	slices.Sort(files)

	out := make([]migration, 0, len(files))
	for _, f := range files {
		version, name, ok := parseMigrationName(f)
		if !ok {
			return nil, fmt.Errorf("migration %s: want YYYYMMDD_HHMMSS_name%s", f, migrationSuffix)
		}
		if n := len(out); n > 0 && out[n-1].version == version {
			return nil, fmt.Errorf("migration %s: version %s already used by %s", f, version, out[n-1])
		}
		body, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", f, err)
		}
		out = append(out, migration{version: version, name: name, sql: string(body)})
	}
	return out, nil
}

// parseMigrationName splits "20261018_120000_documents.up.sql" into
// "20261018_120000" and "documents".
func parseMigrationName(file string) (version, name string, ok bool) {
	base, found := strings.CutSuffix(file, migrationSuffix)
	if !found {
		return "", "", false
	}
	parts := strings.SplitN(base, "_", 3)
	if len(parts) != 3 || len(parts[0]) != 8 || len(parts[1]) != 6 || parts[2] == "" {
		return "", "", false
	}
	if !allDigits(parts[0]) || !allDigits(parts[1]) {
		return "", "", false
	}
	return parts[0] + "_" + parts[1], parts[2], true
}

func allDigits(s string) bool {
	return strings.Trim(s, "0123456789") == ""
}
