package sqlite

import (
	"context"
	"embed"
	"io/fs"
	"slices"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

//go:embed testdata/*.sql
var testdataFS embed.FS

// testMigrations returns the test migration files rooted at testdata.
func testMigrations(t *testing.T) fs.FS {
	t.Helper()
	sub, err := fs.Sub(testdataFS, "testdata")
	if err != nil {
		t.Fatalf("fs.Sub() error = %v", err)
	}
	return sub
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master query error = %v", err)
	}
	return n == 1
}

// TestMigrate verifies migrations apply once and are reported as applied.
func TestMigrate(t *testing.T) {
	db := openTestDB(t, testMigrations(t))
	defer db.Close(context.Background()) //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "notes") {
		t.Fatal("table notes not created")
	}

	status, err := db.SchemaStatus(ctx)
	if err != nil {
		t.Fatalf("SchemaStatus() error = %v", err)
	}
	if !slices.Equal(status.Applied, []string{"20261018_090000_create_notes"}) {
		t.Errorf("Applied = %v", status.Applied)
	}
	if len(status.Pending) != 0 {
		t.Errorf("Pending = %v, want none", status.Pending)
	}

	// Running again must not re-run CREATE TABLE.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestMigrateNoMigrations verifies a nil FS still creates the version table.
func TestMigrateNoMigrations(t *testing.T) {
	db := openTestDB(t, nil)
	defer db.Close(context.Background()) //nolint:errcheck // Test cleanup
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
	status, err := db.SchemaStatus(ctx)
	if err != nil {
		t.Fatalf("SchemaStatus() error = %v", err)
	}
	if status.Applied == nil || status.Pending == nil {
		t.Error("SchemaStatus() lists should be empty, not nil")
	}
}

// TestMigrateStopsAtFailure verifies earlier migrations stay applied and
// the failed one is still pending.
func TestMigrateStopsAtFailure(t *testing.T) {
	fsys := fstest.MapFS{
		"20261018_090000_create_notes.up.sql": {Data: []byte("CREATE TABLE notes (id TEXT PRIMARY KEY) STRICT;")},
		"20261018_100000_broken.up.sql":       {Data: []byte("CREATE TABLE notes (id TEXT);")},
		"20261018_110000_create_tags.up.sql":  {Data: []byte("CREATE TABLE tags (id TEXT) STRICT;")},
	}
	db := openTestDB(t, fsys)
	defer db.Close(context.Background()) //nolint:errcheck // Test cleanup
	ctx := context.Background()

	err := db.Migrate(ctx)
	if err == nil || !strings.Contains(err.Error(), "20261018_100000_broken") {
		t.Fatalf("Migrate() error = %v, want failure naming the broken migration", err)
	}
	if tableExists(t, db, "tags") {
		t.Error("migrations after the failure should not run")
	}

	status, err := db.SchemaStatus(ctx)
	if err != nil {
		t.Fatalf("SchemaStatus() error = %v", err)
	}
	if !slices.Equal(status.Applied, []string{"20261018_090000_create_notes"}) {
		t.Errorf("Applied = %v", status.Applied)
	}
	want := []string{"20261018_100000_broken", "20261018_110000_create_tags"}
	if !slices.Equal(status.Pending, want) {
		t.Errorf("Pending = %v, want %v", status.Pending, want)
	}
}

func TestLoadMigrations(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		want    []string
		wantErr string
	}{
		{
			name: "sorted by version",
			fsys: fstest.MapFS{
				"20261019_000000_b.up.sql": {Data: []byte("SELECT 1;")},
				"20261018_000000_a.up.sql": {Data: []byte("SELECT 1;")},
				"README.md":                {Data: []byte("ignored")},
			},
			want: []string{"20261018_000000_a", "20261019_000000_b"},
		},
		{
			name:    "misnamed file",
			fsys:    fstest.MapFS{"initial.up.sql": {Data: []byte("SELECT 1;")}},
			wantErr: "initial.up.sql",
		},
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"20261018_000000_a.up.sql": {Data: []byte("SELECT 1;")},
				"20261018_000000_b.up.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: "already used",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadMigrations(tt.fsys)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("loadMigrations() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadMigrations() error = %v", err)
			}
			names := make([]string, len(got))
			for i, m := range got {
				names[i] = m.String()
			}
			if !slices.Equal(names, tt.want) {
				t.Errorf("loadMigrations() = %v, want %v", names, tt.want)
			}
		})
	}
}

func TestParseMigrationName(t *testing.T) {
	tests := []struct {
		file        string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{"20261018_120000_documents.up.sql", "20261018_120000", "documents", true},
		{"20261018_120000_add_tags_to_documents.up.sql", "20261018_120000", "add_tags_to_documents", true},
		{"20261018_120000_documents.down.sql", "", "", false},
		{"20261018_120000_documents.sql", "", "", false},
		{"2026101x_120000_documents.up.sql", "", "", false},
		{"20261018_120000_.up.sql", "", "", false},
		{"readme.txt", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			version, name, ok := parseMigrationName(tt.file)
			if ok != tt.wantOK || version != tt.wantVersion || name != tt.wantName {
				t.Errorf("parseMigrationName(%q) = %q, %q, %v; want %q, %q, %v",
					tt.file, version, name, ok, tt.wantVersion, tt.wantName, tt.wantOK)
			}
		})
	}
}
