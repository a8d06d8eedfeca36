package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/docbind/internal/driver"
)

// Ensure DB implements driver.Indexer at compile time.
var _ driver.Indexer = (*DB)(nil)

// EnsureIndexes creates partial expression indexes on the JSON body of
// documents in collection. Names are validated before being placed in DDL
// since SQLite cannot bind parameters there.
func (db *DB) EnsureIndexes(ctx context.Context, collection string, specs []driver.IndexSpec) error {
	if err := driver.ValidateName(collection); err != nil {
		return err
	}

	for _, s := range specs {
		stmt, err := indexStatement(collection, s)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index on %s.%s: %w", collection, s.Field, err)
		}
	}
	return nil
}

// indexStatement builds the CREATE INDEX statement for one spec.
func indexStatement(collection string, s driver.IndexSpec) (string, error) {
	if err := driver.ValidateName(s.Field); err != nil {
		return "", err
	}

	unique := ""
	if s.Unique {
		unique = "UNIQUE "
	}
	order := "ASC"
	if s.Descending {
		order = "DESC"
	}
	name := fmt.Sprintf("idx_doc_%s_%s", collection, strings.ReplaceAll(s.Field, ".", "_"))

	return fmt.Sprintf(
		"CREATE %sINDEX IF NOT EXISTS %s ON documents (json_extract(body, '$.%s') %s) WHERE collection = '%s'",
		unique, name, s.Field, order, collection,
	), nil
}
