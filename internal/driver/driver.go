// Package driver holds the types shared by the store drivers.
//
// The drivers themselves live in the mongodb and sqlite subpackages; each
// implements database.Driver and returns a handle that also satisfies
// Indexer.
package driver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// IndexSpec describes a single-field index on a collection.
type IndexSpec struct {
	// Field is the document field, dotted for nested fields ("meta.created_at").
	Field string

	// Unique rejects duplicate values of Field within the collection.
	Unique bool

	// Descending orders the index high-to-low.
	Descending bool
}

// Indexer is implemented by handles that can create collection indexes.
type Indexer interface {
	EnsureIndexes(ctx context.Context, collection string, specs []IndexSpec) error
}

// ErrInvalidName is returned for collection or field names that cannot be
// used safely by a driver.
var ErrInvalidName = errors.New("driver: invalid collection or field name")

// namePattern restricts collection and field names to identifier-like
// strings. Dots separate nested fields.
var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidateName checks a collection or field name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
