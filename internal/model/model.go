package model

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/nerrad567/docbind/internal/database"
	"github.com/nerrad567/docbind/internal/driver"
	"github.com/nerrad567/docbind/internal/driver/mongodb"
)

// Ensure Base implements database.Model at compile time.
var _ database.Model = (*Base)(nil)

// Applier is implemented by plugins that act on a model when it is
// registered. Plugins without Apply are recorded but otherwise ignored.
type Applier interface {
	Apply(m *Base) error
}

// Base is a database.Model backed by one collection.
//
// It records the Database it is bound to and the plugin snapshot it
// received at registration. Index specs added by plugins (or AddIndex) are
// created by EnsureIndexes once the Database is connected.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Base struct {
	name       string
	collection string

	mu      sync.RWMutex
	db      *database.Database
	plugins []database.Plugin
	indexes []driver.IndexSpec
}

// Option configures a Base.
type Option func(*Base)

// WithCollection sets the collection name. Default: the model name.
func WithCollection(name string) Option {
	return func(b *Base) {
		b.collection = name
	}
}

// WithIndex adds an index spec at construction.
func WithIndex(spec driver.IndexSpec) Option {
	return func(b *Base) {
		b.indexes = append(b.indexes, spec)
	}
}

// New creates an unbound model.
func New(name string, opts ...Option) *Base {
	b := &Base{name: name, collection: name}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the model name.
func (b *Base) Name() string { return b.name }

// CollectionName returns the backing collection name.
func (b *Base) CollectionName() string { return b.collection }

// Bind records the owning Database. A later Bind replaces the earlier one.
func (b *Base) Bind(db *database.Database) {
	b.mu.Lock()
	b.db = db
	b.mu.Unlock()
}

// Database returns the bound Database, or nil before registration.
func (b *Base) Database() *database.Database {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.db
}

// Use stores the plugin snapshot and applies every plugin implementing
// Applier, in order. The first failing plugin stops the rest.
//
// Returns:
//   - error: Wraps ErrPluginFailed with the plugin name and cause
func (b *Base) Use(plugins []database.Plugin) error {
	b.mu.Lock()
	b.plugins = plugins
	b.mu.Unlock()

	for _, p := range plugins {
		a, ok := p.(Applier)
		if !ok {
			continue
		}
		if err := a.Apply(b); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrPluginFailed, p.Name(), err)
		}
	}
	return nil
}

// Plugins returns the plugins received at registration.
func (b *Base) Plugins() []database.Plugin {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.plugins)
}

// AddIndex records an index to be created by EnsureIndexes. A spec for a
// field already present replaces the earlier one.
func (b *Base) AddIndex(spec driver.IndexSpec) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.indexes {
		if existing.Field == spec.Field {
			b.indexes[i] = spec
			return
		}
	}
	b.indexes = append(b.indexes, spec)
}

// Indexes returns the recorded index specs.
func (b *Base) Indexes() []driver.IndexSpec {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.indexes)
}

// EnsureIndexes creates the recorded indexes on the live connection.
// It does not connect: call it after Database.Connect.
//
// Returns:
//   - error: ErrNotBound, ErrNotConnected, ErrUnsupportedHandle, or the
//     driver's index error
func (b *Base) EnsureIndexes(ctx context.Context) error {
	indexes := b.Indexes()
	if len(indexes) == 0 {
		return nil
	}

	h, err := b.handle()
	if err != nil {
		return err
	}
	ix, ok := h.(driver.Indexer)
	if !ok {
		return fmt.Errorf("%w: %T cannot create indexes", ErrUnsupportedHandle, h)
	}
	if err := ix.EnsureIndexes(ctx, b.collection, indexes); err != nil {
		return fmt.Errorf("model %s: %w", b.name, err)
	}
	return nil
}

// Collection returns the MongoDB collection backing the model.
//
// Returns:
//   - *mongo.Collection: The collection on the default database
//   - error: ErrNotBound, ErrNotConnected, or ErrUnsupportedHandle when the
//     store is not MongoDB
func (b *Base) Collection() (*mongo.Collection, error) {
	h, err := b.handle()
	if err != nil {
		return nil, err
	}
	c, ok := h.(*mongodb.Client)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a mongodb client", ErrUnsupportedHandle, h)
	}
	return c.Collection(b.collection), nil
}

// handle returns the live connection handle of the bound Database.
func (b *Base) handle() (database.Handle, error) {
	db := b.Database()
	if db == nil {
		return nil, ErrNotBound
	}
	h := db.Connection()
	if h == nil {
		return nil, ErrNotConnected
	}
	return h, nil
}
