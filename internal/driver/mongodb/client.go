package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nerrad567/docbind/internal/database"
	"github.com/nerrad567/docbind/internal/driver"
)

// Ensure Client implements the handle interfaces at compile time.
var (
	_ database.Handle = (*Client)(nil)
	_ database.Pinger = (*Client)(nil)
	_ driver.Indexer  = (*Client)(nil)
)

// Client is the connection handle returned by Driver.Connect.
//
// Thread Safety:
//   - All methods are safe for concurrent use; the underlying mongo.Client
//     is a pooled, goroutine-safe client.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Close disconnects from the server, waiting for in-use connections to be
// returned to the pool.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnecting mongodb client: %w", err)
	}
	return nil
}

// Ping verifies the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// Database returns the default database.
func (c *Client) Database() *mongo.Database {
	return c.db
}

// Collection returns a collection of the default database.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// Raw returns the underlying mongo.Client for advanced usage.
func (c *Client) Raw() *mongo.Client {
	return c.client
}

// EnsureIndexes creates the given single-field indexes on collection.
// Existing identical indexes are left untouched by the server.
func (c *Client) EnsureIndexes(ctx context.Context, collection string, specs []driver.IndexSpec) error {
	if len(specs) == 0 {
		return nil
	}

	models, err := indexModels(specs)
	if err != nil {
		return err
	}
	if err := driver.ValidateName(collection); err != nil {
		return err
	}

	if _, err := c.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrIndexFailed, collection, err)
	}
	return nil
}

// indexModels converts specs to MongoDB index models.
func indexModels(specs []driver.IndexSpec) ([]mongo.IndexModel, error) {
	models := make([]mongo.IndexModel, 0, len(specs))
	for _, s := range specs {
		if err := driver.ValidateName(s.Field); err != nil {
			return nil, err
		}

		order := 1
		if s.Descending {
			order = -1
		}

		m := mongo.IndexModel{Keys: bson.D{{Key: s.Field, Value: order}}}
		if s.Unique {
			m.Options = options.Index().SetUnique(true)
		}
		models = append(models, m)
	}
	return models, nil
}
