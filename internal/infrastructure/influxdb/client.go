package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/docbind/internal/infrastructure/config"
)

// ErrConnectionFailed is returned by Connect when the server cannot be
// reached or reports itself unhealthy.
var ErrConnectionFailed = errors.New("influxdb: connection failed")

const (
	pingTimeout         = 10 * time.Second
	defaultBatchSize    = 100
	defaultFlushSeconds = 10
)

// Client queues points for one bucket on the library's batching,
// non-blocking write API. Points written after Close are dropped.
type Client struct {
	client  influxdb2.Client
	writer  api.WriteAPI
	closed  atomic.Bool
	onError atomic.Pointer[func(error)]
}

// Connect creates the client and pings the server once, bounded by ctx
// and pingTimeout.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	opts := influxdb2.DefaultOptions().
		SetApplicationName("docbind").
		SetBatchSize(positive(cfg.BatchSize, defaultBatchSize)).
		SetFlushInterval(positive(cfg.FlushInterval, defaultFlushSeconds) * 1000)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	ok, err := client.Ping(pingCtx)
	if err != nil || !ok {
		client.Close()
		if err == nil {
			err = errors.New("server reported unhealthy")
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	c := &Client{
		client: client,
		writer: client.WriteAPI(cfg.Org, cfg.Bucket),
	}
	go c.forwardErrors(c.writer.Errors())
	return c, nil
}

// positive returns v as a uint, or def when v is not positive.
func positive(v, def int) uint {
	if v <= 0 {
		v = def
	}
	return uint(v) //nolint:gosec // v > 0
}

// forwardErrors hands asynchronous batch failures to the SetOnError
// callback until the write API shuts down.
func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		if fn := c.onError.Load(); fn != nil {
			(*fn)(err)
		}
	}
}

// SetOnError registers fn for write failures. Writes are batched, so
// failures surface here rather than at the call site.
func (c *Client) SetOnError(fn func(err error)) {
	c.onError.Store(&fn)
}

func (c *Client) write(p *write.Point) {
	if c.closed.Load() {
		return
	}
	c.writer.WritePoint(p)
}

// Close flushes queued points and releases the client. Later calls are
// no-ops.
func (c *Client) Close() error {
	if c.client == nil || c.closed.Swap(true) {
		return nil
	}
	c.writer.Flush()
	c.client.Close()
	return nil
}
