package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeHandle is a Handle that counts Close calls.
type fakeHandle struct {
	id       int
	closes   atomic.Int32
	closeErr error
	pingErr  error
}

func (h *fakeHandle) Close(context.Context) error {
	h.closes.Add(1)
	return h.closeErr
}

func (h *fakeHandle) Ping(context.Context) error {
	return h.pingErr
}

// fakeDriver is a Driver that records every call. When gate is non-nil,
// Connect blocks until it is closed.
type fakeDriver struct {
	mu      sync.Mutex
	calls   int
	targets []string
	handles []*fakeHandle
	errs    []error // consumed in order; nil entries succeed

	closeErr error

	gate    chan struct{}
	entered chan struct{}
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{entered: make(chan struct{}, 16)}
}

func (d *fakeDriver) Connect(_ context.Context, target string, _ ConnectOptions) (Handle, error) {
	d.mu.Lock()
	d.calls++
	n := d.calls
	d.targets = append(d.targets, target)
	var err error
	if len(d.errs) > 0 {
		err = d.errs[0]
		d.errs = d.errs[1:]
	}
	gate := d.gate
	d.mu.Unlock()

	d.entered <- struct{}{}
	if gate != nil {
		<-gate
	}

	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	h := &fakeHandle{id: n, closeErr: d.closeErr}
	d.handles = append(d.handles, h)
	d.mu.Unlock()
	return h, nil
}

func (d *fakeDriver) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDriver) totalCloses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, h := range d.handles {
		total += int(h.closes.Load())
	}
	return total
}

// fakePlugin is a named Plugin.
type fakePlugin string

func (p fakePlugin) Name() string { return string(p) }

// fakeModel records Bind and Use calls.
type fakeModel struct {
	name    string
	db      *Database
	uses    [][]Plugin
	failUse error
}

func (m *fakeModel) Name() string       { return m.name }
func (m *fakeModel) Bind(db *Database) { m.db = db }

func (m *fakeModel) Use(plugins []Plugin) error {
	m.uses = append(m.uses, plugins)
	return m.failUse
}

var errDriver = errors.New("connection refused")

// recorder is an Observer that keeps every transition.
type recorder struct {
	mu sync.Mutex
	ts []Transition
}

func (r *recorder) OnStateChange(_ context.Context, t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ts = append(r.ts, t)
}

func (r *recorder) transitions() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transition, len(r.ts))
	copy(out, r.ts)
	return out
}

// newTestDatabase creates a Database on localhost with a silent logger.
func newTestDatabase(t *testing.T, drv Driver, opts ...Option) *Database {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	db, err := New(Config{URL: "localhost"}, drv, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return db
}

// waitEntered blocks until the driver has entered Connect n times.
func waitEntered(t *testing.T, d *fakeDriver, n int) {
	t.Helper()
	for range n {
		select {
		case <-d.entered:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for driver Connect")
		}
	}
}
