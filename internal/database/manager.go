package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// connectKey is the singleflight key shared by every Connect call.
// A Manager only ever has one logical connection, so one key suffices.
const connectKey = "connect"

// errNilHandle is reported when a driver returns neither a handle nor an error.
var errNilHandle = errors.New("driver returned nil handle")

// Manager owns the connection state machine of a Database.
//
// It guarantees at most one live handle and at most one in-flight connection
// attempt, however many goroutines call Connect concurrently. Callers that
// arrive while an attempt is running join that attempt and receive the same
// handle or the same error.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - The internal lock is never held across a driver call.
type Manager struct {
	driver Driver
	target string
	opts   ConnectOptions

	name      string
	id        string
	logger    *slog.Logger
	observers []Observer

	group singleflight.Group

	mu      sync.Mutex
	state   State
	handle  Handle
	attempt string // non-empty while CONNECTING

	// released is set once Disconnect has closed a handle, and cleared by
	// the next successful Connect. It makes repeated Disconnect calls no-ops.
	released bool
}

// newManager creates a Manager in the DISCONNECTED state.
func newManager(driver Driver, target string, opts ConnectOptions, name, id string, logger *slog.Logger, observers []Observer) *Manager {
	return &Manager{
		driver:    driver,
		target:    target,
		opts:      opts,
		name:      name,
		id:        id,
		logger:    logger,
		observers: observers,
		state:     StateDisconnected,
	}
}

// Connect returns the live connection handle, establishing it if needed.
//
// Behaviour:
//  1. If a handle exists it is returned without contacting the driver.
//  2. If an attempt is in flight the caller waits for that same attempt.
//  3. Otherwise a new attempt is started (DISCONNECTED -> CONNECTING).
//
// An attempt cannot be cancelled once started: it runs to completion with
// ctx's values but not its deadline, bounded only by the driver's own
// timeout. If ctx ends first this caller stops waiting and gets ctx.Err();
// the attempt's outcome is still recorded.
//
// Returns:
//   - Handle: The established handle
//   - error: Wraps ErrConnectionFailed if the driver fails
func (m *Manager) Connect(ctx context.Context) (Handle, error) {
	if h := m.Connection(); h != nil {
		return h, nil
	}

	ch := m.group.DoChan(connectKey, func() (any, error) {
		return m.attemptConnect(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Handle), nil //nolint:forcetypeassert // attemptConnect only returns Handle
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// attemptConnect runs one connection attempt. It is only ever executed
// inside the singleflight group, so at most one runs at a time.
func (m *Manager) attemptConnect(ctx context.Context) (Handle, error) {
	m.mu.Lock()
	// Another attempt may have completed between the fast-path check in
	// Connect and entering the group.
	if m.handle != nil {
		h := m.handle
		m.mu.Unlock()
		return h, nil
	}
	attempt := uuid.NewString()
	m.attempt = attempt
	t := m.transitionLocked(StateConnecting)
	t.Attempt = attempt
	m.mu.Unlock()
	m.notify(ctx, t)

	m.logger.Debug("connecting to store",
		"target", redact(m.target),
		"attempt", attempt,
	)

	start := time.Now()
	h, err := m.driver.Connect(ctx, m.target, m.opts)
	if err == nil && h == nil {
		err = errNilHandle
	}
	elapsed := time.Since(start)

	m.mu.Lock()
	m.attempt = ""
	if err != nil {
		t = m.transitionLocked(StateDisconnected)
		t.Attempt, t.Elapsed, t.Err = attempt, elapsed, err
		m.mu.Unlock()
		m.notify(ctx, t)

		m.logger.Warn("store connection failed",
			"target", redact(m.target),
			"attempt", attempt,
			"elapsed", elapsed,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	m.handle = h
	m.released = false
	t = m.transitionLocked(StateConnected)
	t.Attempt, t.Elapsed = attempt, elapsed
	m.mu.Unlock()
	m.notify(ctx, t)

	m.logger.Info("store connected",
		"target", redact(m.target),
		"attempt", attempt,
		"elapsed", elapsed,
	)
	return h, nil
}

// Disconnect closes the live connection and returns to DISCONNECTED.
//
// A Database that was never connected is connected first and then closed,
// so the driver sees exactly one connect and one close. Once a handle has
// been closed, further Disconnect calls return nil without contacting the
// driver until the next successful Connect.
//
// Returns:
//   - error: Wraps ErrConnectionFailed if the implicit connect fails, or
//     ErrCloseFailed if closing the handle fails (the handle is released
//     either way)
func (m *Manager) Disconnect(ctx context.Context) error {
	for {
		m.mu.Lock()
		if h := m.handle; h != nil {
			m.handle = nil
			m.released = true
			t := m.transitionLocked(StateDisconnected)
			m.mu.Unlock()
			m.notify(ctx, t)
			return m.close(ctx, h)
		}
		if m.released && m.attempt == "" {
			m.mu.Unlock()
			return nil
		}
		m.mu.Unlock()

		if _, err := m.Connect(ctx); err != nil {
			return err
		}
	}
}

// close releases h to the driver. It is called once per released handle.
func (m *Manager) close(ctx context.Context, h Handle) error {
	if err := h.Close(ctx); err != nil {
		m.logger.Error("closing store connection failed", "error", err)
		return fmt.Errorf("%w: %w", ErrCloseFailed, err)
	}
	m.logger.Info("store disconnected", "target", redact(m.target))
	return nil
}

// Connection returns the live handle when CONNECTED, otherwise nil.
// It never blocks on I/O and never changes state.
func (m *Manager) Connection() Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected {
		return nil
	}
	return m.handle
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// transitionLocked moves to next and describes the change. m.mu must be held.
func (m *Manager) transitionLocked(next State) Transition {
	t := Transition{
		Database: m.name,
		ID:       m.id,
		From:     m.state,
		To:       next,
		At:       time.Now().UTC(),
	}
	m.state = next
	return t
}

// notify delivers t to every observer in registration order.
func (m *Manager) notify(ctx context.Context, t Transition) {
	for _, o := range m.observers {
		o.OnStateChange(ctx, t)
	}
}
