package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Connect Tests
// =============================================================================

func TestConnect_ConcurrentCallersShareOneAttempt(t *testing.T) {
	drv := newFakeDriver()
	drv.gate = make(chan struct{})
	db := newTestDatabase(t, drv)

	const callers = 10
	handles := make([]Handle, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = db.Connect(context.Background())
		}(i)
	}

	waitEntered(t, drv, 1)

	if got := db.State(); got != StateConnecting {
		t.Errorf("State() during attempt = %v, want %v", got, StateConnecting)
	}
	if db.Connection() != nil {
		t.Error("Connection() during attempt should be nil")
	}

	close(drv.gate)
	wg.Wait()

	if got := drv.callCount(); got != 1 {
		t.Fatalf("driver Connect called %d times, want 1", got)
	}
	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("Connect() caller %d error = %v", i, errs[i])
		}
		if handles[i] != handles[0] {
			t.Errorf("caller %d got a different handle", i)
		}
	}
	if got := db.State(); got != StateConnected {
		t.Errorf("State() = %v, want %v", got, StateConnected)
	}
}

func TestConnect_FastPathReusesHandle(t *testing.T) {
	drv := newFakeDriver()
	db := newTestDatabase(t, drv)
	ctx := context.Background()

	first, err := db.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		h, err := db.Connect(ctx)
		if err != nil {
			t.Fatalf("Connect() call %d error = %v", i+2, err)
		}
		if h != first {
			t.Errorf("Connect() call %d returned a different handle", i+2)
		}
	}

	if got := drv.callCount(); got != 1 {
		t.Errorf("driver Connect called %d times, want 1", got)
	}
	if db.Connection() != first {
		t.Error("Connection() should return the established handle")
	}
}

func TestConnect_FailureResetsState(t *testing.T) {
	drv := newFakeDriver()
	drv.errs = []error{errDriver}
	db := newTestDatabase(t, drv)
	ctx := context.Background()

	_, err := db.Connect(ctx)
	if err == nil {
		t.Fatal("Connect() should fail when the driver fails")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if !errors.Is(err, errDriver) {
		t.Errorf("Connect() error = %v, should wrap the driver error", err)
	}
	if got := db.State(); got != StateDisconnected {
		t.Errorf("State() = %v, want %v", got, StateDisconnected)
	}
	if db.Connection() != nil {
		t.Error("Connection() should be nil after a failed connect")
	}

	// Retry is caller-initiated and starts a fresh attempt.
	if _, err := db.Connect(ctx); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if got := drv.callCount(); got != 2 {
		t.Errorf("driver Connect called %d times, want 2", got)
	}
	if got := db.State(); got != StateConnected {
		t.Errorf("State() = %v, want %v", got, StateConnected)
	}
}

func TestConnect_ConcurrentCallersShareFailure(t *testing.T) {
	drv := newFakeDriver()
	drv.gate = make(chan struct{})
	drv.errs = []error{errDriver}
	db := newTestDatabase(t, drv)

	const joiners = 4
	errs := make([]error, joiners+1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = db.Connect(context.Background())
	}()

	// Joiners arrive only once the attempt is inside the driver.
	waitEntered(t, drv, 1)
	var started sync.WaitGroup
	for i := 1; i <= joiners; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			_, errs[i] = db.Connect(context.Background())
		}(i)
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)

	if got := db.State(); got != StateConnecting {
		t.Errorf("State() with joiners waiting = %v, want %v", got, StateConnecting)
	}
	close(drv.gate)
	wg.Wait()

	if got := drv.callCount(); got != 1 {
		t.Fatalf("driver Connect called %d times, want 1", got)
	}
	for i, err := range errs {
		if !errors.Is(err, ErrConnectionFailed) || !errors.Is(err, errDriver) {
			t.Errorf("caller %d error = %v, want ErrConnectionFailed wrapping the driver error", i, err)
		}
	}
	if got := db.State(); got != StateDisconnected {
		t.Errorf("State() = %v, want %v", got, StateDisconnected)
	}
}

func TestConnect_NilHandleIsFailure(t *testing.T) {
	drv := DriverFunc(func(context.Context, string, ConnectOptions) (Handle, error) {
		return nil, nil
	})
	db := newTestDatabase(t, drv)

	_, err := db.Connect(context.Background())
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if got := db.State(); got != StateDisconnected {
		t.Errorf("State() = %v, want %v", got, StateDisconnected)
	}
}

func TestConnect_CallerContextDoesNotAbortAttempt(t *testing.T) {
	drv := newFakeDriver()
	drv.gate = make(chan struct{})
	db := newTestDatabase(t, drv)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := db.Connect(ctx)
		done <- err
	}()

	waitEntered(t, drv, 1)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Connect() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Connect() did not return after its context was cancelled")
	}

	// The attempt is still in flight and completes on its own.
	if got := db.State(); got != StateConnecting {
		t.Errorf("State() = %v, want %v", got, StateConnecting)
	}
	close(drv.gate)

	h, err := db.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() after release error = %v", err)
	}
	if h == nil {
		t.Fatal("Connect() returned nil handle")
	}
	if got := drv.callCount(); got != 1 {
		t.Errorf("driver Connect called %d times, want 1", got)
	}
}

// =============================================================================
// Disconnect Tests
// =============================================================================

func TestDisconnect_NeverConnected(t *testing.T) {
	drv := newFakeDriver()
	db := newTestDatabase(t, drv)

	if err := db.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}

	if got := drv.callCount(); got != 1 {
		t.Errorf("driver Connect called %d times, want 1", got)
	}
	if got := drv.totalCloses(); got != 1 {
		t.Errorf("handle Close called %d times, want 1", got)
	}
	if got := db.State(); got != StateDisconnected {
		t.Errorf("State() = %v, want %v", got, StateDisconnected)
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	drv := newFakeDriver()
	db := newTestDatabase(t, drv)
	ctx := context.Background()

	if _, err := db.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := db.Disconnect(ctx); err != nil {
			t.Fatalf("Disconnect() call %d error = %v", i+1, err)
		}
	}

	if got := drv.callCount(); got != 1 {
		t.Errorf("driver Connect called %d times, want 1", got)
	}
	if got := drv.totalCloses(); got != 1 {
		t.Errorf("handle Close called %d times, want 1", got)
	}
	if db.Connection() != nil {
		t.Error("Connection() should be nil after Disconnect()")
	}
}

func TestDisconnect_Reconnect(t *testing.T) {
	drv := newFakeDriver()
	db := newTestDatabase(t, drv)
	ctx := context.Background()

	first, err := db.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := db.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}

	second, err := db.Connect(ctx)
	if err != nil {
		t.Fatalf("reconnect error = %v", err)
	}
	if second == first {
		t.Error("reconnect should establish a new handle")
	}
	if err := db.Disconnect(ctx); err != nil {
		t.Fatalf("second Disconnect() error = %v", err)
	}

	if got := drv.callCount(); got != 2 {
		t.Errorf("driver Connect called %d times, want 2", got)
	}
	if got := drv.totalCloses(); got != 2 {
		t.Errorf("handle Close called %d times, want 2", got)
	}
}

func TestDisconnect_ConnectFailure(t *testing.T) {
	drv := newFakeDriver()
	drv.errs = []error{errDriver}
	db := newTestDatabase(t, drv)

	err := db.Disconnect(context.Background())
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Disconnect() error = %v, want ErrConnectionFailed", err)
	}
	if got := db.State(); got != StateDisconnected {
		t.Errorf("State() = %v, want %v", got, StateDisconnected)
	}
}

func TestDisconnect_CloseFailureReleasesHandle(t *testing.T) {
	drv := newFakeDriver()
	drv.closeErr = errors.New("socket already closed")
	db := newTestDatabase(t, drv)
	ctx := context.Background()

	if _, err := db.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	err := db.Disconnect(ctx)
	if !errors.Is(err, ErrCloseFailed) {
		t.Fatalf("Disconnect() error = %v, want ErrCloseFailed", err)
	}
	if got := db.State(); got != StateDisconnected {
		t.Errorf("State() = %v, want %v", got, StateDisconnected)
	}
	if err := db.Disconnect(ctx); err != nil {
		t.Errorf("second Disconnect() error = %v, want nil", err)
	}
	if got := drv.totalCloses(); got != 1 {
		t.Errorf("handle Close called %d times, want 1", got)
	}
}

func TestDisconnect_Concurrent(t *testing.T) {
	drv := newFakeDriver()
	db := newTestDatabase(t, drv)
	ctx := context.Background()

	if _, err := db.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := db.Disconnect(ctx); err != nil {
				t.Errorf("Disconnect() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := drv.totalCloses(); got != 1 {
		t.Errorf("handle Close called %d times, want 1", got)
	}
}

// =============================================================================
// Observer Tests
// =============================================================================

func TestObserver_Transitions(t *testing.T) {
	drv := newFakeDriver()
	rec := &recorder{}
	db := newTestDatabase(t, drv, WithName("orders"), WithObserver(rec))
	ctx := context.Background()

	if _, err := db.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := db.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}

	want := [][2]State{
		{StateDisconnected, StateConnecting},
		{StateConnecting, StateConnected},
		{StateConnected, StateDisconnected},
	}
	got := rec.transitions()
	if len(got) != len(want) {
		t.Fatalf("got %d transitions, want %d", len(got), len(want))
	}
	for i, tr := range got {
		if tr.From != want[i][0] || tr.To != want[i][1] {
			t.Errorf("transition %d = %v -> %v, want %v -> %v", i, tr.From, tr.To, want[i][0], want[i][1])
		}
		if tr.Database != "orders" {
			t.Errorf("transition %d Database = %q, want %q", i, tr.Database, "orders")
		}
		if tr.ID != db.ID() {
			t.Errorf("transition %d ID = %q, want %q", i, tr.ID, db.ID())
		}
	}
	if got[0].Attempt == "" || got[0].Attempt != got[1].Attempt {
		t.Errorf("attempt ids = %q, %q, want equal and non-empty", got[0].Attempt, got[1].Attempt)
	}
}

func TestObserver_FailureCarriesError(t *testing.T) {
	drv := newFakeDriver()
	drv.errs = []error{errDriver}
	rec := &recorder{}
	db := newTestDatabase(t, drv, WithObserver(rec))

	_, _ = db.Connect(context.Background()) //nolint:errcheck // failure is asserted through the observer

	got := rec.transitions()
	if len(got) != 2 {
		t.Fatalf("got %d transitions, want 2", len(got))
	}
	if got[1].To != StateDisconnected {
		t.Errorf("final state = %v, want %v", got[1].To, StateDisconnected)
	}
	if !errors.Is(got[1].Err, errDriver) {
		t.Errorf("transition Err = %v, want driver error", got[1].Err)
	}
}
