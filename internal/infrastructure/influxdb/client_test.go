package influxdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/docbind/internal/database"
	"github.com/nerrad567/docbind/internal/infrastructure/config"
)

// testConfig returns a configuration for a local InfluxDB. The token can
// be overridden with DOCBIND_TEST_INFLUXDB_TOKEN.
func testConfig() config.InfluxDBConfig {
	token := os.Getenv("DOCBIND_TEST_INFLUXDB_TOKEN")
	if token == "" {
		token = "docbind-dev-token"
	}
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         token,
		Org:           "docbind",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip connects to the local InfluxDB, skipping the test if it is
// not running.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	client, err := Connect(context.Background(), testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available, skipping integration test: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := Connect(ctx, cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// fakeServer answers pings and counts line-protocol writes.
type fakeServer struct {
	mu     sync.Mutex
	writes int
	status int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		f.mu.Lock()
		f.writes++
		status := f.status
		f.mu.Unlock()
		if status != 0 {
			http.Error(w, `{"code":"invalid","message":"rejected"}`, status)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeServer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func TestClient_WritesAndCloses(t *testing.T) {
	srv := &fakeServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	cfg := testConfig()
	cfg.URL = ts.URL
	client, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	NewMetrics(client).RecordRegistry("catalog", 2, 1)
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if srv.count() != 1 {
		t.Errorf("server saw %d writes after Close, want 1", srv.count())
	}

	// Dropped, not panicking, once closed.
	NewMetrics(client).RecordRegistry("catalog", 3, 1)
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if srv.count() != 1 {
		t.Errorf("write after Close reached the server")
	}
}

func TestClient_ReportsWriteErrors(t *testing.T) {
	srv := &fakeServer{status: http.StatusBadRequest}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	cfg := testConfig()
	cfg.URL = ts.URL
	client, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	got := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case got <- err:
		default:
		}
	})

	NewMetrics(client).OnStateChange(context.Background(), database.Transition{
		Database: "catalog",
		From:     database.StateDisconnected,
		To:       database.StateConnecting,
	})

	select {
	case err := <-got:
		if err == nil {
			t.Error("SetOnError callback received nil")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write failure not reported")
	}
}

func TestMetrics_WritesTransitions(t *testing.T) {
	client := connectOrSkip(t)

	var (
		mu       sync.Mutex
		writeErr error
	)
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	m := NewMetrics(client)
	ctx := context.Background()
	m.OnStateChange(ctx, database.Transition{
		Database: "test-db",
		From:     database.StateDisconnected,
		To:       database.StateConnecting,
		Attempt:  "a-1",
		At:       time.Now(),
	})
	m.OnStateChange(ctx, database.Transition{
		Database: "test-db",
		From:     database.StateConnecting,
		To:       database.StateConnected,
		Attempt:  "a-1",
		Elapsed:  25 * time.Millisecond,
		At:       time.Now(),
	})
	m.RecordRegistry("test-db", 2, 1)
	client.Close() //nolint:errcheck // flushes

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}
