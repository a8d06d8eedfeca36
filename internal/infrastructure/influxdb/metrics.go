package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/docbind/internal/database"
)

// Measurement names.
const (
	// MeasurementState records every connection state transition.
	MeasurementState = "docbind_state"

	// MeasurementRegistry records model and plugin counts.
	MeasurementRegistry = "docbind_registry"
)

// Connection attempt outcomes, tagged on MeasurementState points.
const (
	OutcomeStarted   = "started"
	OutcomeConnected = "connected"
	OutcomeFailed    = "failed"
	OutcomeClosed    = "closed"
)

// Metrics records database state transitions in InfluxDB.
// It implements database.Observer.
type Metrics struct {
	client *Client
}

// Ensure Metrics implements database.Observer at compile time.
var _ database.Observer = (*Metrics)(nil)

// NewMetrics creates a Metrics observer writing through client.
func NewMetrics(client *Client) *Metrics {
	return &Metrics{client: client}
}

// OnStateChange implements database.Observer. The write is non-blocking.
func (m *Metrics) OnStateChange(_ context.Context, t database.Transition) {
	m.client.write(transitionPoint(t))
}

// RecordRegistry writes the current number of models and plugins.
func (m *Metrics) RecordRegistry(name string, models, plugins int) {
	m.client.write(write.NewPoint(MeasurementRegistry,
		map[string]string{"database": name},
		map[string]any{"models": models, "plugins": plugins},
		time.Now(),
	))
}

// transitionPoint builds the point for one transition.
//
// Tags: database, from, to, outcome. Fields: value (always 1, for counting),
// elapsed_ms and attempt when known, error on failure.
func transitionPoint(t database.Transition) *write.Point {
	fields := map[string]any{"value": 1}
	if t.Elapsed > 0 {
		fields["elapsed_ms"] = float64(t.Elapsed) / float64(time.Millisecond)
	}
	if t.Attempt != "" {
		fields["attempt"] = t.Attempt
	}
	if t.Err != nil {
		fields["error"] = t.Err.Error()
	}

	at := t.At
	if at.IsZero() {
		at = time.Now()
	}

	return write.NewPoint(MeasurementState,
		map[string]string{
			"database": t.Database,
			"from":     t.From.String(),
			"to":       t.To.String(),
			"outcome":  outcome(t),
		},
		fields,
		at,
	)
}

// outcome classifies a transition.
func outcome(t database.Transition) string {
	switch {
	case t.To == database.StateConnecting:
		return OutcomeStarted
	case t.To == database.StateConnected:
		return OutcomeConnected
	case t.From == database.StateConnecting:
		return OutcomeFailed
	default:
		return OutcomeClosed
	}
}
