package influxdb

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/docbind/internal/database"
)

func TestTransitionPoint(t *testing.T) {
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		transition  database.Transition
		wantOutcome string
		wantFields  []string
	}{
		{
			name: "attempt started",
			transition: database.Transition{
				Database: "catalog", From: database.StateDisconnected, To: database.StateConnecting,
				Attempt: "a-1", At: at,
			},
			wantOutcome: OutcomeStarted,
			wantFields:  []string{"attempt", "value"},
		},
		{
			name: "connected",
			transition: database.Transition{
				Database: "catalog", From: database.StateConnecting, To: database.StateConnected,
				Attempt: "a-1", Elapsed: 40 * time.Millisecond, At: at,
			},
			wantOutcome: OutcomeConnected,
			wantFields:  []string{"attempt", "elapsed_ms", "value"},
		},
		{
			name: "failed",
			transition: database.Transition{
				Database: "catalog", From: database.StateConnecting, To: database.StateDisconnected,
				Attempt: "a-1", Elapsed: time.Second, Err: errors.New("refused"), At: at,
			},
			wantOutcome: OutcomeFailed,
			wantFields:  []string{"attempt", "elapsed_ms", "error", "value"},
		},
		{
			name: "closed",
			transition: database.Transition{
				Database: "catalog", From: database.StateConnected, To: database.StateDisconnected, At: at,
			},
			wantOutcome: OutcomeClosed,
			wantFields:  []string{"value"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := transitionPoint(tt.transition)

			if p.Name() != MeasurementState {
				t.Errorf("Name() = %q, want %q", p.Name(), MeasurementState)
			}
			if !p.Time().Equal(at) {
				t.Errorf("Time() = %v, want %v", p.Time(), at)
			}

			tags := map[string]string{}
			for _, tag := range p.TagList() {
				tags[tag.Key] = tag.Value
			}
			if tags["outcome"] != tt.wantOutcome {
				t.Errorf("outcome = %q, want %q", tags["outcome"], tt.wantOutcome)
			}
			if tags["database"] != "catalog" {
				t.Errorf("database = %q, want catalog", tags["database"])
			}
			if tags["to"] != tt.transition.To.String() {
				t.Errorf("to = %q, want %q", tags["to"], tt.transition.To)
			}

			// FieldList is sorted by key
			fields := p.FieldList()
			if len(fields) != len(tt.wantFields) {
				t.Fatalf("fields = %d, want %d", len(fields), len(tt.wantFields))
			}
			for i, f := range fields {
				if f.Key != tt.wantFields[i] {
					t.Errorf("field[%d] = %q, want %q", i, f.Key, tt.wantFields[i])
				}
			}
		})
	}
}

func TestTransitionPoint_ZeroTimeUsesNow(t *testing.T) {
	before := time.Now()
	p := transitionPoint(database.Transition{Database: "catalog"})

	if p.Time().Before(before) {
		t.Errorf("Time() = %v, want >= %v", p.Time(), before)
	}
}
