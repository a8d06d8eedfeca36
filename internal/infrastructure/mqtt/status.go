package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nerrad567/docbind/internal/database"
)

// Publisher is the subset of Client used by StatusPublisher.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// StateMessage is the JSON payload published for a database state change.
type StateMessage struct {
	Database  string `json:"database"`
	ID        string `json:"id"`
	State     string `json:"state"`
	Previous  string `json:"previous"`
	Attempt   string `json:"attempt,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// newStateMessage converts a transition into its wire form.
func newStateMessage(t database.Transition) StateMessage {
	msg := StateMessage{
		Database:  t.Database,
		ID:        t.ID,
		State:     t.To.String(),
		Previous:  t.From.String(),
		Attempt:   t.Attempt,
		ElapsedMS: t.Elapsed.Milliseconds(),
		Timestamp: t.At.Format(time.RFC3339Nano),
	}
	if t.Err != nil {
		msg.Error = t.Err.Error()
	}
	return msg
}

// StatusPublisher publishes database state transitions to MQTT.
//
// Each transition goes to the event topic, and to the retained state topic
// so new subscribers see the current state. Publish failures are logged and
// never affect the database.
type StatusPublisher struct {
	pub    Publisher
	qos    byte
	logger *slog.Logger

	mu        sync.Mutex
	lastTopic string
	last      []byte
}

var _ database.Observer = (*StatusPublisher)(nil)

// NewStatusPublisher creates a StatusPublisher.
func NewStatusPublisher(pub Publisher, qos byte, logger *slog.Logger) *StatusPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusPublisher{
		pub:    pub,
		qos:    qos,
		logger: logger.With("component", "mqtt-status"),
	}
}

// OnStateChange implements database.Observer.
func (p *StatusPublisher) OnStateChange(_ context.Context, t database.Transition) {
	payload, err := json.Marshal(newStateMessage(t))
	if err != nil {
		p.logger.Error("failed to marshal state message", "error", err)
		return
	}
	stateTopic := databaseTopic(t.Database, leafState)

	p.mu.Lock()
	p.lastTopic, p.last = stateTopic, payload
	p.mu.Unlock()

	p.publish(databaseTopic(t.Database, leafEvent), payload, false)
	p.publish(stateTopic, payload, true)
}

// Republish sends the latest state again, retained. It is meant for the
// client's on-connect hook: a transition that happened while the broker
// was unreachable would otherwise never reach the state topic.
func (p *StatusPublisher) Republish() {
	p.mu.Lock()
	topic, payload := p.lastTopic, p.last
	p.mu.Unlock()

	if payload == nil {
		return
	}
	p.publish(topic, payload, true)
}

func (p *StatusPublisher) publish(topic string, payload []byte, retained bool) {
	err := p.pub.Publish(topic, payload, p.qos, retained)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotConnected):
		p.logger.Debug("broker unavailable, state not published", "topic", topic)
	default:
		p.logger.Warn("failed to publish state", "topic", topic, "error", err)
	}
}
