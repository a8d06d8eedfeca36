package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nerrad567/docbind/internal/database"
)

// Command actions accepted on the command topic.
const (
	ActionConnect    = "connect"
	ActionDisconnect = "disconnect"
)

// defaultCommandTimeout bounds how long a received command may wait for
// the database.
const defaultCommandTimeout = 30 * time.Second

// Command is the JSON payload received on the command topic.
type Command struct {
	Action string `json:"action"`
}

// Subscriber is the subset of Client used by CommandListener.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topic string) error
}

// Controller is the part of a database driven by commands.
type Controller interface {
	Name() string
	Connect(ctx context.Context) (database.Handle, error)
	Disconnect(ctx context.Context) error
}

// CommandListener connects or disconnects a database on request from
// the command topic.
type CommandListener struct {
	sub     Subscriber
	db      Controller
	qos     byte
	timeout time.Duration
	logger  *slog.Logger

	ctx   context.Context //nolint:containedctx // bounds handlers invoked by paho
	topic string
}

// NewCommandListener creates a listener for db's command topic.
func NewCommandListener(sub Subscriber, db Controller, qos byte, logger *slog.Logger) *CommandListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandListener{
		sub:     sub,
		db:      db,
		qos:     qos,
		timeout: defaultCommandTimeout,
		logger:  logger.With("component", "mqtt-commands"),
		topic:   databaseTopic(db.Name(), leafCommand),
	}
}

// Start subscribes to the command topic. Commands received after ctx ends
// fail immediately.
func (l *CommandListener) Start(ctx context.Context) error {
	l.ctx = ctx
	if err := l.sub.Subscribe(l.topic, l.qos, l.handle); err != nil {
		return fmt.Errorf("subscribing to %s: %w", l.topic, err)
	}
	l.logger.Info("listening for database commands", "topic", l.topic)
	return nil
}

// Stop unsubscribes from the command topic.
func (l *CommandListener) Stop() error {
	return l.sub.Unsubscribe(l.topic)
}

// handle is the MessageHandler for the command topic.
func (l *CommandListener) handle(_ string, payload []byte) error {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	ctx, cancel := context.WithTimeout(l.ctx, l.timeout)
	defer cancel()

	l.logger.Info("database command received", "action", cmd.Action)

	switch cmd.Action {
	case ActionConnect:
		_, err := l.db.Connect(ctx)
		return err
	case ActionDisconnect:
		return l.db.Disconnect(ctx)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, cmd.Action)
	}
}
