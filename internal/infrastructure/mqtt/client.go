package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/docbind/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	ackTimeout     = 5 * time.Second
	keepAlive      = 30 * time.Second

	// disconnectQuiesce is how long Close lets paho flush, in milliseconds.
	disconnectQuiesce = 500
)

// Client is a broker connection that survives reconnects.
//
// Subscriptions are remembered and restored after paho reconnects, and the
// service announces itself on the retained system status topic with a Last
// Will covering crashes.
type Client struct {
	paho     pahomqtt.Client
	clientID string
	qos      byte
	logger   *slog.Logger

	mu        sync.Mutex
	subs      map[string]subscription
	onConnect func()
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler handles one received message. paho calls it on its own
// goroutine; a returned error is logged.
type MessageHandler func(topic string, payload []byte) error

// serviceStatus is the payload on the system status topic.
type serviceStatus struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func statusPayload(clientID, status, reason string) []byte {
	b, _ := json.Marshal(serviceStatus{ //nolint:errcheck // strings only
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return b
}

// Connect dials the broker and waits up to connectTimeout for the first
// connection. Later drops are retried by paho in the background.
func Connect(cfg config.MQTTConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		clientID: cfg.Broker.ClientID,
		qos:      byte(cfg.QoS), //nolint:gosec // validated to 0-2
		logger:   logger.With("component", "mqtt"),
		subs:     make(map[string]subscription),
	}
	c.paho = pahomqtt.NewClient(c.options(cfg))

	tok := c.paho.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		// Stop the connect-retry loop paho started.
		c.paho.Disconnect(0)
		return nil, fmt.Errorf("%w: %s did not answer within %v", ErrConnectionFailed, brokerURL(cfg), connectTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// options builds the paho options. Sessions are clean, so subscriptions
// are restored by onConnected rather than by the broker.
func (c *Client) options(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	will := statusPayload(cfg.Broker.ClientID, "offline", "unexpected_disconnect")

	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetWill(systemStatusTopic(), string(will), 1, true).
		SetOnConnectHandler(func(pahomqtt.Client) { c.onConnected() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			c.logger.Warn("MQTT connection lost", "error", err)
		}).
		SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
			c.logger.Info("reconnecting to MQTT broker")
		})

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// onConnected runs on paho's goroutine after every successful connect.
func (c *Client) onConnected() {
	c.mu.Lock()
	subs := maps.Clone(c.subs)
	callback := c.onConnect
	c.mu.Unlock()

	for topic, s := range subs {
		c.paho.Subscribe(topic, s.qos, c.dispatch(s.handler))
	}
	c.paho.Publish(systemStatusTopic(), c.qos, true, statusPayload(c.clientID, "online", ""))

	if callback != nil {
		callback()
	}
}

// SetOnConnect registers fn to run after every connect, including
// reconnects, once subscriptions have been restored.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.paho.IsConnectionOpen()
}

// Close publishes a graceful offline status, replacing the Last Will, and
// disconnects.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		tok := c.paho.Publish(systemStatusTopic(), c.qos, true, statusPayload(c.clientID, "offline", "shutdown"))
		tok.WaitTimeout(ackTimeout)
	}
	c.paho.Disconnect(disconnectQuiesce)
	return nil
}
