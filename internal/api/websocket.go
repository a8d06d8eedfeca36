package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/docbind/internal/database"
	"github.com/nerrad567/docbind/internal/infrastructure/config"
	"github.com/nerrad567/docbind/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// ChannelStateChanged carries database state transitions.
const ChannelStateChanged = "database.state_changed"

// wsSendBufferSize is the per-client outbound queue length. State changes
// are rare, so a client that fills it is stuck.
const wsSendBufferSize = 32

// WSMessage is the envelope for every WebSocket frame in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe messages.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// StateEvent is the payload of a ChannelStateChanged event.
type StateEvent struct {
	Database  string `json:"database"`
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Attempt   string `json:"attempt,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newStateEvent(t database.Transition) StateEvent {
	ev := StateEvent{
		Database:  t.Database,
		ID:        t.ID,
		From:      t.From.String(),
		To:        t.To.String(),
		Attempt:   t.Attempt,
		ElapsedMS: t.Elapsed.Milliseconds(),
	}
	if t.Err != nil {
		ev.Error = t.Err.Error()
	}
	return ev
}

// inboundMessage is a client frame with its payload left undecoded.
type inboundMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans database state changes out to subscribed WebSocket clients.
// It is a database.Observer and may be registered before the server starts.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// wsClient is one upgraded connection. Its send channel is closed only by
// the hub, under the hub's write lock.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
}

var _ database.Observer = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
		c.conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OnStateChange sends t to every client subscribed to ChannelStateChanged.
func (h *Hub) OnStateChange(_ context.Context, t database.Transition) {
	data, err := encodeWS(WSMessage{
		Type:      WSTypeEvent,
		EventType: ChannelStateChanged,
		Payload:   newStateEvent(t),
	})
	if err != nil {
		h.logger.Error("encoding state event", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		if c.subscribed(ChannelStateChanged) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, data)
	}
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		h.dropLocked(c)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

func (h *Hub) dropLocked(c *wsClient) {
	delete(h.clients, c)
	close(c.send)
}

// deliver queues data for c. It reports false when c has already left the
// hub or its queue is full.
func (h *Hub) deliver(c *wsClient, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		h.logger.Warn("websocket client queue full, dropping message")
		return false
	}
}

// reply answers a client request.
func (h *Hub) reply(c *wsClient, id, msgType string, payload any) {
	data, err := encodeWS(WSMessage{Type: msgType, ID: id, Payload: payload})
	if err != nil {
		h.logger.Error("encoding websocket reply", "error", err)
		return
	}
	h.deliver(c, data)
}

func (h *Hub) replyError(c *wsClient, id, message string) {
	h.reply(c, id, WSTypeError, map[string]string{"message": message})
}

// handle processes one client frame.
func (h *Hub) handle(c *wsClient, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.replyError(c, "", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypePing:
		h.reply(c, msg.ID, WSTypePong, nil)
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var sub WSSubscribePayload
		if err := json.Unmarshal(msg.Payload, &sub); err != nil || len(sub.Channels) == 0 {
			h.replyError(c, msg.ID, "payload must list channels")
			return
		}
		for _, ch := range sub.Channels {
			if ch != ChannelStateChanged {
				h.replyError(c, msg.ID, "unknown channel: "+ch)
				return
			}
		}
		if msg.Type == WSTypeSubscribe {
			c.setChannels(sub.Channels, true)
			h.reply(c, msg.ID, WSTypeResponse, map[string]any{"subscribed": sub.Channels})
		} else {
			c.setChannels(sub.Channels, false)
			h.reply(c, msg.ID, WSTypeResponse, map[string]any{"unsubscribed": sub.Channels})
		}
	default:
		h.replyError(c, msg.ID, "unknown message type: "+msg.Type)
	}
}

func (c *wsClient) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.channels[channel]
	return ok
}

func (c *wsClient) setChannels(channels []string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range channels {
		if on {
			c.channels[ch] = struct{}{}
		} else {
			delete(c.channels, ch)
		}
	}
}

func encodeWS(msg WSMessage) ([]byte, error) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	return json.Marshal(msg)
}

// handleWebSocket upgrades the request and attaches the connection to the
// hub. authMiddleware has already checked the caller.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		channels: make(map[string]struct{}),
	}
	s.hub.add(c)

	ping := time.Duration(s.wsCfg.PingInterval) * time.Second
	pongWait := time.Duration(s.wsCfg.PongTimeout) * time.Second
	go s.hub.writePump(c, ping, pongWait)
	go s.hub.readPump(c, int64(s.wsCfg.MaxMessageSize), ping+pongWait)
}

// readPump handles client frames until the connection fails. Any frame,
// not only a pong, extends the read deadline.
func (h *Hub) readPump(c *wsClient, limit int64, idle time.Duration) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(limit)
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(idle)) }
	extend("") //nolint:errcheck // a failed deadline surfaces on the next read
	c.conn.SetPongHandler(extend)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		extend("") //nolint:errcheck // a failed deadline surfaces on the next read
		h.handle(c, raw)
	}
}

// writePump drains c.send and keeps the connection alive with pings. It
// exits when the hub closes c.send or a write fails.
func (h *Hub) writePump(c *wsClient, ping, writeWait time.Duration) {
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait)) //nolint:errcheck // closing anyway
				return
			}
			kind, data = websocket.TextMessage, msg
		case <-ticker.C:
			kind = websocket.PingMessage
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write error caught below
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}
