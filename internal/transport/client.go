package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/armahc19/watchparty-frontend/internal/domain"
	"github.com/armahc19/watchparty-frontend/lib/logger/sl"
)

var ErrAuthFailed = errors.New("authentication failed")

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// Identity is the resolved user identity stamped onto outbound messages.
type Identity struct {
	UserID   string
	Username string
	Token    string
}

// IdentityProvider supplies the current identity. It is consulted before
// every connection attempt and on every send, because tokens expire and the
// identity may not be resolved yet when the client is constructed.
type IdentityProvider interface {
	Identity(ctx context.Context) (Identity, error)
}

// StaticIdentity is an IdentityProvider for an identity that never changes.
type StaticIdentity Identity

func (s StaticIdentity) Identity(_ context.Context) (Identity, error) {
	return Identity(s), nil
}

type MessageHandler func(*domain.SyncMessage)
type StateHandler func(ConnectionState)

// Options tunes the reconnect policy. Zero values fall back to the
// protocol defaults.
type Options struct {
	BackoffBase time.Duration
	BackoffCap  time.Duration
	MaxAttempts int
	DialTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
}

// Client owns exactly one logical connection to a room's message bus. It
// delivers inbound messages in arrival order, provides best-effort sends,
// and reconnects with bounded exponential backoff on abnormal closure.
type Client struct {
	baseURL  string
	roomID   string
	identity IdentityProvider
	log      *slog.Logger
	opts     Options

	mu             sync.Mutex
	conn           *websocket.Conn
	state          ConnectionState
	connecting     bool
	closed         bool
	attempts       int
	reconnectTimer *time.Timer

	onMessage []MessageHandler
	onState   []StateHandler
}

// NewClient builds a client for one room. baseURL is the bus origin,
// e.g. "ws://localhost:8081".
func NewClient(baseURL, roomID string, identity IdentityProvider, log *slog.Logger, opts Options) *Client {
	if log == nil {
		log = slog.Default()
	}
	opts.setDefaults()
	return &Client{
		baseURL:  baseURL,
		roomID:   roomID,
		identity: identity,
		log:      log.With(slog.String("room_id", roomID)),
		opts:     opts,
		state:    StateDisconnected,
	}
}

// OnMessage registers a handler for decoded inbound messages. Handlers run
// on the read loop goroutine, one message at a time.
func (c *Client) OnMessage(fn MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = append(c.onMessage, fn)
}

// OnStateChange registers a connection-state observer.
func (c *Client) OnStateChange(fn StateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = append(c.onState, fn)
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether sends will currently be transmitted.
func (c *Client) Connected() bool {
	return c.State() == StateConnected
}

// Connect establishes the connection if one is not already open or in
// flight. A missing identity is logged and ignored; the caller retries once
// identity resolves. Only authentication failures are returned, because
// they are not retried automatically.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.connecting || c.conn != nil {
		c.log.Debug("already connecting or connected")
		c.mu.Unlock()
		return nil
	}
	c.connecting = true
	c.mu.Unlock()

	c.setState(StateConnecting)

	id, err := c.identity.Identity(ctx)
	if err != nil || id.Token == "" {
		c.log.Warn("no identity available, skipping connect")
		c.finishAttempt(nil)
		c.setState(StateDisconnected)
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.opts.DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.endpoint(id.Token), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			c.log.Error("connection rejected, token invalid or expired")
			c.finishAttempt(nil)
			c.setState(StateDisconnected)
			return ErrAuthFailed
		}

		c.log.Warn("connect failed", sl.Err(err))
		c.finishAttempt(nil)
		c.setState(StateDisconnected)
		c.scheduleReconnect()
		return nil
	}

	if !c.finishAttempt(conn) {
		// Close raced the dial; the fresh socket must not outlive it.
		c.log.Debug("closed during dial, discarding connection")
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
		return nil
	}
	c.setState(StateConnected)
	c.log.Info("connected")

	go c.readLoop(conn)
	return nil
}

// finishAttempt installs the dialed connection, refusing it when Close
// arrived while the dial was in flight. The caller disposes of a refused
// connection.
func (c *Client) finishAttempt(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connecting = false
	if conn == nil {
		c.conn = nil
		return false
	}
	if c.closed {
		return false
	}
	c.conn = conn
	c.attempts = 0
	return true
}

// Send stamps the sender identity and transmits the message. It returns
// false when the connection is not open; messages are dropped, never
// queued. The engine's sync_request handshake is the recovery path.
func (c *Client) Send(msg domain.SyncMessage) bool {
	id, err := c.identity.Identity(context.Background())
	if err == nil {
		msg.UserID = id.UserID
		msg.Username = id.Username
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected || c.conn == nil {
		c.log.Warn("not connected, message dropped", slog.String("type", string(msg.Type)))
		return false
	}

	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.Warn("write failed", sl.Err(err))
		return false
	}
	return true
}

// Close tears the connection down intentionally. No reconnect is scheduled
// afterwards and no further handler callbacks fire.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.onMessage = nil
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}

	c.setState(StateDisconnected)

	c.mu.Lock()
	c.onState = nil
	c.mu.Unlock()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.handleClosure(conn, err)
			return
		}

		var msg domain.SyncMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.log.Warn("discarding malformed frame", sl.Err(err))
			continue
		}

		msg.ReceivedAt = time.Now()
		msg.Processed = false

		c.mu.Lock()
		handlers := make([]MessageHandler, len(c.onMessage))
		copy(handlers, c.onMessage)
		c.mu.Unlock()

		for _, fn := range handlers {
			fn(&msg)
		}
	}
}

func (c *Client) handleClosure(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()

	c.setState(StateDisconnected)

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		c.log.Info("normal closure, not reconnecting")
		return
	}

	c.log.Warn("connection lost", sl.Err(err))
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.reconnectTimer != nil {
		return
	}

	if c.attempts >= c.opts.MaxAttempts {
		c.log.Error("max reconnection attempts reached, giving up")
		return
	}

	c.attempts++
	delay := backoffDelay(c.attempts, c.opts.BackoffBase, c.opts.BackoffCap)
	c.log.Info("scheduling reconnect",
		slog.Int("attempt", c.attempts),
		slog.Duration("delay", delay),
	)

	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		_ = c.Connect(context.Background())
	})
}

func (c *Client) setState(state ConnectionState) {
	c.mu.Lock()
	if c.closed && state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	handlers := make([]StateHandler, len(c.onState))
	copy(handlers, c.onState)
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(state)
	}
}

func (c *Client) endpoint(token string) string {
	return c.baseURL + "/api/ws/" + c.roomID + "?token=" + url.QueryEscape(token)
}

// backoffDelay returns min(base * 2^attempt, limit) for attempt >= 1.
func backoffDelay(attempt int, base, limit time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	return delay
}
