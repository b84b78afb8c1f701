// ABOUTME: WebSocket transport to the hub
// ABOUTME: Handles dial, handshake, receive loop, keep-alive and reconnection
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultPath             = "/ws"
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultPingInterval     = 30 * time.Second

	maxMessageSize = 16 << 20
	stateBuffer    = 16
)

// Handler receives every classified inbound message except the handshake.
// It runs on the receive goroutine and must not block for long: later
// frames, including command results, wait until it returns.
type Handler func(Envelope)

// Option configures a Conn
type Option func(*Conn)

// WithPath overrides the WebSocket path (default /ws)
func WithPath(path string) Option {
	return func(c *Conn) { c.path = path }
}

// WithHandshakeTimeout bounds dial plus the wait for server info
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Conn) { c.handshakeTimeout = d }
}

// WithBackoff replaces the reconnection schedule
func WithBackoff(b Backoff) Option {
	return func(c *Conn) { c.backoff = b }
}

// WithDialer replaces the gorilla dialer
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Conn) { c.dialer = d }
}

// WithWriteTimeout sets the per-message write deadline
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Conn) { c.writeTimeout = d }
}

// WithPingInterval sets the keep-alive ping period. Zero disables pings
// and the read deadline that goes with them.
func WithPingInterval(d time.Duration) Option {
	return func(c *Conn) { c.pingInterval = d }
}

// WithReconnectHook is called before every reconnect dial
func WithReconnectHook(fn func(attempt int)) Option {
	return func(c *Conn) { c.onReconnect = fn }
}

// Conn is a persistent connection to one hub
type Conn struct {
	host             string
	port             int
	path             string
	dialer           *websocket.Dialer
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	pingInterval     time.Duration
	backoff          Backoff
	onReconnect      func(attempt int)

	mu      sync.Mutex
	state   ConnectionState
	ws      *websocket.Conn
	cancel  context.CancelFunc
	handler Handler
	subs    map[int]chan ConnectionState
	nextSub int

	writeMu sync.Mutex
}

// NewConn creates a disconnected Conn for host:port
func NewConn(host string, port int, opts ...Option) *Conn {
	c := &Conn{
		host:             host,
		port:             port,
		path:             DefaultPath,
		dialer:           websocket.DefaultDialer,
		handshakeTimeout: DefaultHandshakeTimeout,
		writeTimeout:     DefaultWriteTimeout,
		pingInterval:     DefaultPingInterval,
		backoff:          DefaultBackoff(),
		state:            ConnectionState{Status: StatusDisconnected},
		subs:             make(map[int]chan ConnectionState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns the configured hub host
func (c *Conn) Host() string { return c.host }

// Port returns the configured hub port
func (c *Conn) Port() int { return c.port }

// URL returns the WebSocket endpoint
func (c *Conn) URL() string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(c.host, strconv.Itoa(c.port)),
		Path:   c.path,
	}
	return u.String()
}

// SetHandler installs the inbound message handler
func (c *Conn) SetHandler(h Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// State returns the current connection state
func (c *Conn) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel of state transitions. Transitions are dropped
// for a subscriber whose buffer is full.
func (c *Conn) Subscribe() (<-chan ConnectionState, func()) {
	ch := make(chan ConnectionState, stateBuffer)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// setStateLocked records a transition and fans it out. Caller holds c.mu.
func (c *Conn) setStateLocked(s ConnectionState) {
	c.state = s
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			log.Printf("State subscriber full, dropping %s", s.Status)
		}
	}
}

// Connect dials the hub and waits for server info. It is a no-op while a
// connection is already up or being established.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state.Status {
	case StatusConnecting, StatusConnected, StatusReconnecting:
		c.mu.Unlock()
		return nil
	}
	lifeCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.setStateLocked(ConnectionState{Status: StatusConnecting})
	c.mu.Unlock()

	dialCtx, stop := context.WithCancel(ctx)
	defer stop()
	unhook := context.AfterFunc(lifeCtx, stop)
	defer unhook()

	ws, info, err := c.dial(dialCtx)

	c.mu.Lock()
	if lifeCtx.Err() != nil {
		c.mu.Unlock()
		if ws != nil {
			ws.Close()
		}
		return ErrNotConnected
	}
	if err != nil {
		cancel()
		c.setStateLocked(ConnectionState{Status: StatusFailed, Err: err})
		c.mu.Unlock()
		return err
	}
	c.ws = ws
	c.setStateLocked(ConnectionState{Status: StatusConnected, ServerInfo: info})
	c.mu.Unlock()

	log.Printf("Connected to server %s (version %s, schema %d)", info.ServerID, info.ServerVersion, info.SchemaVersion)
	go c.run(lifeCtx, ws)
	return nil
}

// dial opens the socket and reads the handshake
func (c *Conn) dial(ctx context.Context) (*websocket.Conn, *ServerInfo, error) {
	log.Printf("Connecting to %s", c.URL())

	ctx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
	defer cancel()

	ws, _, err := c.dialer.DialContext(ctx, c.URL(), nil)
	if err != nil {
		return nil, nil, &ConnectionFailedError{Err: fmt.Errorf("dial failed: %w", err)}
	}
	ws.SetReadLimit(maxMessageSize)

	// Unblock the handshake read if the caller gives up
	closeOnCancel := context.AfterFunc(ctx, func() { ws.Close() })
	defer closeOnCancel()

	if deadline, ok := ctx.Deadline(); ok {
		ws.SetReadDeadline(deadline)
	}
	_, data, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return nil, nil, &ConnectionFailedError{Err: fmt.Errorf("failed to read server info: %w", err)}
	}
	ws.SetReadDeadline(time.Time{})

	env, err := Classify(data)
	if err != nil {
		ws.Close()
		return nil, nil, &ConnectionFailedError{Err: err}
	}
	if env.Kind != KindServerInfo {
		ws.Close()
		return nil, nil, &ConnectionFailedError{Err: fmt.Errorf("expected server info, got %s", env.Kind)}
	}

	if !closeOnCancel() {
		// Context ended after the read succeeded; the socket is already closed
		return nil, nil, &ConnectionFailedError{Err: ctx.Err()}
	}
	return ws, env.ServerInfo, nil
}

// run owns one socket until it closes
func (c *Conn) run(lifeCtx context.Context, ws *websocket.Conn) {
	pingDone := make(chan struct{})
	if c.pingInterval > 0 {
		go c.pingLoop(ws, pingDone)
	}

	err := c.receiveLoop(ws)
	close(pingDone)

	c.handleClosure(lifeCtx, ws, err)
}

// receiveLoop reads frames until the socket fails
func (c *Conn) receiveLoop(ws *websocket.Conn) error {
	pongWait := 2 * c.pingInterval
	if c.pingInterval > 0 {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		if c.pingInterval > 0 {
			ws.SetReadDeadline(time.Now().Add(pongWait))
		}

		if messageType != websocket.TextMessage {
			log.Printf("Ignoring non-text message type: %d", messageType)
			continue
		}

		env, err := Classify(data)
		if err != nil {
			log.Printf("Dropping malformed message: %v", err)
			continue
		}
		if env.Kind == KindUnknown {
			log.Printf("Dropping unrecognized message: %s", truncate(data, 120))
			continue
		}

		c.mu.Lock()
		h := c.handler
		c.mu.Unlock()
		if h != nil {
			h(env)
		}
	}
}

func (c *Conn) pingLoop(ws *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				log.Printf("Ping failed: %v", err)
				return
			}
		}
	}
}

// handleClosure reacts to the receive loop ending. Intentional disconnects
// return quietly; anything else moves to Disconnected and starts reconnecting.
func (c *Conn) handleClosure(lifeCtx context.Context, ws *websocket.Conn, cause error) {
	ws.Close()

	c.mu.Lock()
	if lifeCtx.Err() != nil || c.ws != ws {
		c.mu.Unlock()
		return
	}
	log.Printf("Connection closed: %v", cause)
	c.ws = nil
	c.setStateLocked(ConnectionState{Status: StatusDisconnected, Err: cause})
	// Enter Reconnecting under the same lock so a concurrent Connect sees a
	// reconnect already in flight.
	c.setStateLocked(ConnectionState{Status: StatusReconnecting, Attempt: 1, Delay: c.backoff.Delay(1)})
	c.mu.Unlock()

	c.reconnectLoop(lifeCtx)
}

// reconnectLoop retries until a dial succeeds or Disconnect is called
func (c *Conn) reconnectLoop(lifeCtx context.Context) {
	attempt := 1
	for {
		delay := c.backoff.Delay(attempt)
		log.Printf("Reconnecting in %s (attempt %d)", delay, attempt)

		timer := time.NewTimer(delay)
		select {
		case <-lifeCtx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if c.onReconnect != nil {
			c.onReconnect(attempt)
		}

		ws, info, err := c.dial(lifeCtx)

		c.mu.Lock()
		if lifeCtx.Err() != nil {
			c.mu.Unlock()
			if ws != nil {
				ws.Close()
			}
			return
		}
		if err != nil {
			log.Printf("Reconnect attempt %d failed: %v", attempt, err)
			attempt++
			c.setStateLocked(ConnectionState{Status: StatusReconnecting, Attempt: attempt, Delay: c.backoff.Delay(attempt), Err: err})
			c.mu.Unlock()
			continue
		}
		c.ws = ws
		c.setStateLocked(ConnectionState{Status: StatusConnected, ServerInfo: info})
		c.mu.Unlock()

		log.Printf("Reconnected to server %s after %d attempt(s)", info.ServerID, attempt)
		go c.run(lifeCtx, ws)
		return
	}
}

// Send writes v as one JSON text message
func (c *Conn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	c.mu.Lock()
	ws := c.ws
	connected := c.state.Status == StatusConnected
	c.mu.Unlock()
	if !connected || ws == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Disconnect closes the connection and stops any reconnection
func (c *Conn) Disconnect() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	ws := c.ws
	c.ws = nil
	if c.state.Status != StatusDisconnected {
		c.setStateLocked(ConnectionState{Status: StatusDisconnected})
	}
	c.mu.Unlock()

	if ws == nil {
		return
	}

	c.writeMu.Lock()
	ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
		time.Now().Add(500*time.Millisecond))
	c.writeMu.Unlock()
	ws.Close()
	log.Printf("Disconnected from %s", c.URL())
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
