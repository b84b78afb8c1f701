// ABOUTME: Hub client with command correlation
// ABOUTME: Assigns message ids, tracks pending commands and routes events
package mahub

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Resonate-Protocol/mahub-go/pkg/events"
	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

const (
	// DefaultPort is the hub's default WebSocket port
	DefaultPort = 8095

	// DefaultTimeout bounds how long a command waits for its response
	DefaultTimeout = 30 * time.Second

	tracerName = "github.com/Resonate-Protocol/mahub-go/pkg/mahub"
)

// Transport is the connection the client sends commands over.
// *protocol.Conn implements it.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()
	Send(v any) error
	SetHandler(h protocol.Handler)
	State() protocol.ConnectionState
	Subscribe() (<-chan protocol.ConnectionState, func())
	Host() string
	Port() int
}

// Option configures a Client
type Option func(*Client)

// WithTransport replaces the WebSocket transport
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithTimeout sets the per-command response timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRegisterer registers the client's metrics with reg instead of a
// private registry
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.registerer = reg }
}

// WithTracerProvider sets the provider command spans come from
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithConnOptions passes options to the default transport
func WithConnOptions(opts ...protocol.Option) Option {
	return func(c *Client) { c.connOpts = append(c.connOpts, opts...) }
}

type outcome struct {
	result json.RawMessage
	err    error
}

type pendingRequest struct {
	id      int
	command string
	started time.Time
	timer   *time.Timer
	done    chan outcome
}

// Client talks to one hub. Many commands may be outstanding at once; each
// resolves exactly once by response, error, timeout, cancellation or
// disconnect, whichever comes first.
type Client struct {
	host       string
	port       int
	transport  Transport
	router     *events.Router
	timeout    time.Duration
	registerer prometheus.Registerer
	metrics    *Metrics
	tracer     trace.Tracer
	connOpts   []protocol.Option

	mu      sync.Mutex
	nextID  int
	pending map[int]*pendingRequest
}

// NewClient creates a client for the hub at host:port
func NewClient(host string, port int, opts ...Option) *Client {
	c := &Client{
		host:    host,
		port:    port,
		router:  events.NewRouter(),
		timeout: DefaultTimeout,
		nextID:  1,
		pending: make(map[int]*pendingRequest),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.registerer == nil {
		c.registerer = prometheus.NewRegistry()
	}
	c.metrics = NewMetrics(c.registerer)

	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}

	if c.transport == nil {
		connOpts := append([]protocol.Option{
			protocol.WithReconnectHook(func(int) { c.metrics.reconnects.Inc() }),
		}, c.connOpts...)
		c.transport = protocol.NewConn(host, port, connOpts...)
	} else {
		c.host = c.transport.Host()
		c.port = c.transport.Port()
	}
	c.transport.SetHandler(c.handle)

	return c
}

// Host returns the hub host
func (c *Client) Host() string { return c.host }

// Port returns the hub port
func (c *Client) Port() int { return c.port }

// Events returns the router carrying hub events
func (c *Client) Events() *events.Router { return c.router }

// State returns the current connection state
func (c *Client) State() protocol.ConnectionState { return c.transport.State() }

// SubscribeState returns a channel of connection state transitions
func (c *Client) SubscribeState() (<-chan protocol.ConnectionState, func()) {
	return c.transport.Subscribe()
}

// IsConnected reports whether the connection is up
func (c *Client) IsConnected() bool {
	return c.transport.State().Status == protocol.StatusConnected
}

// Connect opens the connection. Message ids restart at 1 when connecting
// from a disconnected or failed state.
func (c *Client) Connect(ctx context.Context) error {
	switch c.transport.State().Status {
	case protocol.StatusDisconnected, protocol.StatusFailed:
		c.failPending(protocol.ErrNotConnected)
		c.mu.Lock()
		c.nextID = 1
		c.mu.Unlock()
	}
	return c.transport.Connect(ctx)
}

// Disconnect closes the connection and fails every pending command with
// ErrNotConnected
func (c *Client) Disconnect() {
	c.transport.Disconnect()
	c.failPending(protocol.ErrNotConnected)
}

// PendingCount returns the number of commands awaiting a response
func (c *Client) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// SendCommand sends a command and waits for its result. The result may be
// JSON null.
func (c *Client) SendCommand(ctx context.Context, command string, args map[string]any) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "mahub.command",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("mahub.command", command)),
	)
	defer span.End()

	req := c.register(command)
	span.SetAttributes(attribute.Int("mahub.message_id", req.id))

	if err := c.transport.Send(protocol.Command{MessageID: req.id, Command: command, Args: args}); err != nil {
		c.resolve(req.id, outcome{err: err})
	}

	var out outcome
	select {
	case out = <-req.done:
	case <-ctx.Done():
		c.resolve(req.id, outcome{err: ctx.Err()})
		// done is written exactly once by whichever path resolved first
		out = <-req.done
	}

	c.metrics.commandsTotal.WithLabelValues(command, commandStatus(out.err)).Inc()
	c.metrics.commandDuration.WithLabelValues(command).Observe(time.Since(req.started).Seconds())
	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return out.result, out.err
}

// register allocates an id and arms the timeout
func (c *Client) register(command string) *pendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++

	req := &pendingRequest{
		id:      id,
		command: command,
		started: time.Now(),
		done:    make(chan outcome, 1),
	}
	timeout := c.timeout
	req.timer = time.AfterFunc(timeout, func() {
		if c.resolve(id, outcome{err: &protocol.CommandTimeoutError{ID: id, Timeout: timeout}}) {
			log.Printf("Command %d (%s) timed out after %s", id, command, timeout)
		}
	})
	c.pending[id] = req
	c.metrics.pending.Set(float64(len(c.pending)))

	return req
}

// resolve completes a pending command. It reports false if the command was
// already resolved.
func (c *Client) resolve(id int, out outcome) bool {
	c.mu.Lock()
	req, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
		c.metrics.pending.Set(float64(len(c.pending)))
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	req.timer.Stop()
	req.done <- out
	return true
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	reqs := c.pending
	c.pending = make(map[int]*pendingRequest)
	c.metrics.pending.Set(0)
	c.mu.Unlock()

	for _, req := range reqs {
		req.timer.Stop()
		req.done <- outcome{err: err}
	}
	if len(reqs) > 0 {
		log.Printf("Failed %d pending command(s): %v", len(reqs), err)
	}
}

// handle receives classified messages from the transport
func (c *Client) handle(env protocol.Envelope) {
	switch env.Kind {
	case protocol.KindResult:
		if !c.resolve(env.Result.MessageID, outcome{result: env.Result.Result}) {
			log.Printf("Ignoring result for unknown command %d", env.Result.MessageID)
		}
	case protocol.KindError:
		if !c.resolve(env.Error.MessageID, outcome{err: protocol.NewServerError(env.Error)}) {
			log.Printf("Ignoring error for unknown command %d: %s", env.Error.MessageID, env.Error.Error)
		}
	case protocol.KindEvent:
		c.metrics.eventsTotal.WithLabelValues(env.Event.Event).Inc()
		c.router.Route(*env.Event)
	case protocol.KindServerInfo:
		log.Printf("Received server info update (version %s)", env.ServerInfo.ServerVersion)
	}
}

// call sends a command and decodes a non-null result into out
func (c *Client) call(ctx context.Context, command string, args map[string]any, out any) error {
	raw, err := c.SendCommand(ctx, command, args)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &protocol.DecodingError{Err: err}
	}
	return nil
}
