// ABOUTME: Tests for the hub WebSocket transport
// ABOUTME: Runs a fake hub on httptest and checks handshake, dispatch and reconnection
package protocol

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeHub struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn

	mu    sync.Mutex
	hello any
}

func newFakeHub(t *testing.T) *fakeHub {
	t.Helper()
	h := &fakeHub{
		hello: ServerInfo{ServerVersion: "2.5.0", SchemaVersion: 27, ServerID: "hub1"},
		conns: make(chan *websocket.Conn, 10),
	}
	h.server = httptest.NewServer(http.HandlerFunc(h.serve))
	t.Cleanup(h.server.Close)
	return h
}

func (h *fakeHub) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/ws" {
		http.NotFound(w, r)
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	hello := h.hello
	h.mu.Unlock()

	if err := ws.WriteJSON(hello); err != nil {
		ws.Close()
		return
	}
	if _, ok := hello.(ServerInfo); !ok {
		// The client hangs up after a failed handshake
		go func() {
			defer ws.Close()
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()
		return
	}
	h.conns <- ws
}

// setHello replaces the first message sent to new connections
func (h *fakeHub) setHello(hello any) {
	h.mu.Lock()
	h.hello = hello
	h.mu.Unlock()
}

func (h *fakeHub) addr(t *testing.T) (string, int) {
	t.Helper()
	u, err := url.Parse(h.server.URL)
	if err != nil {
		t.Fatalf("bad server url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("bad server host: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func (h *fakeHub) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-h.conns:
		t.Cleanup(func() { ws.Close() })
		return ws
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for client connection")
		return nil
	}
}

func newTestConn(t *testing.T, h *fakeHub, opts ...Option) *Conn {
	t.Helper()
	host, port := h.addr(t)
	c := NewConn(host, port, opts...)
	t.Cleanup(c.Disconnect)
	return c
}

func waitForStatus(t *testing.T, states <-chan ConnectionState, want Status) ConnectionState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-states:
			if s.Status == want {
				return s
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s", want)
			return ConnectionState{}
		}
	}
}

func TestConnHandshake(t *testing.T) {
	hub := newFakeHub(t)
	c := newTestConn(t, hub)

	states, cancel := c.Subscribe()
	defer cancel()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	hub.accept(t)

	waitForStatus(t, states, StatusConnecting)
	s := waitForStatus(t, states, StatusConnected)
	if s.ServerInfo == nil || s.ServerInfo.ServerID != "hub1" {
		t.Errorf("expected server info for hub1, got %+v", s.ServerInfo)
	}
	if got := c.State().Status; got != StatusConnected {
		t.Errorf("expected connected, got %s", got)
	}
}

func TestConnConnectIsNoOpWhenConnected(t *testing.T) {
	hub := newFakeHub(t)
	c := newTestConn(t, hub)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	hub.accept(t)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("second connect failed: %v", err)
	}

	select {
	case <-hub.conns:
		t.Error("second connect opened another socket")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConnSend(t *testing.T) {
	hub := newFakeHub(t)
	c := newTestConn(t, hub)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	ws := hub.accept(t)

	if err := c.Send(Command{MessageID: 1, Command: "players/all"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var cmd Command
	if err := ws.ReadJSON(&cmd); err != nil {
		t.Fatalf("server read failed: %v", err)
	}
	if cmd.MessageID != 1 || cmd.Command != "players/all" {
		t.Errorf("unexpected command %+v", cmd)
	}
}

func TestConnSendNotConnected(t *testing.T) {
	c := NewConn("127.0.0.1", 1)
	if err := c.Send(Command{MessageID: 1, Command: "players/all"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestConnDispatch(t *testing.T) {
	hub := newFakeHub(t)
	c := newTestConn(t, hub)

	received := make(chan Envelope, 10)
	c.SetHandler(func(env Envelope) { received <- env })

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	ws := hub.accept(t)

	ws.WriteMessage(websocket.TextMessage, []byte(`{"foo":"bar"}`))
	ws.WriteMessage(websocket.TextMessage, []byte(`garbage`))
	ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"player_updated","object_id":"p1"}`))
	ws.WriteMessage(websocket.TextMessage, []byte(`{"message_id":2,"result":true}`))

	// Unknown and malformed messages are dropped without closing the socket
	select {
	case env := <-received:
		if env.Kind != KindEvent || env.Event.ObjectID != "p1" {
			t.Errorf("expected player event first, got %+v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case env := <-received:
		if env.Kind != KindResult || env.Result.MessageID != 2 {
			t.Errorf("expected result 2, got %+v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for result")
	}

	if got := c.State().Status; got != StatusConnected {
		t.Errorf("expected to stay connected, got %s", got)
	}
}

func TestConnHandshakeRejected(t *testing.T) {
	hub := newFakeHub(t)
	hub.setHello(map[string]any{"event": "hello"})
	c := newTestConn(t, hub)

	err := c.Connect(context.Background())
	var connErr *ConnectionFailedError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionFailedError, got %v", err)
	}

	s := c.State()
	if s.Status != StatusFailed {
		t.Errorf("expected failed, got %s", s.Status)
	}
	if s.Err == nil {
		t.Error("expected failure cause in state")
	}
}

func TestConnDialFailure(t *testing.T) {
	hub := newFakeHub(t)
	host, port := hub.addr(t)
	hub.server.Close()

	c := NewConn(host, port, WithHandshakeTimeout(time.Second))
	defer c.Disconnect()

	err := c.Connect(context.Background())
	var connErr *ConnectionFailedError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionFailedError, got %v", err)
	}
	if c.State().Status != StatusFailed {
		t.Errorf("expected failed, got %s", c.State().Status)
	}
}

func TestConnReconnectsAfterDrop(t *testing.T) {
	hub := newFakeHub(t)
	var attempts []int
	c := newTestConn(t, hub,
		WithBackoff(Backoff{Initial: 10 * time.Millisecond, Max: 40 * time.Millisecond}),
		WithReconnectHook(func(attempt int) { attempts = append(attempts, attempt) }),
	)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	first := hub.accept(t)

	states, cancel := c.Subscribe()
	defer cancel()

	first.Close()

	waitForStatus(t, states, StatusDisconnected)
	r := waitForStatus(t, states, StatusReconnecting)
	if r.Attempt != 1 || r.Delay != 10*time.Millisecond {
		t.Errorf("expected attempt 1 in 10ms, got attempt %d in %s", r.Attempt, r.Delay)
	}
	hub.accept(t)
	s := waitForStatus(t, states, StatusConnected)
	if s.Attempt != 0 {
		t.Errorf("expected attempt counter reset, got %d", s.Attempt)
	}
	if len(attempts) != 1 || attempts[0] != 1 {
		t.Errorf("expected one reconnect attempt, got %v", attempts)
	}
}

func TestConnBackoffGrowsAndResets(t *testing.T) {
	hub := newFakeHub(t)
	c := newTestConn(t, hub, WithBackoff(Backoff{Initial: 10 * time.Millisecond, Max: 40 * time.Millisecond}))

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	first := hub.accept(t)

	states, cancel := c.Subscribe()
	defer cancel()

	// Handshakes fail until the hub sends server info again
	hub.setHello(map[string]any{"event": "hello"})
	first.Close()

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 40 * time.Millisecond}
	for i, delay := range want {
		r := waitForStatus(t, states, StatusReconnecting)
		if r.Attempt != i+1 || r.Delay != delay {
			t.Fatalf("step %d: expected attempt %d in %s, got attempt %d in %s", i, i+1, delay, r.Attempt, r.Delay)
		}
	}

	hub.setHello(ServerInfo{ServerVersion: "2.5.0", SchemaVersion: 27, ServerID: "hub1"})
	waitForStatus(t, states, StatusConnected)
	second := hub.accept(t)

	second.Close()
	r := waitForStatus(t, states, StatusReconnecting)
	if r.Attempt != 1 || r.Delay != 10*time.Millisecond {
		t.Errorf("expected backoff reset to attempt 1 in 10ms, got attempt %d in %s", r.Attempt, r.Delay)
	}
	waitForStatus(t, states, StatusConnected)
}

func TestConnDisconnectStopsReconnect(t *testing.T) {
	hub := newFakeHub(t)
	c := newTestConn(t, hub, WithBackoff(Backoff{Initial: 50 * time.Millisecond, Max: 50 * time.Millisecond}))

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	first := hub.accept(t)

	states, cancel := c.Subscribe()
	defer cancel()

	first.Close()
	waitForStatus(t, states, StatusReconnecting)

	c.Disconnect()
	if got := c.State().Status; got != StatusDisconnected {
		t.Errorf("expected disconnected, got %s", got)
	}

	select {
	case <-hub.conns:
		t.Error("reconnected after Disconnect")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConnDisconnectIsIntentional(t *testing.T) {
	hub := newFakeHub(t)
	c := newTestConn(t, hub, WithBackoff(Backoff{Initial: 10 * time.Millisecond, Max: 10 * time.Millisecond}))

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	ws := hub.accept(t)

	c.Disconnect()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close frame, got %v", err)
	}

	select {
	case <-hub.conns:
		t.Error("intentional disconnect triggered reconnection")
	case <-time.After(100 * time.Millisecond):
	}
	if err := c.Send(Command{MessageID: 1, Command: "x"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after disconnect, got %v", err)
	}
}
