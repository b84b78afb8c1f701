// ABOUTME: In-memory transport for client tests
// ABOUTME: Records sent commands and feeds replies into the client handler
package mahub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

type fakeTransport struct {
	mu      sync.Mutex
	state   protocol.ConnectionState
	info    protocol.ServerInfo
	handler protocol.Handler
	sent    chan protocol.Command
	sendErr error
	// reply, when set, answers every command synchronously
	reply func(cmd protocol.Command) *protocol.Envelope
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		state: protocol.ConnectionState{Status: protocol.StatusDisconnected},
		info: protocol.ServerInfo{
			ServerVersion: "2.0.0-test",
			SchemaVersion: 27,
			ServerID:      "test-server",
		},
		sent: make(chan protocol.Command, 100),
	}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.info
	f.state = protocol.ConnectionState{Status: protocol.StatusConnected, ServerInfo: &info}
	return nil
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = protocol.ConnectionState{Status: protocol.StatusDisconnected}
}

func (f *fakeTransport) Send(v any) error {
	f.mu.Lock()
	connected := f.state.Status == protocol.StatusConnected
	sendErr := f.sendErr
	reply := f.reply
	f.mu.Unlock()

	if !connected {
		return protocol.ErrNotConnected
	}
	if sendErr != nil {
		return sendErr
	}

	cmd := v.(protocol.Command)
	f.sent <- cmd
	if reply != nil {
		if env := reply(cmd); env != nil {
			f.deliver(*env)
		}
	}
	return nil
}

func (f *fakeTransport) SetHandler(h protocol.Handler) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func (f *fakeTransport) State() protocol.ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) Subscribe() (<-chan protocol.ConnectionState, func()) {
	return make(chan protocol.ConnectionState), func() {}
}

func (f *fakeTransport) Host() string { return "localhost" }
func (f *fakeTransport) Port() int    { return 8095 }

func (f *fakeTransport) deliver(env protocol.Envelope) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(env)
}

func (f *fakeTransport) respond(id int, result string) {
	f.deliver(protocol.Envelope{
		Kind:   protocol.KindResult,
		Result: &protocol.Result{MessageID: id, Result: json.RawMessage(result)},
	})
}

func (f *fakeTransport) nextSent(t *testing.T) protocol.Command {
	t.Helper()
	select {
	case cmd := <-f.sent:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for command")
		return protocol.Command{}
	}
}

func resultReply(result string) func(protocol.Command) *protocol.Envelope {
	return func(cmd protocol.Command) *protocol.Envelope {
		return &protocol.Envelope{
			Kind:   protocol.KindResult,
			Result: &protocol.Result{MessageID: cmd.MessageID, Result: json.RawMessage(result)},
		}
	}
}

// newConnectedClient returns a client over a connected fake transport
func newConnectedClient(t *testing.T, opts ...Option) (*Client, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	c := NewClient("localhost", 8095, append([]Option{WithTransport(ft)}, opts...)...)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	return c, ft
}
