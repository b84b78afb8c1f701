// ABOUTME: Tests for the HTTP stream renderer
// ABOUTME: Serves raw PCM over httptest and records what reaches the output
package renderer

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/mahub-go/pkg/builtin"
)

var _ builtin.Renderer = (*Stream)(nil)

type recordingOutput struct {
	mu      sync.Mutex
	opened  int
	samples int
	volume  int
	muted   bool
	closed  bool
}

func (o *recordingOutput) Open(sampleRate, channels, bitDepth int) error {
	o.mu.Lock()
	o.opened++
	o.mu.Unlock()
	return nil
}

func (o *recordingOutput) Write(samples []int32) error {
	// pace writes a little so tests can observe playback in progress
	time.Sleep(time.Millisecond)
	o.mu.Lock()
	o.samples += len(samples)
	o.mu.Unlock()
	return nil
}

func (o *recordingOutput) SetVolume(volume int) {
	o.mu.Lock()
	o.volume = volume
	o.mu.Unlock()
}

func (o *recordingOutput) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.mu.Unlock()
}

func (o *recordingOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

func (o *recordingOutput) written() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.samples
}

// oneSecondPCM is 16-bit stereo silence at 44.1kHz
var oneSecondPCM = make([]byte, 44100*2*2)

func newMediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/flow/s/q/i.pcm", func(w http.ResponseWriter, r *http.Request) {
		w.Write(oneSecondPCM)
	})
	mux.HandleFunc("/typed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/L16")
		w.Write(oneSecondPCM)
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestStream(t *testing.T, opts ...Option) (*Stream, *recordingOutput) {
	t.Helper()
	out := &recordingOutput{}
	s := NewStream(append([]Option{WithOutput(out)}, opts...)...)
	t.Cleanup(func() { s.Close() })
	return s, out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoadDoesNotStartPlayback(t *testing.T) {
	srv := newMediaServer(t)
	s, out := newTestStream(t)

	if err := s.Load(srv.URL + "/flow/s/q/i.pcm"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if s.Rate() != 0 {
		t.Errorf("expected rate 0 after load, got %v", s.Rate())
	}
	if out.written() != 0 {
		t.Errorf("expected no output before play, got %d samples", out.written())
	}
	if s.URL() != srv.URL+"/flow/s/q/i.pcm" {
		t.Errorf("unexpected url %s", s.URL())
	}
}

func TestPlayToEnd(t *testing.T) {
	srv := newMediaServer(t)
	ended := make(chan struct{})
	s, out := newTestStream(t, WithOnEnded(func() { close(ended) }))

	if err := s.Load(srv.URL + "/typed"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	s.Play()
	if s.Rate() != 1 {
		t.Errorf("expected rate 1 while playing, got %v", s.Rate())
	}

	select {
	case <-ended:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for end of media")
	}

	if out.written() != 44100*2 {
		t.Errorf("expected %d samples written, got %d", 44100*2, out.written())
	}
	if s.Rate() != 0 {
		t.Errorf("expected rate 0 after end, got %v", s.Rate())
	}
	if math.Abs(s.Position()-1.0) > 0.001 {
		t.Errorf("expected position 1.0, got %v", s.Position())
	}
}

func TestPauseHoldsPosition(t *testing.T) {
	srv := newMediaServer(t)
	s, out := newTestStream(t)

	if err := s.Load(srv.URL + "/flow/s/q/i.pcm"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	s.Play()
	waitFor(t, "some output", func() bool { return out.written() > 0 })

	s.Pause()
	time.Sleep(20 * time.Millisecond)
	held := out.written()
	time.Sleep(30 * time.Millisecond)

	if out.written() != held {
		t.Errorf("output advanced while paused: %d -> %d", held, out.written())
	}
	if s.Rate() != 0 {
		t.Errorf("expected rate 0 while paused, got %v", s.Rate())
	}
}

func TestSeekSkipsAhead(t *testing.T) {
	srv := newMediaServer(t)
	s, out := newTestStream(t)

	if err := s.Load(srv.URL + "/flow/s/q/i.pcm"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !s.Seek(context.Background(), 0.5) {
		t.Fatal("seek failed")
	}
	if math.Abs(s.Position()-0.5) > 0.001 {
		t.Errorf("expected position 0.5 after seek, got %v", s.Position())
	}

	s.Play()
	waitFor(t, "end of media", func() bool { return s.Rate() == 0 && out.written() > 0 })
	if out.written() != 44100 {
		t.Errorf("expected half the samples played, got %d", out.written())
	}
}

func TestSeekWithoutMedia(t *testing.T) {
	s, _ := newTestStream(t)
	if s.Seek(context.Background(), 10) {
		t.Error("expected seek to fail with nothing loaded")
	}
}

func TestStopReleasesMedia(t *testing.T) {
	srv := newMediaServer(t)
	s, _ := newTestStream(t)

	if err := s.Load(srv.URL + "/flow/s/q/i.pcm"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	s.Play()
	s.Stop()

	if s.URL() != "" || s.Rate() != 0 || s.Position() != 0 {
		t.Errorf("expected cleared state, got url=%q rate=%v pos=%v", s.URL(), s.Rate(), s.Position())
	}
	// Play after stop does nothing
	s.Play()
	if s.Rate() != 0 {
		t.Error("play after stop started playback")
	}
}

func TestLoadErrors(t *testing.T) {
	srv := newMediaServer(t)
	s, _ := newTestStream(t)

	for _, path := range []string{"/missing.mp3", "/page.html"} {
		if err := s.Load(srv.URL + path); err == nil {
			t.Errorf("%s: expected load error", path)
		}
	}
	if err := s.Load("://bad"); err == nil {
		t.Error("expected error for invalid url")
	}
}

func TestVolumeReachesOutput(t *testing.T) {
	s, out := newTestStream(t)
	s.SetVolume(30)
	s.SetMuted(true)

	out.mu.Lock()
	defer out.mu.Unlock()
	if out.volume != 30 || !out.muted {
		t.Errorf("expected volume 30 muted, got %d %v", out.volume, out.muted)
	}
}

func TestUserAgentIsSent(t *testing.T) {
	agents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case agents <- r.UserAgent():
		default:
		}
		w.Write(oneSecondPCM)
	}))
	defer srv.Close()

	s, _ := newTestStream(t, WithUserAgent("mahub-go/test"))
	if err := s.Load(srv.URL + "/a.pcm"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := <-agents; got != "mahub-go/test" {
		t.Errorf("expected user agent mahub-go/test, got %q", got)
	}
}
