// ABOUTME: HTTP stream renderer for the built-in player
// ABOUTME: Fetches hub streams, decodes them and plays them on an audio output
package renderer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/mahub-go/pkg/audio"
	"github.com/Resonate-Protocol/mahub-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/mahub-go/pkg/audio/output"
)

// chunkSamples is how many samples each output write carries
const chunkSamples = 4096

// Option configures a Stream
type Option func(*Stream)

// WithHTTPClient sets the client used to fetch media
func WithHTTPClient(client *http.Client) Option {
	return func(s *Stream) { s.client = client }
}

// WithOutput replaces the default oto output
func WithOutput(out output.Output) Option {
	return func(s *Stream) { s.out = out }
}

// WithUserAgent sets the User-Agent header of media requests
func WithUserAgent(ua string) Option {
	return func(s *Stream) { s.userAgent = ua }
}

// WithOnEnded sets a callback run when media plays to the end
func WithOnEnded(fn func()) Option {
	return func(s *Stream) { s.onEnded = fn }
}

// Stream plays one media URL at a time. It is safe for concurrent use.
type Stream struct {
	client    *http.Client
	out       output.Output
	onEnded   func()
	userAgent string

	// loadMu serializes Load, Seek and Stop
	loadMu sync.Mutex

	mu      sync.Mutex
	url     string
	sess    *session
	playing bool
	ended   bool
	wake    chan struct{}
}

// session is one open HTTP response being decoded
type session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	decoder decode.Stream
	format  audio.Format
	written int // samples handed to the output, including skipped ones
	done    chan struct{}
}

// NewStream creates a renderer
func NewStream(opts ...Option) *Stream {
	s := &Stream{
		client: http.DefaultClient,
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.out == nil {
		s.out = output.NewOto()
	}
	return s
}

// Load opens url and prepares it for playback. Playback starts on Play.
func (s *Stream) Load(url string) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.stop()

	sess, err := s.open(url, 0)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.url = url
	s.playing = false
	s.ended = false
	s.sess = sess
	s.mu.Unlock()

	go s.run(sess)
	log.Printf("Loaded %s (%s %dHz %dch)", url, sess.format.Codec, sess.format.SampleRate, sess.format.Channels)
	return nil
}

// open fetches url, picks a decoder, prepares the output and skips to
// position seconds
func (s *Stream) open(url string, position float64) (*session, error) {
	ctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid media url: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to fetch media: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	codec := decode.CodecFor(req.URL.Path, resp.Header.Get("Content-Type"))
	decoder, err := decode.Open(resp.Body, codec)
	if err != nil {
		cancel()
		return nil, err
	}

	format := decoder.Format()
	if err := s.out.Open(format.SampleRate, format.Channels, format.BitDepth); err != nil {
		decoder.Close()
		cancel()
		return nil, err
	}

	sess := &session{
		ctx:     ctx,
		cancel:  cancel,
		decoder: decoder,
		format:  format,
		done:    make(chan struct{}),
	}
	if position > 0 {
		if err := sess.skip(format.Samples(time.Duration(position * float64(time.Second)))); err != nil {
			sess.close()
			return nil, err
		}
	}
	return sess, nil
}

// skip decodes and drops samples
func (sess *session) skip(samples int) error {
	buf := make([]int32, chunkSamples)
	for sess.written < samples {
		want := min(len(buf), samples-sess.written)
		n, err := sess.decoder.Read(buf[:want])
		sess.written += n
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("seek failed: %w", err)
		}
	}
	return nil
}

func (sess *session) close() {
	sess.cancel()
	sess.decoder.Close()
}

// run feeds decoded audio to the output while playing
func (s *Stream) run(sess *session) {
	defer close(sess.done)
	defer sess.decoder.Close()

	buf := make([]int32, chunkSamples)
	for {
		if !s.waitPlaying(sess) {
			return
		}

		n, err := sess.decoder.Read(buf)
		if n > 0 {
			if werr := s.out.Write(buf[:n]); werr != nil {
				log.Printf("Output write failed: %v", werr)
				s.finish(sess, false)
				return
			}
			s.mu.Lock()
			sess.written += n
			s.mu.Unlock()
		}

		if errors.Is(err, io.EOF) {
			s.finish(sess, true)
			return
		}
		if err != nil {
			if sess.ctx.Err() == nil {
				log.Printf("Stream decode failed: %v", err)
				s.finish(sess, false)
			}
			return
		}
	}
}

// waitPlaying blocks while paused and reports false once the session ends
func (s *Stream) waitPlaying(sess *session) bool {
	for {
		if sess.ctx.Err() != nil {
			return false
		}
		s.mu.Lock()
		playing := s.playing
		s.mu.Unlock()
		if playing {
			return true
		}

		select {
		case <-s.wake:
		case <-sess.ctx.Done():
			return false
		}
	}
}

func (s *Stream) finish(sess *session, ended bool) {
	s.mu.Lock()
	current := s.sess == sess
	if current {
		s.playing = false
		s.ended = ended
	}
	s.mu.Unlock()

	if current && ended {
		log.Printf("Playback ended")
		if s.onEnded != nil {
			s.onEnded()
		}
	}
}

// Play starts or resumes playback
func (s *Stream) Play() {
	s.mu.Lock()
	if s.sess == nil || s.ended {
		s.mu.Unlock()
		return
	}
	s.playing = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pause holds playback at the current position
func (s *Stream) Pause() {
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
}

// Stop ends playback and releases the media
func (s *Stream) Stop() {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	s.stop()
}

func (s *Stream) stop() {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.url = ""
	s.playing = false
	s.ended = false
	s.mu.Unlock()

	if sess != nil {
		sess.cancel()
		<-sess.done
	}
}

// Seek reopens the current media at seconds. It reports false when nothing
// is loaded or the stream cannot be reopened.
func (s *Stream) Seek(ctx context.Context, seconds float64) bool {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	url := s.url
	playing := s.playing
	s.mu.Unlock()
	if url == "" {
		return false
	}

	type result struct {
		sess *session
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		sess, err := s.open(url, max(0, seconds))
		ch <- result{sess, err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.sess != nil {
				r.sess.close()
			}
		}()
		return false
	}
	if r.err != nil {
		log.Printf("Seek to %.1fs failed: %v", seconds, r.err)
		return false
	}

	s.mu.Lock()
	old := s.sess
	s.sess = r.sess
	s.ended = false
	s.playing = playing
	s.mu.Unlock()

	if old != nil {
		old.cancel()
		<-old.done
	}
	go s.run(r.sess)
	if playing {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return true
}

// Position returns the playback position in seconds
func (s *Stream) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return 0
	}
	return s.sess.format.Duration(s.sess.written).Seconds()
}

// Duration returns the media length when known
func (s *Stream) Duration() (float64, bool) {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()
	if sess == nil {
		return 0, false
	}
	d, ok := sess.decoder.Duration()
	return d.Seconds(), ok
}

// Rate is 1 while audio is being played and 0 otherwise
func (s *Stream) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil && s.playing {
		return 1
	}
	return 0
}

// URL returns the loaded media URL
func (s *Stream) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *Stream) SetVolume(volume int) { s.out.SetVolume(volume) }

func (s *Stream) SetMuted(muted bool) { s.out.SetMuted(muted) }

// Close stops playback and releases the output
func (s *Stream) Close() error {
	s.Stop()
	return s.out.Close()
}
