// ABOUTME: Built-in player state machine
// ABOUTME: Registers a virtual player, drives a renderer and reports state to the hub
package builtin

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/Resonate-Protocol/mahub-go/pkg/events"
	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

// DefaultStateInterval is how often state is pushed while registered
const DefaultStateInterval = 30 * time.Second

// Hub is the subset of the hub client the player needs
type Hub interface {
	RegisterBuiltinPlayer(ctx context.Context, name, playerID string) (string, error)
	UnregisterBuiltinPlayer(ctx context.Context, playerID string) error
	UpdateBuiltinPlayerState(ctx context.Context, playerID string, state protocol.BuiltinPlayerState) (bool, error)
	ResolveMediaURL(path string) string
	Events() *events.Router
}

// Renderer plays media for the player. Implementations must be safe for
// concurrent use: the state push reads position while commands are applied.
type Renderer interface {
	Load(url string) error
	Play()
	Pause()
	Stop()
	Seek(ctx context.Context, seconds float64) bool
	Position() float64
	Duration() (float64, bool)
	Rate() float64
	SetVolume(volume int)
	SetMuted(muted bool)
}

// Registration is the player's lifecycle state
type Registration int

const (
	Unregistered Registration = iota
	Registering
	Registered
	Unregistering
)

func (r Registration) String() string {
	switch r {
	case Unregistered:
		return "unregistered"
	case Registering:
		return "registering"
	case Registered:
		return "registered"
	case Unregistering:
		return "unregistering"
	default:
		return "unknown"
	}
}

// Config holds player configuration
type Config struct {
	// Name is the display name shown by the hub
	Name string

	// PlayerID requests a specific id. Empty lets the hub assign one.
	PlayerID string

	// Volume is the initial volume (0-100). Nil means 100.
	Volume *int

	// Muted is the initial mute state
	Muted bool

	// StateInterval is the periodic push interval (default 30s)
	StateInterval time.Duration

	// OnStateChange is called after every local state change
	OnStateChange func(Status)

	// OnError is called when a command cannot be applied
	OnError func(error)
}

// Status is a snapshot of the player
type Status struct {
	Registration Registration
	PlayerID     string
	MediaURL     string
	protocol.BuiltinPlayerState
}

// Player is a virtual playback endpoint registered with the hub
type Player struct {
	config   Config
	hub      Hub
	renderer Renderer

	mu           sync.Mutex
	registration Registration
	playerID     string
	powered      bool
	volume       int
	muted        bool
	mediaURL     string
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewPlayer creates an unregistered player
func NewPlayer(hub Hub, renderer Renderer, config Config) *Player {
	if config.Name == "" {
		config.Name = "mahub-go"
	}
	volume := 100
	if config.Volume != nil {
		volume = clampVolume(float64(*config.Volume))
	}
	if config.StateInterval <= 0 {
		config.StateInterval = DefaultStateInterval
	}

	return &Player{
		config:   config,
		hub:      hub,
		renderer: renderer,
		volume:   volume,
		muted:    config.Muted,
	}
}

// Register announces the player to the hub, starts handling its events and
// the periodic state push. It is a no-op when already registered.
func (p *Player) Register(ctx context.Context) error {
	p.mu.Lock()
	switch p.registration {
	case Registered:
		p.mu.Unlock()
		return nil
	case Registering, Unregistering:
		r := p.registration
		p.mu.Unlock()
		return fmt.Errorf("player is %s", r)
	}
	p.registration = Registering
	p.mu.Unlock()
	p.notifyStateChange()

	// Subscribe first so events sent right after the registration reply
	// are buffered until the event loop starts.
	evts, unsubscribe := p.hub.Events().BuiltinPlayer.Subscribe(32)

	id, err := p.hub.RegisterBuiltinPlayer(ctx, p.config.Name, p.config.PlayerID)
	if err != nil {
		unsubscribe()
		p.mu.Lock()
		p.registration = Unregistered
		p.mu.Unlock()
		p.notifyStateChange()
		return fmt.Errorf("register failed: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.playerID = id
	p.registration = Registered
	p.cancel = cancel
	volume, muted := p.volume, p.muted
	p.mu.Unlock()

	log.Printf("Registered built-in player %s (%s)", p.config.Name, id)

	// The renderer plays at the level the first push reports
	p.renderer.SetVolume(volume)
	p.renderer.SetMuted(muted)

	p.wg.Add(2)
	go p.eventLoop(loopCtx, evts, unsubscribe)
	go p.pushLoop(loopCtx)

	p.notifyStateChange()
	p.pushState(loopCtx)
	return nil
}

// Unregister stops the player and removes it from the hub. It is a no-op
// when not registered.
func (p *Player) Unregister(ctx context.Context) error {
	p.mu.Lock()
	if p.registration != Registered {
		p.mu.Unlock()
		return nil
	}
	p.registration = Unregistering
	id := p.playerID
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.renderer.Stop()

	err := p.hub.UnregisterBuiltinPlayer(ctx, id)

	p.mu.Lock()
	p.registration = Unregistered
	p.playerID = ""
	p.mediaURL = ""
	p.mu.Unlock()
	p.notifyStateChange()

	if err != nil {
		return fmt.Errorf("unregister failed: %w", err)
	}
	log.Printf("Unregistered built-in player %s", id)
	return nil
}

// Registration returns the lifecycle state
func (p *Player) Registration() Registration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registration
}

// PlayerID returns the hub-assigned id, empty while unregistered
func (p *Player) PlayerID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playerID
}

// State returns a snapshot of the player including renderer position
func (p *Player) State() Status {
	p.mu.Lock()
	s := Status{
		Registration: p.registration,
		PlayerID:     p.playerID,
		MediaURL:     p.mediaURL,
		BuiltinPlayerState: protocol.BuiltinPlayerState{
			Powered: p.powered,
			Volume:  p.volume,
			Muted:   p.muted,
		},
	}
	p.mu.Unlock()

	s.Playing = p.renderer.Rate() > 0
	s.Paused = s.MediaURL != "" && !s.Playing
	s.Position = p.renderer.Position()
	return s
}

func (p *Player) eventLoop(ctx context.Context, evts <-chan events.BuiltinPlayerEvent, unsubscribe func()) {
	defer p.wg.Done()
	defer unsubscribe()

	for {
		select {
		case evt := <-evts:
			if evt.PlayerID != p.PlayerID() {
				continue
			}
			if p.apply(evt) {
				p.notifyStateChange()
				p.pushState(ctx)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (p *Player) pushLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.StateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.pushState(ctx)

		case <-ctx.Done():
			return
		}
	}
}

// apply runs one hub command against the renderer and reports whether the
// player state may have changed
func (p *Player) apply(evt events.BuiltinPlayerEvent) bool {
	switch evt.Command {
	case events.CommandPlayMedia:
		if evt.MediaURL == "" {
			p.notifyError(fmt.Errorf("%s without media_url", evt.Command))
			return false
		}
		url := p.hub.ResolveMediaURL(evt.MediaURL)
		p.mu.Lock()
		p.powered = true
		p.mu.Unlock()

		if err := p.renderer.Load(url); err != nil {
			p.notifyError(fmt.Errorf("failed to load %s: %w", url, err))
			return true
		}
		p.mu.Lock()
		p.mediaURL = url
		p.mu.Unlock()
		p.renderer.Play()

	case events.CommandPlay:
		p.renderer.Play()

	case events.CommandPause:
		p.renderer.Pause()

	case events.CommandStop:
		p.stopMedia()

	case events.CommandSetVolume:
		if evt.Volume == nil {
			p.notifyError(fmt.Errorf("%s without volume", evt.Command))
			return false
		}
		volume := clampVolume(*evt.Volume)
		p.mu.Lock()
		p.volume = volume
		p.mu.Unlock()
		p.renderer.SetVolume(volume)

	case events.CommandMute, events.CommandUnmute:
		muted := evt.Command == events.CommandMute
		p.mu.Lock()
		p.muted = muted
		p.mu.Unlock()
		p.renderer.SetMuted(muted)

	case events.CommandPowerOn:
		p.mu.Lock()
		p.powered = true
		p.mu.Unlock()

	case events.CommandPowerOff:
		p.stopMedia()
		p.mu.Lock()
		p.powered = false
		p.mu.Unlock()

	case events.CommandTimeout:
		log.Printf("Hub reported timeout for built-in player %s", evt.PlayerID)
		return false

	default:
		log.Printf("Ignoring built-in player command %q", evt.RawCommand)
		return false
	}
	return true
}

func (p *Player) stopMedia() {
	p.renderer.Stop()
	p.mu.Lock()
	p.mediaURL = ""
	p.mu.Unlock()
}

// pushState reports the current state. Failures are logged; the hub marks
// the player unavailable if pushes stop arriving.
func (p *Player) pushState(ctx context.Context) {
	s := p.State()
	if s.Registration != Registered {
		return
	}
	if _, err := p.hub.UpdateBuiltinPlayerState(ctx, s.PlayerID, s.BuiltinPlayerState); err != nil {
		log.Printf("State update for %s failed: %v", s.PlayerID, err)
	}
}

func clampVolume(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

// notifyStateChange calls the OnStateChange callback if set
func (p *Player) notifyStateChange() {
	if p.config.OnStateChange != nil {
		p.config.OnStateChange(p.State())
	}
}

// notifyError calls the OnError callback if set
func (p *Player) notifyError(err error) {
	if p.config.OnError != nil {
		p.config.OnError(err)
	} else {
		log.Printf("Built-in player error: %v", err)
	}
}
