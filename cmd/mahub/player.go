// ABOUTME: Built-in player and monitor commands
// ABOUTME: Registers a local player with the hub and optionally shows the TUI
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/mahub-go/internal/ui"
	"github.com/Resonate-Protocol/mahub-go/internal/version"
	"github.com/Resonate-Protocol/mahub-go/pkg/builtin"
	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
	"github.com/Resonate-Protocol/mahub-go/pkg/renderer"
)

func monitorCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Watch players and events in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			s, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer s.client.Disconnect()
			s.serveStatus(ctx, opts, nil)

			return ui.Run(ctx, s.client, nil)
		},
	}
}

type playerOptions struct {
	name     string
	playerID string
	volume   int
	interval time.Duration
	tui      bool
}

func playerCmd(opts *globalOptions) *cobra.Command {
	popts := &playerOptions{}

	cmd := &cobra.Command{
		Use:   "player",
		Short: "Run a built-in player that plays hub streams locally",
		Long: `Registers this machine as a built-in player of the hub. The hub sends
playback commands over the WebSocket and the player streams the media
URL it is given, reporting its state back periodically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlayer(opts, popts)
		},
	}

	hostname, _ := os.Hostname()
	defaultName := "mahub-go"
	if hostname != "" {
		defaultName = fmt.Sprintf("mahub-go (%s)", hostname)
	}

	flags := cmd.Flags()
	flags.StringVar(&popts.name, "name", defaultName, "Player name shown by the hub")
	flags.StringVar(&popts.playerID, "player-id", "", "Player id to request (default: generated)")
	flags.IntVar(&popts.volume, "volume", 100, "Initial volume (0-100)")
	flags.DurationVar(&popts.interval, "state-interval", 30*time.Second, "Periodic state report interval")
	flags.BoolVar(&popts.tui, "tui", false, "Show the monitor UI while playing")

	// Headless runs echo the log to stdout; with --tui it goes to the file only
	cmd.Annotations = map[string]string{"logs": "stdout"}
	return cmd
}

func runPlayer(opts *globalOptions, popts *playerOptions) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer s.client.Disconnect()

	playerID := popts.playerID
	if playerID == "" {
		playerID = "mahub-" + uuid.NewString()[:8]
	}

	updates := make(chan tea.Msg, 16)
	stream := renderer.NewStream(renderer.WithUserAgent(version.UserAgent()))
	defer stream.Close()

	player := builtin.NewPlayer(s.client, stream, builtin.Config{
		Name:          popts.name,
		PlayerID:      playerID,
		Volume:        &popts.volume,
		StateInterval: popts.interval,
		OnStateChange: func(st builtin.Status) {
			select {
			case updates <- ui.BuiltinMsg(st):
			default:
			}
		},
		OnError: func(err error) {
			log.Printf("Built-in player error: %v", err)
			select {
			case updates <- ui.ErrMsg{Err: err}:
			default:
			}
		},
	})

	if err := player.Register(ctx); err != nil {
		return err
	}
	log.Printf("Built-in player %q registered as %s", popts.name, player.PlayerID())

	s.serveStatus(ctx, opts, player)
	states, unsubscribe := s.client.SubscribeState()
	defer unsubscribe()
	go reregisterOnReconnect(ctx, states, player)

	if popts.tui {
		err = ui.Run(ctx, s.client, updates)
	} else {
		go drain(ctx, updates)
		<-ctx.Done()
		log.Printf("Shutting down...")
	}

	unregisterCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if uerr := player.Unregister(unregisterCtx); uerr != nil {
		log.Printf("Error unregistering: %v", uerr)
	}
	return err
}

// registrar is the built-in player lifecycle used on reconnect
type registrar interface {
	Register(ctx context.Context) error
	Unregister(ctx context.Context) error
}

// reregisterOnReconnect registers the player again after the connection
// was re-established, since the hub forgets built-in players on disconnect
func reregisterOnReconnect(ctx context.Context, states <-chan protocol.ConnectionState, player registrar) {
	dropped := false
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			switch st.Status {
			case protocol.StatusReconnecting, protocol.StatusDisconnected:
				dropped = true
			case protocol.StatusConnected:
				if !dropped {
					continue
				}
				dropped = false
				log.Printf("Reconnected, registering built-in player again")
				if err := player.Unregister(ctx); err != nil {
					log.Printf("Unregister before re-register failed: %v", err)
				}
				if err := player.Register(ctx); err != nil {
					log.Printf("Re-register failed: %v", err)
				}
			}
		}
	}
}

func drain(ctx context.Context, ch <-chan tea.Msg) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
		}
	}
}
