// ABOUTME: TUI initialization and control
// ABOUTME: Feeds hub state and events into the bubbletea monitor program
package ui

import (
	"context"
	"encoding/json"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/mahub-go/pkg/events"
	"github.com/Resonate-Protocol/mahub-go/pkg/mahub"
	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

// Hub is what the monitor watches and controls
type Hub interface {
	Controller
	GetPlayers(ctx context.Context) ([]mahub.Player, error)
	State() protocol.ConnectionState
	SubscribeState() (<-chan protocol.ConnectionState, func())
	Events() *events.Router
}

// Run starts the monitor and blocks until the user quits or ctx ends.
// extra is sent into the program as-is, e.g. BuiltinMsg updates.
func Run(ctx context.Context, hub Hub, extra <-chan tea.Msg) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(hub), tea.WithAltScreen(), tea.WithContext(ctx))

	go feed(ctx, p, hub, extra)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// feed forwards subscriptions into the program until ctx ends
func feed(ctx context.Context, p *tea.Program, hub Hub, extra <-chan tea.Msg) {
	states, cancelStates := hub.SubscribeState()
	defer cancelStates()
	raw, cancelRaw := hub.Events().Raw.Subscribe(64)
	defer cancelRaw()
	updates, cancelUpdates := hub.Events().PlayerUpdates.Subscribe(64)
	defer cancelUpdates()

	p.Send(ConnStateMsg(hub.State()))
	refreshPlayers(ctx, p, hub)

	for {
		select {
		case s := <-states:
			p.Send(ConnStateMsg(s))
			if s.Status == protocol.StatusConnected {
				refreshPlayers(ctx, p, hub)
			}
		case evt := <-raw:
			p.Send(EventMsg{Name: evt.Event, ObjectID: evt.ObjectID})
		case u := <-updates:
			data, err := json.Marshal(u.Data)
			if err != nil {
				continue
			}
			p.Send(PlayerUpdateMsg{PlayerID: u.PlayerID, Data: data})
		case msg := <-extra:
			p.Send(msg)
		case <-ctx.Done():
			return
		}
	}
}

func refreshPlayers(ctx context.Context, p *tea.Program, hub Hub) {
	players, err := hub.GetPlayers(ctx)
	if err != nil {
		log.Printf("Failed to load players: %v", err)
		p.Send(ErrMsg{Err: err})
		return
	}
	p.Send(PlayersMsg(players))
}
