// ABOUTME: Bubbletea model for the hub monitor TUI
// ABOUTME: Tracks connection, players and events, and maps keys to player commands
package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/mahub-go/pkg/builtin"
	"github.com/Resonate-Protocol/mahub-go/pkg/mahub"
	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

const (
	maxEvents   = 8
	volumeStep  = 5
	commandWait = 10 * time.Second
)

// Controller sends player commands for key presses
type Controller interface {
	Play(ctx context.Context, playerID string) error
	Pause(ctx context.Context, playerID string) error
	Next(ctx context.Context, playerID string) error
	Previous(ctx context.Context, playerID string) error
	SetVolume(ctx context.Context, playerID string, level float64) error
}

// Model represents the TUI state
type Model struct {
	ctrl Controller

	// Connection
	conn       protocol.ConnectionState
	serverName string

	// Players, sorted by name
	players  []mahub.Player
	selected int

	// Built-in player
	builtin *builtin.Status

	// Recent events, newest first
	events []string
	err    string

	// Dimensions
	width  int
	height int
}

// ConnStateMsg reports a connection state change
type ConnStateMsg protocol.ConnectionState

// PlayersMsg replaces the player list
type PlayersMsg []mahub.Player

// PlayerUpdateMsg carries a player_updated event
type PlayerUpdateMsg struct {
	PlayerID string
	Data     json.RawMessage
}

// EventMsg records a raw hub event
type EventMsg struct {
	Name     string
	ObjectID string
}

// BuiltinMsg reports the built-in player state
type BuiltinMsg builtin.Status

// ErrMsg reports a failed command
type ErrMsg struct{ Err error }

// NewModel creates a new TUI model
func NewModel(ctrl Controller) Model {
	return Model{ctrl: ctrl}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case ConnStateMsg:
		m.conn = protocol.ConnectionState(msg)
		if m.conn.ServerInfo != nil {
			m.serverName = m.conn.ServerInfo.ServerID
		}
	case PlayersMsg:
		m.setPlayers([]mahub.Player(msg))
	case PlayerUpdateMsg:
		m.applyPlayerUpdate(msg)
	case EventMsg:
		m.recordEvent(msg)
	case BuiltinMsg:
		s := builtin.Status(msg)
		m.builtin = &s
	case ErrMsg:
		if msg.Err != nil {
			m.err = msg.Err.Error()
		} else {
			m.err = ""
		}
	}

	return m, nil
}

func (m *Model) setPlayers(players []mahub.Player) {
	id := m.selectedID()
	m.players = players
	sort.SliceStable(m.players, func(i, j int) bool {
		return strings.ToLower(m.players[i].Name) < strings.ToLower(m.players[j].Name)
	})
	m.selected = 0
	for i, p := range m.players {
		if p.PlayerID == id {
			m.selected = i
		}
	}
}

// applyPlayerUpdate merges an update into the list, adding unknown players
func (m *Model) applyPlayerUpdate(msg PlayerUpdateMsg) {
	for i := range m.players {
		if m.players[i].PlayerID == msg.PlayerID {
			// Unmarshal onto the existing entry so absent fields are kept
			if err := json.Unmarshal(msg.Data, &m.players[i]); err != nil {
				m.err = fmt.Sprintf("bad player update: %v", err)
			}
			return
		}
	}

	var p mahub.Player
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		m.err = fmt.Sprintf("bad player update: %v", err)
		return
	}
	p.PlayerID = msg.PlayerID
	m.setPlayers(append(m.players, p))
}

func (m *Model) recordEvent(msg EventMsg) {
	line := msg.Name
	if msg.ObjectID != "" {
		line += " " + msg.ObjectID
	}
	m.events = append([]string{line}, m.events...)
	if len(m.events) > maxEvents {
		m.events = m.events[:maxEvents]
	}
}

func (m Model) selectedPlayer() *mahub.Player {
	if m.selected < 0 || m.selected >= len(m.players) {
		return nil
	}
	return &m.players[m.selected]
}

func (m Model) selectedID() string {
	if p := m.selectedPlayer(); p != nil {
		return p.PlayerID
	}
	return ""
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down", "j":
		if m.selected < len(m.players)-1 {
			m.selected++
		}
		return m, nil
	}

	p := m.selectedPlayer()
	if p == nil || m.ctrl == nil {
		return m, nil
	}
	id := p.PlayerID

	switch msg.String() {
	case " ":
		if p.State == "playing" {
			return m, m.command(func(ctx context.Context) error { return m.ctrl.Pause(ctx, id) })
		}
		return m, m.command(func(ctx context.Context) error { return m.ctrl.Play(ctx, id) })
	case "n":
		return m, m.command(func(ctx context.Context) error { return m.ctrl.Next(ctx, id) })
	case "p":
		return m, m.command(func(ctx context.Context) error { return m.ctrl.Previous(ctx, id) })
	case "+", "=", "right":
		level := min(100, p.VolumeLevel+volumeStep)
		return m, m.command(func(ctx context.Context) error { return m.ctrl.SetVolume(ctx, id, level) })
	case "-", "left":
		level := max(0, p.VolumeLevel-volumeStep)
		return m, m.command(func(ctx context.Context) error { return m.ctrl.SetVolume(ctx, id, level) })
	}
	return m, nil
}

// command runs fn off the UI goroutine and reports its error
func (m Model) command(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandWait)
		defer cancel()
		return ErrMsg{Err: fn(ctx)}
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderPlayers())
	b.WriteString(m.renderBuiltin())
	b.WriteString(m.renderEvents())
	b.WriteString(m.renderHelp())
	return b.String()
}

// renderHeader renders connection status
func (m Model) renderHeader() string {
	status := m.conn.Status.String()
	switch m.conn.Status {
	case protocol.StatusConnected:
		status = fmt.Sprintf("Connected to %s", m.serverName)
		if m.conn.ServerInfo != nil {
			status += " v" + m.conn.ServerInfo.ServerVersion
		}
	case protocol.StatusReconnecting:
		status = fmt.Sprintf("Reconnecting (attempt %d, next in %s)", m.conn.Attempt, m.conn.Delay)
	case protocol.StatusFailed:
		if m.conn.Err != nil {
			status = "Failed: " + m.conn.Err.Error()
		}
	}

	return titleStyle.Render("┌─ Music Hub Monitor ──────────────────────────────────┐") + "\n" +
		statusStyle(m.conn.Status).Render(fmt.Sprintf("│ Status: %-45s │", truncate(status, 45))) + "\n" +
		"├──────────────────────────────────────────────────────┤\n"
}

// renderPlayers renders the player list with the selection marker
func (m Model) renderPlayers() string {
	if len(m.players) == 0 {
		return "│ No players                                           │\n"
	}

	var b strings.Builder
	for i, p := range m.players {
		marker := " "
		if i == m.selected {
			marker = ">"
		}
		state := p.State
		if !p.Available {
			state = "unavailable"
		}
		line := fmt.Sprintf("│%s %-20s %-11s [%s] %3.0f%% │",
			marker, truncate(p.Name, 20), truncate(state, 11), renderBar(int(p.VolumeLevel), 100, 10), p.VolumeLevel)
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if p := m.selectedPlayer(); p != nil && p.CurrentItem != nil {
		b.WriteString("│                                                      │\n")
		fmt.Fprintf(&b, "│   Track:  %-42s │\n", truncate(p.CurrentItem.Name, 42))
		fmt.Fprintf(&b, "│   Artist: %-42s │\n", truncate(p.CurrentItem.ArtistNames(), 42))
	}
	return b.String()
}

// renderBuiltin renders the local built-in player, when one is running
func (m Model) renderBuiltin() string {
	if m.builtin == nil {
		return ""
	}
	s := m.builtin
	state := "idle"
	switch {
	case s.Playing:
		state = "playing"
	case s.Paused:
		state = "paused"
	}
	if !s.Powered {
		state = "off"
	}
	muteIcon := ""
	if s.Muted {
		muteIcon = " muted"
	}

	return "├──────────────────────────────────────────────────────┤\n" +
		builtinStyle.Render(fmt.Sprintf("│ Built-in: %-20s %-8s %5.1fs%-9s │", truncate(s.PlayerID, 20), state, s.Position, "")) + "\n" +
		fmt.Sprintf("│ Volume: [%s] %d%%%-26s │\n", renderBar(s.Volume, 100, 10), s.Volume, muteIcon)
}

// renderEvents renders the recent event log
func (m Model) renderEvents() string {
	var b strings.Builder
	b.WriteString("├──────────────────────────────────────────────────────┤\n")
	for _, e := range m.events {
		fmt.Fprintf(&b, "│ %-52s │\n", truncate(e, 52))
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render(fmt.Sprintf("│ Error: %-45s │", truncate(m.err, 45))) + "\n")
	}
	return b.String()
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return helpStyle.Render("│ ↑/↓:Select  space:Play/Pause  n/p:Skip  +/-:Vol  q:Quit │") + "\n" +
		"└──────────────────────────────────────────────────────┘\n"
}

// Utility functions
func renderBar(value, max, width int) string {
	value = min(max, value)
	filled := (value * width) / max
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
