// ABOUTME: Built-in player event decoding
// ABOUTME: Maps builtin_player event payloads to typed playback commands
package events

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuiltinCommand is a playback instruction sent to a built-in player
type BuiltinCommand string

const (
	CommandPlayMedia BuiltinCommand = "PLAY_MEDIA"
	CommandPlay      BuiltinCommand = "PLAY"
	CommandPause     BuiltinCommand = "PAUSE"
	CommandStop      BuiltinCommand = "STOP"
	CommandSetVolume BuiltinCommand = "SET_VOLUME"
	CommandMute      BuiltinCommand = "MUTE"
	CommandUnmute    BuiltinCommand = "UNMUTE"
	CommandPowerOn   BuiltinCommand = "POWER_ON"
	CommandPowerOff  BuiltinCommand = "POWER_OFF"
	CommandTimeout   BuiltinCommand = "TIMEOUT"
	CommandUnknown   BuiltinCommand = "UNKNOWN"
)

var builtinCommands = map[string]BuiltinCommand{
	"PLAY_MEDIA": CommandPlayMedia,
	"PLAY":       CommandPlay,
	"UNPAUSE":    CommandPlay,
	"PAUSE":      CommandPause,
	"STOP":       CommandStop,
	"SET_VOLUME": CommandSetVolume,
	"MUTE":       CommandMute,
	"UNMUTE":     CommandUnmute,
	"POWER_ON":   CommandPowerOn,
	"POWER_OFF":  CommandPowerOff,
	"TIMEOUT":    CommandTimeout,
}

// ParseBuiltinCommand maps a wire command name, case-insensitively
func ParseBuiltinCommand(s string) BuiltinCommand {
	if cmd, ok := builtinCommands[strings.ToUpper(s)]; ok {
		return cmd
	}
	return CommandUnknown
}

// BuiltinPlayerEvent is a command addressed to one built-in player
type BuiltinPlayerEvent struct {
	PlayerID    string
	Command     BuiltinCommand
	RawCommand  string
	MediaURL    string
	Volume      *float64
	QueueID     string
	QueueItemID string
}

type builtinPayload struct {
	Command     string   `json:"command"`
	Type        string   `json:"type"`
	MediaURL    string   `json:"media_url"`
	Volume      *float64 `json:"volume"`
	QueueID     string   `json:"queue_id"`
	QueueItemID string   `json:"queue_item_id"`
}

// DecodeBuiltinPlayerEvent decodes an event payload. The command key is
// "command", with "type" accepted as an alias. A payload without either key
// is malformed; an unrecognized command name decodes as CommandUnknown.
func DecodeBuiltinPlayerEvent(playerID string, data json.RawMessage) (BuiltinPlayerEvent, error) {
	if len(data) == 0 {
		return BuiltinPlayerEvent{}, fmt.Errorf("missing payload")
	}

	var p builtinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return BuiltinPlayerEvent{}, fmt.Errorf("invalid payload: %w", err)
	}

	raw := p.Command
	if raw == "" {
		raw = p.Type
	}
	if raw == "" {
		return BuiltinPlayerEvent{}, fmt.Errorf("missing command")
	}

	return BuiltinPlayerEvent{
		PlayerID:    playerID,
		Command:     ParseBuiltinCommand(raw),
		RawCommand:  raw,
		MediaURL:    p.MediaURL,
		Volume:      p.Volume,
		QueueID:     p.QueueID,
		QueueItemID: p.QueueItemID,
	}, nil
}
