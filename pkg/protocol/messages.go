// ABOUTME: Hub wire protocol message type definitions
// ABOUTME: Defines the handshake, command, result, error and event payloads
package protocol

import "encoding/json"

// ServerInfo is the handshake message the hub sends once after the socket opens
type ServerInfo struct {
	ServerVersion             string   `json:"server_version"`
	SchemaVersion             int      `json:"schema_version"`
	MinSupportedSchemaVersion int      `json:"min_supported_schema_version"`
	ServerID                  string   `json:"server_id"`
	HomeAssistantAddon        bool     `json:"homeassistant_addon"`
	Capabilities              []string `json:"capabilities,omitempty"`
	BaseURL                   string   `json:"base_url"`
	OnboardDone               bool     `json:"onboard_done"`
}

// HasCapability reports whether the hub advertised the named capability
func (s ServerInfo) HasCapability(name string) bool {
	for _, c := range s.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// Command is a client request correlated by MessageID
type Command struct {
	MessageID int            `json:"message_id"`
	Command   string         `json:"command"`
	Args      map[string]any `json:"args,omitempty"`
}

// Result is a successful response to a Command. Result may be JSON null.
type Result struct {
	MessageID int             `json:"message_id"`
	Result    json.RawMessage `json:"result"`
}

// ErrorResponse is a failed response to a Command
type ErrorResponse struct {
	MessageID  int            `json:"message_id"`
	Error      string         `json:"error"`
	ErrorCode  *int           `json:"error_code,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Exception  string         `json:"exception,omitempty"`
	Stacktrace string         `json:"stacktrace,omitempty"`
}

// Event is a server-pushed notification
type Event struct {
	Event    string          `json:"event"`
	ObjectID string          `json:"object_id,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// BuiltinPlayerState is the state a built-in player reports to the hub
type BuiltinPlayerState struct {
	Powered  bool    `json:"powered"`
	Playing  bool    `json:"playing"`
	Paused   bool    `json:"paused"`
	Position float64 `json:"position"`
	Volume   int     `json:"volume"`
	Muted    bool    `json:"muted"`
}
