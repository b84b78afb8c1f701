// ABOUTME: Connection state model
// ABOUTME: Status enum plus the snapshot published on every transition
package protocol

import (
	"fmt"
	"time"
)

// Status is the phase of the connection lifecycle
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ConnectionState is a single value of the connection lifecycle.
// ServerInfo is set when Connected, Attempt and Delay when Reconnecting,
// Err when Failed.
type ConnectionState struct {
	Status     Status
	ServerInfo *ServerInfo
	Attempt    int
	Delay      time.Duration
	Err        error
}

func (s ConnectionState) String() string {
	switch s.Status {
	case StatusReconnecting:
		return fmt.Sprintf("reconnecting (attempt %d, in %s)", s.Attempt, s.Delay)
	case StatusFailed:
		if s.Err != nil {
			return fmt.Sprintf("failed: %v", s.Err)
		}
	case StatusConnected:
		if s.ServerInfo != nil {
			return fmt.Sprintf("connected to %s (v%s)", s.ServerInfo.ServerID, s.ServerInfo.ServerVersion)
		}
	}
	return s.Status.String()
}
