// ABOUTME: Lipgloss styles for the monitor TUI
// ABOUTME: Colors the title, connection status, selection and errors
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	builtinStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// statusStyle colors the status line by connection state
func statusStyle(s protocol.Status) lipgloss.Style {
	switch s {
	case protocol.StatusConnected:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	case protocol.StatusConnecting, protocol.StatusReconnecting:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	case protocol.StatusFailed:
		return errorStyle
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
}
