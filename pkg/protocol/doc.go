// ABOUTME: Hub wire protocol package
// ABOUTME: Defines protocol messages, classification and the WebSocket transport
// Package protocol implements the hub's JSON-over-WebSocket wire protocol.
//
// Conn owns the socket: it performs the server info handshake, classifies
// every inbound frame and reconnects with exponential backoff when the link
// drops unexpectedly.
//
// Example:
//
//	conn := protocol.NewConn("192.168.1.10", 8095)
//	conn.SetHandler(func(env protocol.Envelope) { ... })
//	err := conn.Connect(ctx)
//	err = conn.Send(protocol.Command{MessageID: 1, Command: "players/all"})
package protocol
