// ABOUTME: Hub client package
// ABOUTME: Command correlation, typed commands, events and stream URLs
// Package mahub is a client for a Music Assistant style hub.
//
// Client correlates commands with their responses by message id over a
// protocol.Conn, routes server events through an events.Router and builds
// stream URLs against the hub's base URL.
//
// Example:
//
//	client := mahub.NewClient("192.168.1.10", mahub.DefaultPort)
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect()
//
//	players, err := client.GetPlayers(ctx)
//	err = client.Play(ctx, players[0].PlayerID)
package mahub
