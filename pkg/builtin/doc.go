// ABOUTME: Built-in player package
// ABOUTME: Virtual playback endpoint driven by hub events
// Package builtin implements the hub's built-in player sub-protocol.
//
// A Player registers itself with the hub as a virtual player, applies the
// commands the hub sends it (PLAY_MEDIA, PAUSE, SET_VOLUME, ...) to a
// Renderer and reports its state back every StateInterval and after each
// change.
//
// Example:
//
//	player := builtin.NewPlayer(client, renderer.NewStream(), builtin.Config{Name: "Desk"})
//	if err := player.Register(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer player.Unregister(context.Background())
package builtin
