// ABOUTME: Tests for typed hub commands
// ABOUTME: Checks command names, argument keys and result decoding
package mahub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

func argsJSON(t *testing.T, cmd protocol.Command) string {
	t.Helper()
	if cmd.Args == nil {
		return ""
	}
	data, err := json.Marshal(cmd.Args)
	if err != nil {
		t.Fatalf("failed to marshal args: %v", err)
	}
	return string(data)
}

func TestCommandWireShapes(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		call    func(c *Client) error
		command string
		args    string
	}{
		{"play", func(c *Client) error { return c.Play(ctx, "p1") }, "players/cmd/play", `{"player_id":"p1"}`},
		{"pause", func(c *Client) error { return c.Pause(ctx, "p1") }, "players/cmd/pause", `{"player_id":"p1"}`},
		{"stop", func(c *Client) error { return c.Stop(ctx, "p1") }, "players/cmd/stop", `{"player_id":"p1"}`},
		{"next", func(c *Client) error { return c.Next(ctx, "p1") }, "players/cmd/next", `{"player_id":"p1"}`},
		{"previous", func(c *Client) error { return c.Previous(ctx, "p1") }, "players/cmd/previous", `{"player_id":"p1"}`},
		{"volume", func(c *Client) error { return c.SetVolume(ctx, "p1", 50) }, "players/cmd/volume_set", `{"player_id":"p1","volume_level":50}`},
		{"seek", func(c *Client) error { return c.Seek(ctx, "p1", 12.5) }, "players/cmd/seek", `{"player_id":"p1","position":12.5}`},
		{"group", func(c *Client) error { return c.Group(ctx, "p1", "p2") }, "players/cmd/group", `{"player_id":"p1","target_player":"p2"}`},
		{"ungroup", func(c *Client) error { return c.Ungroup(ctx, "p1") }, "players/cmd/ungroup", `{"player_id":"p1"}`},
		{"clear", func(c *Client) error { return c.ClearQueue(ctx, "q1") }, "player_queues/clear", `{"queue_id":"q1"}`},
		{"shuffle", func(c *Client) error { return c.Shuffle(ctx, "q1", true) }, "player_queues/shuffle", `{"queue_id":"q1","shuffle":true}`},
		{"repeat", func(c *Client) error { return c.SetRepeat(ctx, "q1", RepeatAll) }, "player_queues/repeat", `{"queue_id":"q1","repeat_mode":"all"}`},
		{"seek queue", func(c *Client) error { return c.SeekQueue(ctx, "q1", 30) }, "player_queues/seek", `{"position":30,"queue_id":"q1"}`},
		{"play media", func(c *Client) error {
			_, err := c.PlayMedia(ctx, "q1", "library://track/1", PlayMediaOptions{})
			return err
		}, "player_queues/play_media", `{"media":"library://track/1","option":"play","queue_id":"q1","radio_mode":false}`},
		{"unregister", func(c *Client) error { return c.UnregisterBuiltinPlayer(ctx, "bp1") }, "builtin_player/unregister", `{"player_id":"bp1"}`},
		{"players", func(c *Client) error {
			_, err := c.GetPlayers(ctx)
			return err
		}, "players/all", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ft := newConnectedClient(t)
			ft.reply = resultReply(`null`)

			if err := tt.call(c); err != nil {
				t.Fatalf("call failed: %v", err)
			}
			cmd := ft.nextSent(t)
			if cmd.Command != tt.command {
				t.Errorf("expected command %s, got %s", tt.command, cmd.Command)
			}
			if got := argsJSON(t, cmd); got != tt.args {
				t.Errorf("expected args %s, got %s", tt.args, got)
			}
		})
	}
}

func TestSetRepeatRejectsUnknownMode(t *testing.T) {
	c, _ := newConnectedClient(t)
	if err := c.SetRepeat(context.Background(), "q1", "sometimes"); err == nil {
		t.Error("expected error for invalid repeat mode")
	}
}

func TestGetPlayers(t *testing.T) {
	c, ft := newConnectedClient(t)
	ft.reply = resultReply(`[{"player_id":"p1","name":"Kitchen","provider":"sonos","available":true,"powered":true,"state":"playing","volume_level":40,"current_item":{"name":"Song","artists":[{"name":"A"},{"name":"B"}]}}]`)

	players, err := c.GetPlayers(context.Background())
	if err != nil {
		t.Fatalf("GetPlayers failed: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(players))
	}
	p := players[0]
	if p.PlayerID != "p1" || p.Name != "Kitchen" || p.State != "playing" || p.VolumeLevel != 40 {
		t.Errorf("unexpected player %+v", p)
	}
	if p.CurrentItem == nil || p.CurrentItem.ArtistNames() != "A, B" {
		t.Errorf("unexpected current item %+v", p.CurrentItem)
	}
}

func TestGetPlayersDecodingError(t *testing.T) {
	c, ft := newConnectedClient(t)
	ft.reply = resultReply(`{"not":"a list"}`)

	_, err := c.GetPlayers(context.Background())
	var decErr *DecodingError
	if !errors.As(err, &decErr) {
		t.Errorf("expected DecodingError, got %v", err)
	}
}

func TestSearchDefaultsLimit(t *testing.T) {
	c, ft := newConnectedClient(t)
	ft.reply = resultReply(`{"tracks":[{"name":"Song","uri":"library://track/1"}],"albums":[]}`)

	results, err := c.Search(context.Background(), "song", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	cmd := ft.nextSent(t)
	if got := argsJSON(t, cmd); got != `{"limit":25,"search_query":"song"}` {
		t.Errorf("unexpected args %s", got)
	}
	if len(results.Tracks) != 1 || results.Tracks[0].URI != "library://track/1" {
		t.Errorf("unexpected tracks %+v", results.Tracks)
	}
}

func TestGetQueueItems(t *testing.T) {
	for _, result := range []string{
		`[{"queue_item_id":"i1","name":"One"},{"queue_item_id":"i2","media_item":{"name":"Two"}}]`,
		`{"items":[{"queue_item_id":"i1","name":"One"},{"queue_item_id":"i2","media_item":{"name":"Two"}}]}`,
	} {
		c, ft := newConnectedClient(t)
		ft.reply = resultReply(result)

		items, err := c.GetQueueItems(context.Background(), "q1", 0, 0)
		if err != nil {
			t.Fatalf("GetQueueItems failed: %v", err)
		}
		cmd := ft.nextSent(t)
		if got := argsJSON(t, cmd); got != `{"limit":50,"offset":0,"queue_id":"q1"}` {
			t.Errorf("unexpected args %s", got)
		}
		if len(items) != 2 || items[0].Title() != "One" || items[1].Title() != "Two" {
			t.Errorf("unexpected items %+v", items)
		}
	}
}

func TestGetQueueNull(t *testing.T) {
	c, ft := newConnectedClient(t)
	ft.reply = resultReply(`null`)

	q, err := c.GetQueue(context.Background(), "q1")
	if err != nil {
		t.Fatalf("GetQueue failed: %v", err)
	}
	if q != nil {
		t.Errorf("expected nil queue, got %+v", q)
	}
}

func TestRegisterBuiltinPlayer(t *testing.T) {
	c, ft := newConnectedClient(t)
	ft.reply = resultReply(`{"player_id":"bp-assigned","name":"Desk"}`)

	id, err := c.RegisterBuiltinPlayer(context.Background(), "Desk", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if id != "bp-assigned" {
		t.Errorf("expected bp-assigned, got %s", id)
	}
	cmd := ft.nextSent(t)
	if cmd.Command != "builtin_player/register" {
		t.Errorf("unexpected command %s", cmd.Command)
	}
	if got := argsJSON(t, cmd); got != `{"player_name":"Desk"}` {
		t.Errorf("unexpected args %s", got)
	}

	c.RegisterBuiltinPlayer(context.Background(), "Desk", "bp-wanted")
	cmd = ft.nextSent(t)
	if got := argsJSON(t, cmd); got != `{"player_id":"bp-wanted","player_name":"Desk"}` {
		t.Errorf("unexpected args %s", got)
	}
}

func TestRegisterBuiltinPlayerInvalidResponse(t *testing.T) {
	for _, result := range []string{`null`, `{"name":"Desk"}`, `"bp1"`, `{"player_id":7}`} {
		c, ft := newConnectedClient(t)
		ft.reply = resultReply(result)

		if _, err := c.RegisterBuiltinPlayer(context.Background(), "Desk", ""); !errors.Is(err, ErrInvalidResponse) {
			t.Errorf("%s: expected ErrInvalidResponse, got %v", result, err)
		}
	}
}

func TestUpdateBuiltinPlayerState(t *testing.T) {
	c, ft := newConnectedClient(t)
	ft.reply = resultReply(`true`)

	state := protocol.BuiltinPlayerState{Powered: true, Playing: true, Position: 12.5, Volume: 80}
	ok, err := c.UpdateBuiltinPlayerState(context.Background(), "bp1", state)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !ok {
		t.Error("expected acknowledgement")
	}
	cmd := ft.nextSent(t)
	want := `{"player_id":"bp1","state":{"powered":true,"playing":true,"paused":false,"position":12.5,"volume":80,"muted":false}}`
	if got := argsJSON(t, cmd); got != want {
		t.Errorf("expected args %s, got %s", want, got)
	}

	ft.reply = resultReply(`null`)
	ok, err = c.UpdateBuiltinPlayerState(context.Background(), "bp1", state)
	if err != nil || ok {
		t.Errorf("expected false without error for null result, got %v %v", ok, err)
	}
}
