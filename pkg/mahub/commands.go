// ABOUTME: Typed hub commands
// ABOUTME: Player control, search, queue and built-in player registration
package mahub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

const (
	DefaultSearchLimit     = 25
	DefaultQueueItemsLimit = 50
)

// Repeat modes accepted by SetRepeat
const (
	RepeatOff = "off"
	RepeatOne = "one"
	RepeatAll = "all"
)

// GetPlayers returns every player known to the hub
func (c *Client) GetPlayers(ctx context.Context) ([]Player, error) {
	var players []Player
	if err := c.call(ctx, "players/all", nil, &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (c *Client) playerCommand(ctx context.Context, cmd, playerID string) error {
	_, err := c.SendCommand(ctx, "players/cmd/"+cmd, map[string]any{"player_id": playerID})
	return err
}

// Play resumes playback on a player
func (c *Client) Play(ctx context.Context, playerID string) error {
	return c.playerCommand(ctx, "play", playerID)
}

// Pause pauses a player
func (c *Client) Pause(ctx context.Context, playerID string) error {
	return c.playerCommand(ctx, "pause", playerID)
}

// Stop stops a player
func (c *Client) Stop(ctx context.Context, playerID string) error {
	return c.playerCommand(ctx, "stop", playerID)
}

// Next skips to the next track
func (c *Client) Next(ctx context.Context, playerID string) error {
	return c.playerCommand(ctx, "next", playerID)
}

// Previous goes back to the previous track
func (c *Client) Previous(ctx context.Context, playerID string) error {
	return c.playerCommand(ctx, "previous", playerID)
}

// SetVolume sets a player's volume level (0-100)
func (c *Client) SetVolume(ctx context.Context, playerID string, level float64) error {
	_, err := c.SendCommand(ctx, "players/cmd/volume_set", map[string]any{
		"player_id":    playerID,
		"volume_level": level,
	})
	return err
}

// Seek moves a player to position seconds
func (c *Client) Seek(ctx context.Context, playerID string, position float64) error {
	_, err := c.SendCommand(ctx, "players/cmd/seek", map[string]any{
		"player_id": playerID,
		"position":  position,
	})
	return err
}

// Group syncs playerID to targetPlayer
func (c *Client) Group(ctx context.Context, playerID, targetPlayer string) error {
	_, err := c.SendCommand(ctx, "players/cmd/group", map[string]any{
		"player_id":     playerID,
		"target_player": targetPlayer,
	})
	return err
}

// Ungroup removes a player from its group
func (c *Client) Ungroup(ctx context.Context, playerID string) error {
	return c.playerCommand(ctx, "ungroup", playerID)
}

// Search queries the library and providers. A limit of 0 uses DefaultSearchLimit.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResults, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	var results SearchResults
	if err := c.call(ctx, "music/search", map[string]any{
		"search_query": query,
		"limit":        limit,
	}, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// GetQueue returns a player queue, or nil if the hub has none
func (c *Client) GetQueue(ctx context.Context, queueID string) (*Queue, error) {
	raw, err := c.SendCommand(ctx, "player_queues/get", map[string]any{"queue_id": queueID})
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}
	var q Queue
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, &protocol.DecodingError{Err: err}
	}
	return &q, nil
}

// GetQueueItems returns a page of queue items. A limit of 0 uses
// DefaultQueueItemsLimit.
func (c *Client) GetQueueItems(ctx context.Context, queueID string, limit, offset int) ([]QueueItem, error) {
	if limit <= 0 {
		limit = DefaultQueueItemsLimit
	}
	var page QueueItemsPage
	if err := c.call(ctx, "player_queues/items", map[string]any{
		"queue_id": queueID,
		"limit":    limit,
		"offset":   offset,
	}, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// PlayMediaOptions tunes PlayMedia
type PlayMediaOptions struct {
	// Option is the enqueue mode: play, replace, next, replace_next or add.
	// Empty means play.
	Option    string
	RadioMode bool
}

// PlayMedia plays a media URI on a queue
func (c *Client) PlayMedia(ctx context.Context, queueID, uri string, opts PlayMediaOptions) (json.RawMessage, error) {
	option := opts.Option
	if option == "" {
		option = "play"
	}
	return c.SendCommand(ctx, "player_queues/play_media", map[string]any{
		"queue_id":   queueID,
		"media":      uri,
		"option":     option,
		"radio_mode": opts.RadioMode,
	})
}

// ClearQueue removes all items from a queue
func (c *Client) ClearQueue(ctx context.Context, queueID string) error {
	_, err := c.SendCommand(ctx, "player_queues/clear", map[string]any{"queue_id": queueID})
	return err
}

// Shuffle toggles shuffle on a queue
func (c *Client) Shuffle(ctx context.Context, queueID string, enabled bool) error {
	_, err := c.SendCommand(ctx, "player_queues/shuffle", map[string]any{
		"queue_id": queueID,
		"shuffle":  enabled,
	})
	return err
}

// SetRepeat sets the repeat mode of a queue
func (c *Client) SetRepeat(ctx context.Context, queueID, mode string) error {
	switch mode {
	case RepeatOff, RepeatOne, RepeatAll:
	default:
		return fmt.Errorf("invalid repeat mode %q", mode)
	}
	_, err := c.SendCommand(ctx, "player_queues/repeat", map[string]any{
		"queue_id":    queueID,
		"repeat_mode": mode,
	})
	return err
}

// SeekQueue moves the queue's current item to position seconds
func (c *Client) SeekQueue(ctx context.Context, queueID string, position float64) error {
	_, err := c.SendCommand(ctx, "player_queues/seek", map[string]any{
		"queue_id": queueID,
		"position": position,
	})
	return err
}

// RegisterBuiltinPlayer registers a virtual player and returns the id the
// hub assigned. playerID may be empty to let the hub choose.
func (c *Client) RegisterBuiltinPlayer(ctx context.Context, name, playerID string) (string, error) {
	args := map[string]any{"player_name": name}
	if playerID != "" {
		args["player_id"] = playerID
	}
	raw, err := c.SendCommand(ctx, "builtin_player/register", args)
	if err != nil {
		return "", err
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil || result == nil {
		return "", protocol.ErrInvalidResponse
	}
	id, ok := result["player_id"].(string)
	if !ok || id == "" {
		return "", protocol.ErrInvalidResponse
	}
	return id, nil
}

// UnregisterBuiltinPlayer removes a virtual player
func (c *Client) UnregisterBuiltinPlayer(ctx context.Context, playerID string) error {
	_, err := c.SendCommand(ctx, "builtin_player/unregister", map[string]any{"player_id": playerID})
	return err
}

// UpdateBuiltinPlayerState reports a virtual player's state. It returns the
// hub's acknowledgement, false when the result is not a boolean.
func (c *Client) UpdateBuiltinPlayerState(ctx context.Context, playerID string, state protocol.BuiltinPlayerState) (bool, error) {
	raw, err := c.SendCommand(ctx, "builtin_player/update_state", map[string]any{
		"player_id": playerID,
		"state":     state,
	})
	if err != nil {
		return false, err
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil {
		return false, nil
	}
	return ok, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
