// ABOUTME: Hub data models returned by typed commands
// ABOUTME: Players, queues, queue items and search results
package mahub

import (
	"encoding/json"
	"strings"
)

// Player is one entry of players/all
type Player struct {
	PlayerID    string     `json:"player_id"`
	Name        string     `json:"name"`
	Provider    string     `json:"provider"`
	Type        string     `json:"type"`
	Available   bool       `json:"available"`
	Powered     bool       `json:"powered"`
	State       string     `json:"state"`
	VolumeLevel float64    `json:"volume_level"`
	VolumeMuted bool       `json:"volume_muted"`
	ActiveQueue string     `json:"active_source,omitempty"`
	CurrentItem *MediaItem `json:"current_item,omitempty"`
	GroupChilds []string   `json:"group_childs,omitempty"`
}

// Artist is a minimal artist reference
type Artist struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	URI    string `json:"uri,omitempty"`
}

// MediaItem is a track, album, artist, playlist or radio station
type MediaItem struct {
	ItemID    string   `json:"item_id"`
	Provider  string   `json:"provider"`
	Name      string   `json:"name"`
	URI       string   `json:"uri"`
	MediaType string   `json:"media_type"`
	Duration  float64  `json:"duration,omitempty"`
	Artists   []Artist `json:"artists,omitempty"`
	Owner     string   `json:"owner,omitempty"`
}

// ArtistNames joins the names of the item's artists
func (m MediaItem) ArtistNames() string {
	names := make([]string, 0, len(m.Artists))
	for _, a := range m.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// SearchResults is the result of music/search
type SearchResults struct {
	Artists   []MediaItem `json:"artists"`
	Albums    []MediaItem `json:"albums"`
	Tracks    []MediaItem `json:"tracks"`
	Playlists []MediaItem `json:"playlists"`
	Radio     []MediaItem `json:"radio"`
}

// Queue is the result of player_queues/get
type Queue struct {
	QueueID        string     `json:"queue_id"`
	DisplayName    string     `json:"display_name"`
	Active         bool       `json:"active"`
	State          string     `json:"state"`
	ShuffleEnabled bool       `json:"shuffle_enabled"`
	RepeatMode     string     `json:"repeat_mode"`
	CurrentIndex   *int       `json:"current_index"`
	ElapsedTime    float64    `json:"elapsed_time"`
	Items          int        `json:"items"`
	CurrentItem    *QueueItem `json:"current_item,omitempty"`
	NextItem       *QueueItem `json:"next_item,omitempty"`
}

// QueueItem is one entry of a queue
type QueueItem struct {
	QueueID     string     `json:"queue_id"`
	QueueItemID string     `json:"queue_item_id"`
	Name        string     `json:"name"`
	Duration    float64    `json:"duration"`
	MediaItem   *MediaItem `json:"media_item,omitempty"`
}

// QueueItemsPage is the result of player_queues/items. The hub returns either
// a bare list or an object with an items key.
type QueueItemsPage struct {
	Items []QueueItem
}

// UnmarshalJSON accepts both result shapes
func (p *QueueItemsPage) UnmarshalJSON(data []byte) error {
	var list []QueueItem
	if err := json.Unmarshal(data, &list); err == nil {
		p.Items = list
		return nil
	}
	var wrapped struct {
		Items []QueueItem `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	p.Items = wrapped.Items
	return nil
}

// Title returns the best display name for the item
func (q QueueItem) Title() string {
	if q.Name != "" {
		return q.Name
	}
	if q.MediaItem != nil {
		return q.MediaItem.Name
	}
	return q.QueueItemID
}
