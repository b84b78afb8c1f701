// ABOUTME: Media item event decoding
// ABOUTME: Derives action from the event name and media type from the payload
package events

import (
	"encoding/json"
	"strings"

	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

// MediaAction is what happened to a library item
type MediaAction string

const (
	MediaAdded   MediaAction = "added"
	MediaUpdated MediaAction = "updated"
	MediaDeleted MediaAction = "deleted"
	MediaPlayed  MediaAction = "played"
)

// MediaType is the kind of library item
type MediaType string

const (
	MediaTypeArtist   MediaType = "artist"
	MediaTypeAlbum    MediaType = "album"
	MediaTypeTrack    MediaType = "track"
	MediaTypePlaylist MediaType = "playlist"
	MediaTypeRadio    MediaType = "radio"
	MediaTypeUnknown  MediaType = "unknown"
)

// MediaItemEvent is a media_item_* event
type MediaItemEvent struct {
	Action    MediaAction
	ItemID    string
	MediaType MediaType
	Data      map[string]any
}

var mediaActions = map[string]MediaAction{
	EventMediaItemAdded:   MediaAdded,
	EventMediaItemUpdated: MediaUpdated,
	EventMediaItemDeleted: MediaDeleted,
	EventMediaItemPlayed:  MediaPlayed,
}

// ParseMediaType maps a payload media_type, defaulting to unknown
func ParseMediaType(s string) MediaType {
	switch t := MediaType(strings.ToLower(s)); t {
	case MediaTypeArtist, MediaTypeAlbum, MediaTypeTrack, MediaTypePlaylist, MediaTypeRadio:
		return t
	}
	return MediaTypeUnknown
}

func decodeMediaItemEvent(evt protocol.Event) (MediaItemEvent, bool) {
	action, ok := mediaActions[evt.Event]
	if !ok {
		return MediaItemEvent{}, false
	}

	item := MediaItemEvent{
		Action:    action,
		ItemID:    evt.ObjectID,
		MediaType: MediaTypeUnknown,
	}

	if len(evt.Data) > 0 {
		var data map[string]any
		if err := json.Unmarshal(evt.Data, &data); err == nil && data != nil {
			item.Data = data
			if s, ok := data["media_type"].(string); ok {
				item.MediaType = ParseMediaType(s)
			}
			if item.ItemID == "" {
				item.ItemID = firstString(data, "item_id", "uri")
			}
		}
	}

	return item, true
}

func firstString(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := data[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
