// ABOUTME: Routes hub events to typed topics
// ABOUTME: Player, queue, built-in player and media item events plus a raw catch-all
package events

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

// Event names the router recognizes
const (
	EventPlayerUpdated     = "player_updated"
	EventQueueUpdated      = "queue_updated"
	EventQueueItemsUpdated = "queue_items_updated"
	EventBuiltinPlayer     = "builtin_player"
	EventMediaItemAdded    = "media_item_added"
	EventMediaItemUpdated  = "media_item_updated"
	EventMediaItemDeleted  = "media_item_deleted"
	EventMediaItemPlayed   = "media_item_played"
)

// PlayerUpdateEvent is a player_updated event
type PlayerUpdateEvent struct {
	PlayerID string
	Data     map[string]any
}

// QueueUpdateEvent is a queue_updated or queue_items_updated event
type QueueUpdateEvent struct {
	QueueID string
	Event   string
	Data    map[string]any
}

// Router classifies events by name and republishes them. Every event goes to
// Raw first, then to at most one typed topic.
type Router struct {
	Raw           *Topic[protocol.Event]
	PlayerUpdates *Topic[PlayerUpdateEvent]
	QueueUpdates  *Topic[QueueUpdateEvent]
	BuiltinPlayer *Topic[BuiltinPlayerEvent]
	MediaItems    *Topic[MediaItemEvent]
}

// NewRouter creates a router with empty topics
func NewRouter() *Router {
	return &Router{
		Raw:           NewTopic[protocol.Event]("raw"),
		PlayerUpdates: NewTopic[PlayerUpdateEvent]("player_updates"),
		QueueUpdates:  NewTopic[QueueUpdateEvent]("queue_updates"),
		BuiltinPlayer: NewTopic[BuiltinPlayerEvent]("builtin_player"),
		MediaItems:    NewTopic[MediaItemEvent]("media_items"),
	}
}

// Route publishes evt on the raw topic and on its typed topic, if any.
// Malformed payloads for a known name only reach the raw topic.
//
// Route runs on the connection's receive goroutine, so command results wait
// while it publishes. Subscribers must drain promptly: each full subscriber
// delays delivery by up to DropTimeout.
func (r *Router) Route(evt protocol.Event) {
	r.Raw.Publish(evt)

	switch {
	case evt.Event == EventPlayerUpdated:
		data, ok := objectData(evt)
		if !ok {
			log.Printf("Dropping malformed %s event for %q", evt.Event, evt.ObjectID)
			return
		}
		r.PlayerUpdates.Publish(PlayerUpdateEvent{PlayerID: evt.ObjectID, Data: data})

	case evt.Event == EventQueueUpdated || evt.Event == EventQueueItemsUpdated:
		data, ok := objectData(evt)
		if !ok {
			log.Printf("Dropping malformed %s event for %q", evt.Event, evt.ObjectID)
			return
		}
		r.QueueUpdates.Publish(QueueUpdateEvent{QueueID: evt.ObjectID, Event: evt.Event, Data: data})

	case strings.EqualFold(evt.Event, EventBuiltinPlayer):
		bp, err := DecodeBuiltinPlayerEvent(evt.ObjectID, evt.Data)
		if err != nil {
			log.Printf("Dropping malformed builtin player event: %v", err)
			return
		}
		r.BuiltinPlayer.Publish(bp)

	case strings.HasPrefix(evt.Event, "media_item_"):
		item, ok := decodeMediaItemEvent(evt)
		if !ok {
			// Unrecognized media_item_* names stay raw-only
			return
		}
		r.MediaItems.Publish(item)
	}
}

// OnPlayerUpdate calls fn for every player update until the returned func is called
func (r *Router) OnPlayerUpdate(fn func(PlayerUpdateEvent)) func() {
	return listen(r.PlayerUpdates, fn)
}

// OnQueueUpdate calls fn for every queue update until the returned func is called
func (r *Router) OnQueueUpdate(fn func(QueueUpdateEvent)) func() {
	return listen(r.QueueUpdates, fn)
}

// OnBuiltinPlayer calls fn for every built-in player event until the returned func is called
func (r *Router) OnBuiltinPlayer(fn func(BuiltinPlayerEvent)) func() {
	return listen(r.BuiltinPlayer, fn)
}

// OnMediaItem calls fn for every media item event until the returned func is called
func (r *Router) OnMediaItem(fn func(MediaItemEvent)) func() {
	return listen(r.MediaItems, fn)
}

// OnRaw calls fn for every event until the returned func is called
func (r *Router) OnRaw(fn func(protocol.Event)) func() {
	return listen(r.Raw, fn)
}

const listenBuffer = 32

func listen[T any](topic *Topic[T], fn func(T)) func() {
	ch, cancel := topic.Subscribe(listenBuffer)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			case v := <-ch:
				fn(v)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			close(stop)
		})
	}
}

// objectData requires an object id and a JSON object payload
func objectData(evt protocol.Event) (map[string]any, bool) {
	if evt.ObjectID == "" || len(evt.Data) == 0 {
		return nil, false
	}
	var data map[string]any
	if err := json.Unmarshal(evt.Data, &data); err != nil || data == nil {
		return nil, false
	}
	return data, true
}
