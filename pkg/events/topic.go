// ABOUTME: Generic in-process publish/subscribe topic
// ABOUTME: Fans values out to every current subscriber through buffered channels
package events

import (
	"log"
	"slices"
	"sync"
	"time"
)

// DropTimeout is how long Publish waits on a full subscriber before dropping
const DropTimeout = 100 * time.Millisecond

type subscriber[T any] struct {
	id   int
	ch   chan T
	done chan struct{}
}

// Topic delivers each published value to every subscriber registered at the
// time of publishing. Late subscribers see nothing from before they joined.
type Topic[T any] struct {
	name string

	mu     sync.Mutex
	subs   []*subscriber[T]
	nextID int
}

// NewTopic creates an empty topic
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name}
}

// Name returns the topic name used in logs
func (t *Topic[T]) Name() string { return t.name }

// Subscribe registers a subscriber with the given channel buffer. The cancel
// func unregisters it; the returned channel is never closed.
func (t *Topic[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer < 0 {
		buffer = 0
	}
	t.mu.Lock()
	sub := &subscriber[T]{
		id:   t.nextID,
		ch:   make(chan T, buffer),
		done: make(chan struct{}),
	}
	t.nextID++
	t.subs = append(t.subs, sub)
	t.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			t.mu.Lock()
			t.subs = slices.DeleteFunc(t.subs, func(s *subscriber[T]) bool { return s.id == sub.id })
			t.mu.Unlock()
			close(sub.done)
		})
	}
}

// Publish delivers v to a snapshot of the current subscribers, in
// subscription order per subscriber. A subscriber that stays full for
// DropTimeout misses the value.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	snapshot := slices.Clone(t.subs)
	t.mu.Unlock()

	for _, sub := range snapshot {
		select {
		case sub.ch <- v:
			continue
		case <-sub.done:
			continue
		default:
		}

		timer := time.NewTimer(DropTimeout)
		select {
		case sub.ch <- v:
		case <-sub.done:
		case <-timer.C:
			log.Printf("%s subscriber full, dropping event", t.name)
		}
		timer.Stop()
	}
}

// Len returns the number of current subscribers
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}
