// Package notification provides best-effort fan-out of playback events
// to live subscribers.
package notification

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// EventType identifies a playback event.
type EventType string

const (
	EventTrackChanged  EventType = "track_changed"
	EventQueueChanged  EventType = "queue_changed"
	EventStateChanged  EventType = "state_changed"
	EventVolumeChanged EventType = "volume_changed"
)

// Event is a broadcast payload. Payload values must be safe to share
// across goroutines (plain values, never controller-owned state).
type Event struct {
	Type    EventType      `json:"event"`
	Payload map[string]any `json:"data"`
}

// Subscriber is one connected client. Events arrive on C; a subscriber
// that stops draining loses events rather than blocking the broadcaster.
type Subscriber struct {
	ID string
	C  chan Event
}

// Broadcaster distributes events to all subscribers through bounded
// per-subscriber mailboxes. Delivery is best-effort: a full mailbox
// drops the event for that subscriber only.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	mailboxSize int
	dropped     atomic.Uint64
}

// NewBroadcaster creates a broadcaster with the given per-subscriber
// mailbox capacity (minimum 1).
func NewBroadcaster(mailboxSize int) *Broadcaster {
	if mailboxSize < 1 {
		mailboxSize = 16
	}
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
		mailboxSize: mailboxSize,
	}
}

// Subscribe registers a new subscriber.
func (b *Broadcaster) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID: uuid.New().String(),
		C:  make(chan Event, b.mailboxSize),
	}

	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	b.mu.Unlock()

	zlog.Debug().Msgf("notification: subscriber connected: id=%s total=%d", sub.ID, b.SubscriberCount())
	return sub
}

// Unsubscribe removes a subscriber. Its channel is not closed here;
// the consumer owns the read side and simply stops selecting on it.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	delete(b.subscribers, id)
	b.mu.Unlock()
	zlog.Debug().Msgf("notification: subscriber disconnected: id=%s", id)
}

// Publish delivers an event to every subscriber without blocking.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.C <- ev:
		default:
			// Mailbox full: drop for this subscriber only.
			b.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns the total number of events dropped on full mailboxes.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close disconnects all subscribers.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.subscribers = make(map[string]*Subscriber)
	b.mu.Unlock()
}
