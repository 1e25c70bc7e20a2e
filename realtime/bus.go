// Package realtime fans change notifications out to subscribed operator
// sessions. Delivery is best-effort: a subscriber that is slow or gone misses
// events and reconciles with a full query on reconnect.
package realtime

import (
	"encoding/json"
	"sync"
)

// EventType distinguishes inserts from updates.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
)

// Event is the change notification delivered to subscribers.
type Event struct {
	Type   EventType
	Table  string
	Topic  string
	Record json.RawMessage
}

// Filter scopes a subscription. Zero fields match everything; fine-grained
// per-zone filtering stays client-side.
type Filter struct {
	Table  string
	Type   EventType
	Topics []string
}

func (f Filter) matches(ev Event) bool {
	if f.Table != "" && f.Table != ev.Table {
		return false
	}
	if f.Type != "" && f.Type != ev.Type {
		return false
	}
	if len(f.Topics) > 0 {
		for _, t := range f.Topics {
			if t == ev.Topic {
				return true
			}
		}
		return false
	}
	return true
}

const subscriptionBuffer = 64

// Subscription is one operator session's event stream.
type Subscription struct {
	bus    *Bus
	filter Filter
	events chan Event
	once   sync.Once
}

// Events returns the stream. The channel is closed when the subscription is.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscription and releases its resources immediately.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
		close(s.events)
	})
}

// Bus is the in-process fan-out. Subscribe and Close are safe under
// concurrent publishing.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new session stream.
func (b *Bus) Subscribe(filter Filter) *Subscription {
	sub := &Subscription{
		bus:    b,
		filter: filter,
		events: make(chan Event, subscriptionBuffer),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish delivers the event to every matching subscriber without blocking.
// A subscriber whose buffer is full loses the event.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if !sub.filter.matches(ev) {
			continue
		}
		select {
		case sub.events <- ev:
		default:
		}
	}
}

// Subscribers reports the current session count.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}
