package events

import (
	"sync"
)

// Bus is a channel-based pub-sub event bus carrying run and step lifecycle
// events from the runner to its observers (console reporter, history
// recorder). Publishing never blocks the runner: a slow observer drops
// events rather than stalling an install.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]chan Event // topic -> subscriber channels
	allSubs []chan Event            // channels subscribed to all topics
	closed  bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string][]chan Event),
	}
}

// Subscribe creates a subscription to a specific topic.
// Returns a read-only channel that receives events published to that topic.
// bufSize determines the channel buffer size (defaults to 64 if <= 0).
func (b *Bus) Subscribe(topic string, bufSize int) <-chan Event {
	ch := b.newChannel(bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.subs[topic] = append(b.subs[topic], ch)
	return ch
}

// SubscribeAll creates a subscription to ALL topics.
// Returns a single read-only channel that receives events from every topic.
// bufSize determines the channel buffer size (defaults to 64 if <= 0).
func (b *Bus) SubscribeAll(bufSize int) <-chan Event {
	ch := b.newChannel(bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.allSubs = append(b.allSubs, ch)
	return ch
}

func (b *Bus) newChannel(bufSize int) chan Event {
	if bufSize <= 0 {
		bufSize = 64
	}
	return make(chan Event, bufSize)
}

// Publish sends an event to all subscribers of the given topic and to all
// SubscribeAll channels. Non-blocking: if a subscriber's channel is full,
// the event is dropped for that subscriber.
func (b *Bus) Publish(topic string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs[topic] {
		select {
		case ch <- event:
		default:
			// Channel full, drop event
		}
	}

	for _, ch := range b.allSubs {
		select {
		case ch <- event:
		default:
			// Channel full, drop event
		}
	}
}

// Close closes the event bus and all subscriber channels.
// Safe to call multiple times (idempotent).
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, channels := range b.subs {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range b.allSubs {
		close(ch)
	}
}
