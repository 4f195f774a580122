package events

import (
	"log/slog"
	"sync"
)

// subscriberBuffer is the channel depth given to each subscriber.
// Progress events are advisory; a subscriber that falls further behind
// than this loses events rather than blocking producers.
const subscriberBuffer = 64

// Broker fans JobProgress events out to subscribers. Publishing never
// blocks: events for slow subscribers are dropped.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int]chan JobProgress
	nextID      int
	closed      bool
	logger      *slog.Logger
}

// NewBroker creates a new progress event broker.
func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		subscribers: make(map[int]chan JobProgress),
		logger:      logger.With("component", "progress_broker"),
	}
}

// Subscribe registers a new subscriber and returns its channel together
// with a cancel function. The channel is closed when cancel is called
// or the broker shuts down.
func (b *Broker) Subscribe() (<-chan JobProgress, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan JobProgress)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan JobProgress, subscriberBuffer)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (b *Broker) Publish(event JobProgress) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropping progress event for slow subscriber",
				"item_id", event.ItemID,
				"stage", event.Stage)
		}
	}
}

// Close shuts the broker down and closes all subscriber channels.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
