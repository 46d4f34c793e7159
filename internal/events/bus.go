package events

import (
	"log/slog"
	"sync"

	"github.com/terra-clan/challenge-progress/internal/models"
)

// DefaultBuffer is the per-subscriber channel size used when none is given
const DefaultBuffer = 16

// Bus fans completion events out to every subscriber. Publish never blocks:
// a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan models.CompletionEvent
	nextID uint64
	closed bool
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{
		subs: make(map[uint64]chan models.CompletionEvent),
	}
}

// Subscribe registers a listener. The returned cancel func unsubscribes and
// closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe(buffer int) (<-chan models.CompletionEvent, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	ch := make(chan models.CompletionEvent, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber with buffer space and returns how
// many received it
func (b *Bus) Publish(ev models.CompletionEvent) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}

	delivered := 0
	for id, ch := range b.subs {
		select {
		case ch <- ev:
			delivered++
		default:
			slog.Warn("dropping completion event for slow subscriber",
				"subscriber", id,
				"challenge_id", ev.ChallengeID,
			)
		}
	}
	return delivered
}

// Subscribers returns the number of active subscribers
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are dropped and later
// subscriptions receive a closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
