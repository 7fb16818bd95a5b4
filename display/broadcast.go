package display

import (
	"sync"

	"github.com/google/uuid"
)

// broadcaster fans values out to subscribers.  Each subscriber holds at most
// one undelivered value, a newer value replaces an older one the subscriber
// has not yet read so slow readers never hold up the sender.
type broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[string]chan T
	// drops counts values replaced before a subscriber read them
	drops uint64
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{
		subs: make(map[string]chan T),
	}
}

// Subscribe registers a new subscriber returning its id and receive channel
func (b *broadcaster[T]) Subscribe() (string, <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan T, 1)
	b.subs[id] = ch

	return id, ch
}

// Unsubscribe removes the subscriber and closes its channel
func (b *broadcaster[T]) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Send delivers v to every subscriber without blocking
func (b *broadcaster[T]) Send(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- v:
			continue
		default:
		}

		// drop the unread value and replace it
		select {
		case <-ch:
			b.drops++
		default:
		}

		select {
		case ch <- v:
		default:
		}
	}
}

// Len returns the number of subscribers
func (b *broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Drops returns the number of values replaced before being read
func (b *broadcaster[T]) Drops() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drops
}
