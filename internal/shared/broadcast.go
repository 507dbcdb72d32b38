package shared

import "sync"

// Broadcaster fans values out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the value.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
	size   int
}

// NewBroadcaster creates a Broadcaster whose subscriber channels buffer size values.
func NewBroadcaster[T any](size int) *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[int]chan T), size: size}
}

// Subscribe returns a channel of published values and a function that closes it.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, b.size)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

// Publish sends v to every subscriber with room for it.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Len returns the number of active subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
