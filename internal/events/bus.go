package events

import (
	"context"
	"sync"
)

// Bus fans out Events to subscribers over bounded channels. Unlike a
// general-purpose pub/sub bus that drops on a full channel, Publish here
// blocks until every subscriber can accept the event or ctx is cancelled —
// the kernel contract requires no event loss.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber with the given channel buffer size
// and returns its event channel plus an unsubscribe function. Closing via
// unsubscribe is safe to call more than once.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan Event, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
			b.mu.Unlock()
		})
	}
	return ch, unsubscribe
}

// Publish delivers e to every current subscriber. It blocks per-subscriber
// until that subscriber's channel has room or ctx is cancelled — a stalled
// subscriber stalls the whole publish, by design: dropping would violate
// the no-event-loss contract, and ctx gives the kernel an escape hatch when
// a session is stopping.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	targets := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- e:
		case <-ctx.Done():
			return
		}
	}
}

// SubscriberCount reports how many subscribers are currently registered.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// CloseAll closes every subscriber channel, unblocking any readers. Used on
// session destroy.
func (b *Bus) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
