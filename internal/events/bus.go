// Package events carries reload requests from any collaborator (connection
// machine, file watcher, serve loop) to the quota orchestrator without either
// side holding a reference to the other.
package events

import "sync"

// Request is a reload request. Reason is informational and only logged.
type Request struct {
	Reason string
}

// Subscription receives reload requests. Requests published while a previous
// one is still unread are coalesced: C holds at most one pending request.
type Subscription struct {
	C <-chan Request

	ch   chan Request
	bus  *Bus
	once sync.Once
}

// Close removes the subscription from its bus and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

// Bus fans reload requests out to subscribers.
type Bus struct {
	mu          sync.Mutex
	subscribers []*Subscription
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscription {
	ch := make(chan Request, 1)
	sub := &Subscription{C: ch, ch: ch, bus: b}

	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()

	return sub
}

// RequestReload publishes a reload request. It never blocks: a subscriber
// that already has a pending request keeps that one.
func (b *Bus) RequestReload(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- Request{Reason: reason}:
		default:
		}
	}
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub == s {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Len returns the number of live subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
