package memory

import (
	"sync"

	"github.com/ontiyonke/quantdsl/internal/engine"
)

// Bus is an in-process notification stream. Publish fans an event out to a
// snapshot of the registered handlers, so handlers added or removed
// concurrently never corrupt an in-flight delivery.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]engine.Handler
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]engine.Handler)}
}

// Subscribe registers a handler and returns its subscription handle.
func (b *Bus) Subscribe(h engine.Handler) engine.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	return &subscription{bus: b, id: id}
}

// Publish delivers an event to every currently registered handler, on the
// caller's goroutine.
func (b *Bus) Publish(event any) {
	b.mu.RLock()
	snapshot := make([]engine.Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	for _, h := range snapshot {
		h(event)
	}
}

// HandlerCount returns the number of live subscriptions.
func (b *Bus) HandlerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

type subscription struct {
	bus  *Bus
	id   int
	once sync.Once
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		delete(s.bus.handlers, s.id)
	})
}
