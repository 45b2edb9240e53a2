package events

import (
	"log/slog"
	"sync"
)

// Observer receives events published on a Bus.
type Observer interface {
	Update(source any, e Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(source any, e Event)

func (f ObserverFunc) Update(source any, e Event) { f(source, e) }

type subscription struct {
	id  uint64
	obs Observer
}

// Bus delivers events synchronously to its observers.
// Observers run on the publisher's goroutine in registration order, so a
// slow observer slows the import that publishes to it.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	logger *slog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers obs and returns a function removing it again.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(obs Observer) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, obs: obs})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered observers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish hands e to every observer registered at the time of the call.
// A nil Bus discards events.
func (b *Bus) Publish(source any, e Event) {
	if b == nil {
		return
	}

	// Snapshot so observers may (un)subscribe while being notified.
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.obs.Update(source, e)
	}
}
