package service

import (
	"sync"

	"videoflix/internal/domain"
)

// EventPublisher is the narrow side of the bus that services publish into.
type EventPublisher interface {
	Publish(event domain.Event)
}

// EventBus fans domain events out to in-process subscribers. The catalog
// publishes VideoCreated/VideoDeleted; the pipeline coordinator subscribes
// to creations and publishes state transitions.
type EventBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan domain.Event
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]chan domain.Event)}
}

// Subscribe returns a channel of all future events and a cancel function
// that must be called to release the subscription.
func (eb *EventBus) Subscribe() (<-chan domain.Event, func()) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := eb.nextID
	eb.nextID++
	ch := make(chan domain.Event, 16)
	eb.subs[id] = ch

	cancel := func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		if sub, ok := eb.subs[id]; ok {
			delete(eb.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (eb *EventBus) Publish(event domain.Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subs {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is slow
		}
	}
}
