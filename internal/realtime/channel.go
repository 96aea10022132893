// Package realtime is the event channel shared with the platform's socket
// server: named events out, named events in.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
)

// Handler receives the raw data of one inbound event.
type Handler func(data json.RawMessage)

// Subscription is released with Unsubscribe. Calling it more than once is a no-op.
type Subscription interface {
	Unsubscribe()
}

// Channel emits events and fans inbound events out to subscribers.
type Channel interface {
	Emit(ctx context.Context, event string, payload interface{}) error
	Subscribe(event string, h Handler) Subscription
}

// Envelope is the wire frame of every event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// registry keeps handlers per event name.
type registry struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string]map[uint64]Handler)}
}

func (r *registry) add(event string, h Handler) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	if r.handlers[event] == nil {
		r.handlers[event] = make(map[uint64]Handler)
	}
	r.handlers[event][id] = h
	return &subscription{release: func() { r.remove(event, id) }}
}

func (r *registry) remove(event string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.handlers[event], id)
	if len(r.handlers[event]) == 0 {
		delete(r.handlers, event)
	}
}

func (r *registry) dispatch(event string, data json.RawMessage) int {
	r.mu.RLock()
	hs := make([]Handler, 0, len(r.handlers[event]))
	for _, h := range r.handlers[event] {
		hs = append(hs, h)
	}
	r.mu.RUnlock()

	for _, h := range hs {
		h(data)
	}
	return len(hs)
}

// count reports the live handlers for event.
func (r *registry) count(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event])
}

type subscription struct {
	once    sync.Once
	release func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.release)
}
