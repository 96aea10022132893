package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
)

// Bus is an in-process Channel. Emitted events are recorded and delivered to
// local subscribers of the same name, which lets the console run without an
// upstream socket.
type Bus struct {
	reg *registry

	mu      sync.Mutex
	emitted []Envelope
}

func NewBus() *Bus {
	return &Bus{reg: newRegistry()}
}

func (b *Bus) Emit(ctx context.Context, event string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", event)
	}

	b.mu.Lock()
	b.emitted = append(b.emitted, Envelope{Event: event, Data: data})
	b.mu.Unlock()

	b.reg.dispatch(event, data)
	return nil
}

func (b *Bus) Subscribe(event string, h Handler) Subscription {
	return b.reg.add(event, h)
}

// Publish injects an inbound event as if the server had pushed it.
func (b *Bus) Publish(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", event)
	}
	b.reg.dispatch(event, data)
	return nil
}

// Emitted returns a copy of every event emitted so far.
func (b *Bus) Emitted() []Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Envelope(nil), b.emitted...)
}

// Subscribers reports how many handlers listen on event.
func (b *Bus) Subscribers(event string) int {
	return b.reg.count(event)
}
