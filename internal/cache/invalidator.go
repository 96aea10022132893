// Package cache signals browser-side query caches that a collection changed.
package cache

import (
	"sync"
)

// Key names a cached collection on the browser side.
type Key string

const (
	KeyAgents        Key = "agents-ai"
	KeyFlows         Key = "flows"
	KeyConnectionsWA Key = "connections-wa"
	KeyConnectionsIg Key = "connections-ig"
	KeyChatbots      Key = "chatbots"
)

// Invalidator is the port mutations report through.
type Invalidator interface {
	Invalidate(keys ...Key)
}

// Broadcaster pushes an event to every connected browser.
type Broadcaster interface {
	BroadcastEvent(eventType string, data interface{})
}

// Notifier keeps a version per key and announces every bump.
type Notifier struct {
	mu       sync.RWMutex
	versions map[Key]uint64
	out      Broadcaster
}

func NewNotifier(out Broadcaster) *Notifier {
	return &Notifier{versions: make(map[Key]uint64), out: out}
}

type invalidateEvent struct {
	Keys     []Key          `json:"keys"`
	Versions map[Key]uint64 `json:"versions"`
}

func (n *Notifier) Invalidate(keys ...Key) {
	if len(keys) == 0 {
		return
	}

	n.mu.Lock()
	ev := invalidateEvent{Keys: keys, Versions: make(map[Key]uint64, len(keys))}
	for _, k := range keys {
		n.versions[k]++
		ev.Versions[k] = n.versions[k]
	}
	n.mu.Unlock()

	if n.out != nil {
		n.out.BroadcastEvent("invalidate", ev)
	}
}

// Versions returns a snapshot of every known key's version.
func (n *Notifier) Versions() map[Key]uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make(map[Key]uint64, len(n.versions))
	for k, v := range n.versions {
		out[k] = v
	}
	return out
}
