package saga

import "sync"

// Guard allows one run at a time per modal. There is no idempotency key
// upstream, so a second submit would assemble a duplicate agent.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{inflight: make(map[string]struct{})}
}

// Acquire reserves key until release is called. An empty key is not guarded.
func (g *Guard) Acquire(key string) (release func(), err error) {
	if key == "" {
		return func() {}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[key]; busy {
		return nil, ErrRunInFlight
	}
	g.inflight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inflight, key)
			g.mu.Unlock()
		})
	}, nil
}
