package confirm

import "sync"

// Guard is the session-scoped set of participants with an in-flight
// confirmation flow. A participant can hold at most one slot; every flow exit
// path must release it.
type Guard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{busy: make(map[string]struct{})}
}

// TryAcquire marks the participant as confirming. It returns false when the
// participant already holds a slot.
func (g *Guard) TryAcquire(participantID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.busy[participantID]; held {
		return false
	}
	g.busy[participantID] = struct{}{}
	return true
}

// Release frees the participant's slot. Releasing a free slot is a no-op.
func (g *Guard) Release(participantID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, participantID)
}

// Busy reports whether the participant currently holds a slot.
func (g *Guard) Busy(participantID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.busy[participantID]
	return held
}
