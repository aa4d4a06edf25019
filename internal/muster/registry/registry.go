// Package registry tracks the live session instances of one process.
//
// The registry is the routing table between transport events and sessions:
// reactions and control actions carry a session id, and the registry maps it
// to the owning instance. Terminal sessions unregister themselves through the
// session's terminal callback.
package registry

import (
	"sync"

	apperrors "github.com/louisbranch/musterpoint/internal/errors"
	"github.com/louisbranch/musterpoint/internal/muster/session"
)

// ErrSessionExists indicates a session with the same id is already registered.
var ErrSessionExists = apperrors.New(apperrors.CodeSessionExists, "session already registered")

// Registry is a concurrency-safe map of live sessions keyed by session id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Instance
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{sessions: make(map[string]*session.Instance)}
}

// Register adds a live session. It fails when the id is already taken.
func (r *Registry) Register(inst *session.Instance) error {
	id := inst.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		return ErrSessionExists
	}
	r.sessions[id] = inst
	return nil
}

// Unregister removes a session by id. Removing an unknown id is a no-op.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Get returns the live session for an id.
func (r *Registry) Get(sessionID string) (*session.Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.sessions[sessionID]
	return inst, ok
}

// All returns the currently registered sessions in unspecified order.
func (r *Registry) All() []*session.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*session.Instance, 0, len(r.sessions))
	for _, inst := range r.sessions {
		out = append(out, inst)
	}
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
