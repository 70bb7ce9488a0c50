package session

import (
	"sync"
)

// Registry is a concurrent set of live sessions keyed by id. It holds
// non-owning references: registering never keeps a session alive and
// unregistering never invalidates it.
type Registry struct {
	sessions sync.Map // id -> Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds s, replacing any entry with the same id.
func (r *Registry) Register(s Session) {
	if s == nil {
		return
	}
	r.sessions.Store(s.ID(), s)
}

// Unregister removes s only if the entry for its id is s itself, so a late
// call for an old handle cannot evict a newer session with the same id.
func (r *Registry) Unregister(s Session) {
	if s == nil {
		return
	}
	r.sessions.CompareAndDelete(s.ID(), s)
}

// Snapshot returns the sessions registered at the time of the call.
func (r *Registry) Snapshot() []Session {
	out := make([]Session, 0)
	r.sessions.Range(func(_, v any) bool {
		out = append(out, v.(Session))
		return true
	})
	return out
}

// Contains reports whether a session with id is registered.
func (r *Registry) Contains(id string) bool {
	_, ok := r.sessions.Load(id)
	return ok
}

// Len counts registered sessions.
func (r *Registry) Len() int {
	n := 0
	r.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
