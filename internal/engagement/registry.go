package engagement

import (
	"sync"

	"github.com/google/uuid"
)

// Registry owns the live trackers for one client surface (one review
// connection). It exists so teardown is deterministic: closing the
// registry closes every tracker, leaving no orphaned heartbeat behind a
// player nobody is watching.
type Registry struct {
	mu       sync.Mutex
	trackers map[uuid.UUID]*Tracker
	closed   bool
}

// NewRegistry creates an empty tracker registry.
func NewRegistry() *Registry {
	return &Registry{trackers: make(map[uuid.UUID]*Tracker)}
}

// Add registers a tracker under its session id. Returns false if the
// registry is already closed (the tracker is closed immediately).
func (r *Registry) Add(t *Tracker) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		t.Close()
		return false
	}
	r.trackers[t.SessionID()] = t
	return true
}

// Get retrieves a tracker by watch session id.
func (r *Registry) Get(sessionID uuid.UUID) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trackers[sessionID]
}

// Remove closes and drops one tracker.
func (r *Registry) Remove(sessionID uuid.UUID) {
	r.mu.Lock()
	t := r.trackers[sessionID]
	delete(r.trackers, sessionID)
	r.mu.Unlock()
	if t != nil {
		t.Close()
	}
}

// CloseAll closes every tracker and marks the registry closed.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	trackers := make([]*Tracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		trackers = append(trackers, t)
	}
	r.trackers = make(map[uuid.UUID]*Tracker)
	r.closed = true
	r.mu.Unlock()

	for _, t := range trackers {
		t.Close()
	}
}
