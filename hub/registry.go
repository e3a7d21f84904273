package hub

import (
	"sync"

	"github.com/hxri-nxrxyxn/eyetap/domain"
)

// Registry is the set of live connections keyed by ID. Readers only ever see
// copies, so a broadcast in flight is not affected by concurrent churn.
type Registry struct {
	conns map[string]domain.Connection
	order []string
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]domain.Connection)}
}

func (r *Registry) Register(conn domain.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn.ID()]; exists {
		return false
	}
	r.conns[conn.ID()] = conn
	r.order = append(r.order, conn.ID())
	return true
}

func (r *Registry) Deregister(conn domain.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.conns[conn.ID()]
	if !exists || current != conn {
		return false
	}
	delete(r.conns, conn.ID())
	for i, id := range r.order {
		if id == conn.ID() {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// SnapshotExcluding returns the registered connections other than conn in
// registration order.
func (r *Registry) SnapshotExcluding(conn domain.Connection) []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Connection, 0, len(r.order))
	for _, id := range r.order {
		if conn != nil && id == conn.ID() {
			continue
		}
		out = append(out, r.conns[id])
	}
	return out
}

func (r *Registry) Snapshot() []domain.Connection {
	return r.SnapshotExcluding(nil)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
