package runtime

import (
	"slices"
	"sync"
	"ws-chat/contract"
	"ws-chat/domain"
)

// Registry is the process-wide directory of live connections per identity.
// An identity without connections is absent from the map.
type Registry struct {
	mu          sync.RWMutex
	connections map[domain.Identity][]contract.Connection // insertion ordered
	owners      map[contract.Connection]domain.Identity
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[domain.Identity][]contract.Connection),
		owners:      make(map[contract.Connection]domain.Identity),
	}
}

// Add registers conn under identity. A connection already known under another
// identity is moved, so it never appears under two identities.
func (r *Registry) Add(identity domain.Identity, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.owners[conn]; ok {
		if previous == identity {
			return
		}
		r.removeLocked(previous, conn)
	}
	r.connections[identity] = append(r.connections[identity], conn)
	r.owners[conn] = identity
}

// Remove drops a single connection instance. Unknown connections are ignored.
func (r *Registry) Remove(identity domain.Identity, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(identity, conn)
}

func (r *Registry) removeLocked(identity domain.Identity, conn contract.Connection) {
	conns, ok := r.connections[identity]
	if !ok {
		return
	}
	idx := slices.Index(conns, conn)
	if idx < 0 {
		return
	}
	conns = slices.Delete(slices.Clone(conns), idx, idx+1)
	if len(conns) == 0 {
		delete(r.connections, identity)
	} else {
		r.connections[identity] = conns
	}
	delete(r.owners, conn)
}

// ConnectionsFor returns a snapshot of the live connections of identity, never nil.
func (r *Registry) ConnectionsFor(identity domain.Identity) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.connections[identity]
	snapshot := make([]contract.Connection, len(conns))
	copy(snapshot, conns)
	return snapshot
}

// All returns a snapshot of every registered connection.
func (r *Registry) All() []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]contract.Connection, 0, len(r.owners))
	for _, conns := range r.connections {
		all = append(all, conns...)
	}
	return all
}

// Len is the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}
