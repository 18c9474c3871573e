package ws

import "sync"

// Registry is the set of connected peers. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	peers  map[*Peer]struct{}
	closed bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[*Peer]struct{})}
}

// Add registers p. It reports false once the registry is closed.
func (r *Registry) Add(p *Peer) bool {
	return r.Admit(p, nil)
}

// Admit registers p unless the registry is closed. If admit is non-nil it is
// called with the count including p before p becomes visible to Each, so
// frames queued by admit precede any broadcast. admit must not block or call
// back into the registry.
func (r *Registry) Admit(p *Peer, admit func(total int)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if admit != nil {
		admit(len(r.peers) + 1)
	}
	r.peers[p] = struct{}{}
	return true
}

// Close empties the registry, refuses further Admit calls and returns the
// peers that were registered.
func (r *Registry) Close() []*Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	peers := make([]*Peer, 0, len(r.peers))
	for p := range r.peers {
		peers = append(peers, p)
	}
	clear(r.peers)
	return peers
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Remove unregisters p and reports whether this call removed it.
func (r *Registry) Remove(p *Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[p]; !ok {
		return false
	}
	delete(r.peers, p)
	return true
}

// Each calls fn for every peer registered when Each was called. fn runs
// without the lock held, so it may Add or Remove peers.
func (r *Registry) Each(fn func(p *Peer)) {
	r.mu.RLock()
	snapshot := make([]*Peer, 0, len(r.peers))
	for p := range r.peers {
		snapshot = append(snapshot, p)
	}
	r.mu.RUnlock()

	for _, p := range snapshot {
		fn(p)
	}
}

// Len returns the number of registered peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
