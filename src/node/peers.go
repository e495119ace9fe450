package node

import (
	"sync"

	"github.com/mosaicnetworks/gossipchain/src/net"
)

// PeerSet is the set of live connections of a node. It is safe for
// concurrent use; callers iterate over a snapshot returned by Copy.
type PeerSet struct {
	mu     sync.RWMutex
	set    map[*net.Conn]struct{}
	closed bool
}

// NewPeerSet constructs an empty PeerSet.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[*net.Conn]struct{}),
	}
}

// Add adds a connection to the set. It returns false if the connection was
// already present or if the set has been closed.
func (ps *PeerSet) Add(conn *net.Conn) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed {
		return false
	}

	_, exists := ps.set[conn]
	if !exists {
		ps.set[conn] = struct{}{}
		return true
	}

	return false
}

// Remove removes a connection from the set.
func (ps *PeerSet) Remove(conn *net.Conn) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, conn)
}

// Copy returns a snapshot of the connections in the set.
func (ps *PeerSet) Copy() []*net.Conn {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	conns := make([]*net.Conn, 0, len(ps.set))
	for conn := range ps.set {
		conns = append(conns, conn)
	}

	return conns
}

// Len returns the number of connections in the set, closed or not.
func (ps *PeerSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.set)
}

// CloseAll closes every connection, empties the set and refuses further
// additions.
func (ps *PeerSet) CloseAll() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.closed = true
	for conn := range ps.set {
		conn.Close()
		delete(ps.set, conn)
	}
}
