package state

import (
	"sync"
	"sync/atomic"
)

// State captures the lifecycle of a node: Running or Shutdown.
type State uint32

const (
	// Running is the state in which a node accepts peers, answers chain
	// requests and gossips new chains.
	Running State = iota

	// Shutdown is the state in which a node has closed its transport and its
	// peer connections.
	Shutdown
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Manager wraps a State with get and set methods. It also tracks the
// goroutines launched by the node, so that they can be counted and awaited.
type Manager struct {
	state   State
	wg      sync.WaitGroup
	wgCount int32
}

// GetState returns the current state.
func (b *Manager) GetState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

// SetState sets the state.
func (b *Manager) SetState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// GoFunc launches a goroutine for a given function and increments the
// waitgroup. There is no limit: every peer connection gets its own reader.
func (b *Manager) GoFunc(f func()) {
	b.wg.Add(1)
	atomic.AddInt32(&b.wgCount, 1)
	go func() {
		defer b.wg.Done()
		defer atomic.AddInt32(&b.wgCount, -1)
		f()
	}()
}

// Routines returns the number of goroutines currently running.
func (b *Manager) Routines() int {
	return int(atomic.LoadInt32(&b.wgCount))
}

// WaitRoutines waits for all the goroutines in the waitgroup.
func (b *Manager) WaitRoutines() {
	b.wg.Wait()
}
