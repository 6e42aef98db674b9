package resourcecache

import (
	"sync"
	"sync/atomic"
)

// gate holds commands until the script-side counterpart exists.
//
// ready only ever goes from false to true. Enqueueing and draining share mu,
// so a command is either captured by a drain or sees ready and bypasses the
// queue; it is never both or neither. Batches are dispatched outside mu and
// ready is set only once a swap finds the queue empty, so commands issued
// after readiness never overtake drained ones.
type gate struct {
	ready atomic.Bool

	mu          sync.Mutex
	opening     bool
	pending     []PendingCommand
	counterpart Value // written once before ready is set
}

// submit dispatches cmd directly when the gate is open and queues it
// otherwise.
func (g *gate) submit(cmd PendingCommand, dispatch func([]PendingCommand)) {
	if g.ready.Load() {
		dispatch([]PendingCommand{cmd})
		return
	}

	g.mu.Lock()
	if g.ready.Load() {
		g.mu.Unlock()
		dispatch([]PendingCommand{cmd})
		return
	}
	g.pending = append(g.pending, cmd)
	g.mu.Unlock()
}

// open records the counterpart, drains the queue in insertion order and
// marks the gate ready. It returns false if the gate is already open or
// opening.
func (g *gate) open(counterpart Value, dispatch func([]PendingCommand)) bool {
	g.mu.Lock()
	if g.ready.Load() || g.opening {
		g.mu.Unlock()
		return false
	}
	g.opening = true
	g.counterpart = counterpart

	for {
		batch := g.pending
		g.pending = nil
		if len(batch) == 0 {
			g.ready.Store(true)
			g.opening = false
			g.mu.Unlock()
			return true
		}
		g.mu.Unlock()
		dispatch(batch)
		g.mu.Lock()
	}
}

// object returns the counterpart once the gate is open.
func (g *gate) object() Value {
	if !g.ready.Load() {
		return nil
	}
	return g.counterpart
}

func (g *gate) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// current returns the counterpart without checking readiness. Only the
// runtime goroutine, which is the only writer, may call it.
func (g *gate) current() Value {
	return g.counterpart
}
