package mqtt

import (
	"sync"

	"github.com/go-mqtt/session/internal/wire"
)

// storeProcessingQueueEntry defers a PUBLISH/SUBSCRIBE/UNSUBSCRIBE
// call blocked by the replay interlock. invoke returns false if it
// could not be admitted (e.g. id exhaustion); the entry then stays at
// the front of the queue for a later retry.
type storeProcessingQueueEntry struct {
	invoke      func() bool
	cbStorePut  func(error)
	callback    AckCallback
}

// storeProcessingGate is an explicit interlock: a boolean gate plus a
// FIFO of deferred operations, tested in isolation (storeproc_test.go)
// since it is the crux of replay correctness.
type storeProcessingGate struct {
	mu         sync.Mutex
	processing bool
	queue      []storeProcessingQueueEntry
}

func newStoreProcessingGate() *storeProcessingGate {
	return &storeProcessingGate{}
}

// Active reports whether replay is currently gating new operations.
func (g *storeProcessingGate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.processing
}

// SetActive sets the gate.
func (g *storeProcessingGate) SetActive(v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.processing = v
}

// QueueLen reports the number of deferred operations.
func (g *storeProcessingGate) QueueLen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// ShouldDefer reports whether a new PUBLISH/SUBSCRIBE/UNSUBSCRIBE must be
// deferred rather than attempted immediately: the gate is active, or the
// queue already holds deferred work.
func (g *storeProcessingGate) ShouldDefer() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.processing || len(g.queue) > 0
}

// Enqueue appends entry to the FIFO.
func (g *storeProcessingGate) Enqueue(entry storeProcessingQueueEntry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = append(g.queue, entry)
}

// Drain re-invokes each queued entry in order, stopping (and leaving the
// remainder queued) the first time one returns false.
func (g *storeProcessingGate) Drain() {
	for {
		g.mu.Lock()
		if len(g.queue) == 0 {
			g.mu.Unlock()
			return
		}
		entry := g.queue[0]
		g.mu.Unlock()

		if !entry.invoke() {
			return
		}
		g.mu.Lock()
		if len(g.queue) > 0 {
			g.queue = g.queue[1:]
		}
		g.mu.Unlock()
	}
}

// FlushWithError removes every queued entry and fires its callback with
// err, used when a mid-replay disconnect aborts the interlock.
func (g *storeProcessingGate) FlushWithError(err error) {
	g.mu.Lock()
	drained := g.queue
	g.queue = nil
	g.mu.Unlock()
	for _, entry := range drained {
		if entry.callback != nil {
			entry.callback(err, wire.Packet{})
		}
	}
}
