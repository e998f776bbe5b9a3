package mqtt

import (
	"sync"

	"github.com/go-mqtt/session/internal/wire"
)

// offlineQueueEntry holds a packet accepted before the first successful
// CONNACK or while disconnected.
type offlineQueueEntry struct {
	packet   wire.Packet
	callback AckCallback
}

type offlineQueue struct {
	mu      sync.Mutex
	entries []offlineQueueEntry
}

func newOfflineQueue() *offlineQueue {
	return &offlineQueue{}
}

func (q *offlineQueue) Push(p wire.Packet, cb AckCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, offlineQueueEntry{packet: p, callback: cb})
}

// Drain removes and returns every queued entry in FIFO order.
func (q *offlineQueue) Drain() []offlineQueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.entries
	q.entries = nil
	return drained
}

func (q *offlineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
