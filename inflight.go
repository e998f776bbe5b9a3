package mqtt

import (
	"sync"

	"github.com/go-mqtt/session/internal/wire"
)

// AckCallback is invoked when an in-flight operation's terminal ack
// arrives, or with a non-nil err if it fails/is abandoned.
type AckCallback func(err error, p wire.Packet)

// inFlightEntry is keyed by messageId. Volatile entries
// (SUBSCRIBE/UNSUBSCRIBE acks) are dropped with ErrConnectionClosed on
// transport close; non-volatile entries (outbound QoS>=1 PUBLISH) survive
// for replay.
type inFlightEntry struct {
	volatile bool
	callback AckCallback
}

// inFlightTable is owned exclusively by SessionMachine; only its
// goroutine mutates it. The facade reaches it only through commands run
// on that goroutine; the mutex guards any access from another goroutine.
type inFlightTable struct {
	mu      sync.Mutex
	entries map[uint16]inFlightEntry
}

func newInFlightTable() *inFlightTable {
	return &inFlightTable{entries: make(map[uint16]inFlightEntry)}
}

func (t *inFlightTable) Put(id uint16, volatile bool, cb AckCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = inFlightEntry{volatile: volatile, callback: cb}
}

func (t *inFlightTable) Get(id uint16) (inFlightEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return e, ok
}

func (t *inFlightTable) Delete(id uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

func (t *inFlightTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// FlushVolatile invokes err on every volatile entry's callback and
// removes it unconditionally, regardless of whether a callback is set —
// a callback-gated deletion would otherwise leak the entry.
func (t *inFlightTable) FlushVolatile(err error) {
	t.mu.Lock()
	var toFire []AckCallback
	for id, e := range t.entries {
		if e.volatile {
			if e.callback != nil {
				toFire = append(toFire, e.callback)
			}
			delete(t.entries, id)
		}
	}
	t.mu.Unlock()
	for _, cb := range toFire {
		cb(err, wire.Packet{})
	}
}

// FlushAll invokes err on every entry's callback and clears the table,
// used for forced cleanup.
func (t *inFlightTable) FlushAll(err error) {
	t.mu.Lock()
	var toFire []AckCallback
	for id, e := range t.entries {
		if e.callback != nil {
			toFire = append(toFire, e.callback)
		}
		delete(t.entries, id)
	}
	t.mu.Unlock()
	for _, cb := range toFire {
		cb(err, wire.Packet{})
	}
}
