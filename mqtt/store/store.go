// Package store implements the durable messageId -> packet mapping the
// session replays on reconnect, plus a restartable ordered stream over a
// store's contents. Grounded on the eclipse paho.golang storer interface
// referenced in the pack (Ashtonian-paho.golang__store.go: Put/Get/Delete
// /List/Reset) and extended with put-order streaming, since that
// interface alone has no iteration primitive.
package store

import (
	"errors"
	"sync"

	"github.com/go-mqtt/session/internal/wire"
)

// ErrNotFound is returned by Get when no packet is stored under the
// given id.
var ErrNotFound = errors.New("store: packet not found")

// Store is the durable mapping a Session uses for outgoing QoS>=1
// publishes awaiting acknowledgment and for incoming QoS2 publishes
// awaiting PUBREL. Both directions share this interface.
type Store interface {
	// Put overwrites any prior entry with the same PacketIdentifier.
	Put(p wire.Packet) error
	Get(id uint16) (wire.Packet, error)
	Del(id uint16) error
	// CreateStream returns a restartable iterator over stored packets in
	// put order. The caller must Destroy it when done.
	CreateStream() (Sequence, error)
	Close() error
}

// Sequence is a restartable ordered iterator over a Store's contents,
// modeled as next/restart/destroy rather than a push-style stream since
// a replay may need to reopen the same logical stream mid-pass if new
// packets arrived.
type Sequence interface {
	// Next returns the next packet in put order, or ok=false at end of
	// stream (not an error).
	Next() (p wire.Packet, ok bool, err error)
	// Restart rewinds the stream to its first element, picking up any
	// packets put since the stream was created.
	Restart() error
	// Destroy releases resources associated with the stream. Safe to
	// call more than once.
	Destroy()
}

// memSequence is the Sequence implementation shared by backends that can
// cheaply snapshot their key order (memstore, boltstore, redisstore).
type memSequence struct {
	mu      sync.Mutex
	snap    func() ([]uint16, error)
	get     func(uint16) (wire.Packet, error)
	ids     []uint16
	pos     int
	destroyed bool
}

func newMemSequence(snap func() ([]uint16, error), get func(uint16) (wire.Packet, error)) (*memSequence, error) {
	s := &memSequence{snap: snap, get: get}
	if err := s.Restart(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *memSequence) Next() (wire.Packet, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.destroyed && s.pos < len(s.ids) {
		id := s.ids[s.pos]
		s.pos++
		p, err := s.get(id)
		if errors.Is(err, ErrNotFound) {
			// Deleted since the snapshot was taken; skip it rather than error,
			// preserving at-most-once delivery of currently-live packets.
			continue
		}
		if err != nil {
			return wire.Packet{}, false, err
		}
		return p, true, nil
	}
	return wire.Packet{}, false, nil
}

func (s *memSequence) Restart() error {
	ids, err := s.snap()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ids = ids
	s.pos = 0
	s.mu.Unlock()
	return nil
}

func (s *memSequence) Destroy() {
	s.mu.Lock()
	s.destroyed = true
	s.mu.Unlock()
}
