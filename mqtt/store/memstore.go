package store

import (
	"errors"
	"sync"

	"github.com/go-mqtt/session/internal/wire"
)

var errClosed = errors.New("store: closed")

// MemStore is an in-memory Store, the default backend used when the
// caller configures no durable store. Adapted from the flat map-backed
// state in SubscriptionsMap (subscriptions.go), generalized to
// messageId keys.
type MemStore struct {
	mu     sync.Mutex
	data   map[uint16]wire.Packet
	order  []uint16
	closed bool
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[uint16]wire.Packet)}
}

func (s *MemStore) Put(p wire.Packet) error {
	id := p.PacketIdentifier()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if _, exists := s.data[id]; !exists {
		s.order = append(s.order, id)
	}
	s.data[id] = p
	return nil
}

func (s *MemStore) Get(id uint16) (wire.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[id]
	if !ok {
		return wire.Packet{}, ErrNotFound
	}
	return p, nil
}

func (s *MemStore) Del(id uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *MemStore) snapshotOrder() ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint16, 0, len(s.order))
	for _, id := range s.order {
		if _, ok := s.data[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *MemStore) CreateStream() (Sequence, error) {
	return newMemSequence(s.snapshotOrder, s.Get)
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
