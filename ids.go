package mqtt

import "sync"

// PacketIdProvider allocates and tracks 16-bit MQTT packet identifiers in
// [1, 65535] with a monotonically advancing cursor backed by a dense
// occupancy bitset. Adapted in spirit from the flat, allocation-free
// style of decoder_lowmem.go, generalized from byte codecs to an id
// pool.
type PacketIdProvider struct {
	mu     sync.Mutex
	bitset [1 << 13]uint64 // 65536 bits
	cursor uint16
	last   uint16
	hasLast bool
}

// NewPacketIdProvider returns an empty allocator.
func NewPacketIdProvider() *PacketIdProvider {
	return &PacketIdProvider{cursor: 0}
}

func (p *PacketIdProvider) wordIndex(id uint16) (word, bit int) {
	return int(id) / 64, int(id) % 64
}

func (p *PacketIdProvider) testBit(id uint16) bool {
	w, b := p.wordIndex(id)
	return p.bitset[w]&(1<<uint(b)) != 0
}

func (p *PacketIdProvider) setBit(id uint16) {
	w, b := p.wordIndex(id)
	p.bitset[w] |= 1 << uint(b)
}

func (p *PacketIdProvider) clearBit(id uint16) {
	w, b := p.wordIndex(id)
	p.bitset[w] &^= 1 << uint(b)
}

// Allocate returns the next unused id in [1, 65535], or false if the pool
// is exhausted. Exhaustion is a transient condition: callers enqueue the
// operation and retry once an id is freed.
func (p *PacketIdProvider) Allocate() (uint16, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < 65535; i++ {
		p.cursor++
		if p.cursor == 0 {
			p.cursor = 1
		}
		if !p.testBit(p.cursor) {
			p.setBit(p.cursor)
			p.last = p.cursor
			p.hasLast = true
			return p.cursor, true
		}
	}
	return 0, false
}

// Register reserves a specific id, e.g. during store replay. Returns
// false if the id was already allocated.
func (p *PacketIdProvider) Register(id uint16) bool {
	if id == 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.testBit(id) {
		return false
	}
	p.setBit(id)
	p.last = id
	p.hasLast = true
	return true
}

// Deallocate releases id back to the pool.
func (p *PacketIdProvider) Deallocate(id uint16) {
	if id == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearBit(id)
}

// GetLastAllocated returns the most recently allocated or registered id.
func (p *PacketIdProvider) GetLastAllocated() (uint16, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}

// Clear resets all allocations. Called at a successful CONNACK that does
// not resume a prior session, and on end.
func (p *PacketIdProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.bitset {
		p.bitset[i] = 0
	}
	p.cursor = 0
	p.last = 0
	p.hasLast = false
}
