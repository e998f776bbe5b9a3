package mqtt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-mqtt/session/internal/wire"
)

func TestStoreProcessingGateDefersWhileActive(t *testing.T) {
	g := newStoreProcessingGate()
	assert.False(t, g.ShouldDefer())

	g.SetActive(true)
	assert.True(t, g.ShouldDefer())

	g.SetActive(false)
	assert.False(t, g.ShouldDefer())
}

func TestStoreProcessingGateDefersWhileQueueNonEmpty(t *testing.T) {
	g := newStoreProcessingGate()
	g.Enqueue(storeProcessingQueueEntry{invoke: func() bool { return true }})
	assert.True(t, g.ShouldDefer())
}

func TestStoreProcessingGateDrainStopsOnFalseInvoke(t *testing.T) {
	g := newStoreProcessingGate()
	var order []int
	g.Enqueue(storeProcessingQueueEntry{invoke: func() bool { order = append(order, 1); return true }})
	g.Enqueue(storeProcessingQueueEntry{invoke: func() bool { order = append(order, 2); return false }})
	g.Enqueue(storeProcessingQueueEntry{invoke: func() bool { order = append(order, 3); return true }})

	g.Drain()

	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, 2, g.QueueLen())
}

func TestStoreProcessingGateDrainEmptiesQueueWhenAllSucceed(t *testing.T) {
	g := newStoreProcessingGate()
	calls := 0
	for i := 0; i < 3; i++ {
		g.Enqueue(storeProcessingQueueEntry{invoke: func() bool { calls++; return true }})
	}
	g.Drain()
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, g.QueueLen())
}

func TestStoreProcessingGateFlushWithErrorFiresCallbacks(t *testing.T) {
	g := newStoreProcessingGate()
	var gotErr error
	g.Enqueue(storeProcessingQueueEntry{
		invoke:   func() bool { return true },
		callback: func(err error, _ wire.Packet) { gotErr = err },
	})
	require.Equal(t, 1, g.QueueLen())

	sentinel := errors.New("boom")
	g.FlushWithError(sentinel)
	assert.Equal(t, sentinel, gotErr)
	assert.Equal(t, 0, g.QueueLen())
}
