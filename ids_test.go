package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketIdProviderAllocateNeverZero(t *testing.T) {
	p := NewPacketIdProvider()
	id, ok := p.Allocate()
	require.True(t, ok)
	assert.NotZero(t, id)
}

func TestPacketIdProviderAllocateThenDeallocateReusable(t *testing.T) {
	p := NewPacketIdProvider()
	id, ok := p.Allocate()
	require.True(t, ok)
	p.Deallocate(id)
	last, ok := p.GetLastAllocated()
	require.True(t, ok)
	assert.Equal(t, id, last)
	assert.True(t, p.Register(id))
}

func TestPacketIdProviderRegisterRejectsDuplicate(t *testing.T) {
	p := NewPacketIdProvider()
	require.True(t, p.Register(5))
	assert.False(t, p.Register(5))
}

func TestPacketIdProviderClearResetsPool(t *testing.T) {
	p := NewPacketIdProvider()
	id, _ := p.Allocate()
	p.Clear()
	_, ok := p.GetLastAllocated()
	assert.False(t, ok)
	assert.True(t, p.Register(id))
}

func TestPacketIdProviderExhaustionSignalled(t *testing.T) {
	p := NewPacketIdProvider()
	for i := 1; i <= 65535; i++ {
		require.True(t, p.Register(uint16(i)))
	}
	_, ok := p.Allocate()
	assert.False(t, ok)
}
