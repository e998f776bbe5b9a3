package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-mqtt/session/internal/wire"
)

func pub(id uint16) wire.Packet {
	return wire.Packet{Type: wire.PublishType, Publish: &wire.Publish{
		TopicName: "t", PacketIdentifier: id, QoS: wire.QoS1,
	}}
}

func TestMemStorePutGetDel(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Put(pub(1)))
	got, err := s.Get(1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Publish.PacketIdentifier)

	require.NoError(t, s.Del(1))
	_, err = s.Get(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreStreamPreservesPutOrder(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Put(pub(3)))
	require.NoError(t, s.Put(pub(1)))
	require.NoError(t, s.Put(pub(2)))

	seq, err := s.CreateStream()
	require.NoError(t, err)
	defer seq.Destroy()

	var order []uint16
	for {
		p, ok, err := seq.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		order = append(order, p.PacketIdentifier())
	}
	assert.Equal(t, []uint16{3, 1, 2}, order)
}

func TestMemStoreStreamRestartPicksUpNewPackets(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Put(pub(1)))
	seq, err := s.CreateStream()
	require.NoError(t, err)

	_, ok, err := seq.Next()
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = seq.Next()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Put(pub(2)))
	require.NoError(t, seq.Restart())

	var got []uint16
	for {
		p, ok, err := seq.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, p.PacketIdentifier())
	}
	assert.Equal(t, []uint16{1, 2}, got)
}

func TestMemStoreStreamSkipsDeletedEntries(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Put(pub(1)))
	require.NoError(t, s.Put(pub(2)))
	seq, err := s.CreateStream()
	require.NoError(t, err)
	require.NoError(t, s.Del(1))

	p, ok, err := seq.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, p.PacketIdentifier())

	_, ok, err = seq.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}
