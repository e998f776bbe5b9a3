package alias

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecvPutAndResolve(t *testing.T) {
	r := NewRecv(4)
	require.True(t, r.Put(1, "a/b"))
	topic, ok := r.Resolve(1)
	require.True(t, ok)
	assert.Equal(t, "a/b", topic)
}

func TestRecvRejectsOutOfRangeAlias(t *testing.T) {
	r := NewRecv(2)
	assert.False(t, r.Put(3, "a/b"))
	assert.False(t, r.Put(0, "a/b"))
}

func TestRecvResetClearsTable(t *testing.T) {
	r := NewRecv(2)
	r.Put(1, "a")
	r.Reset()
	_, ok := r.Resolve(1)
	assert.False(t, ok)
}
