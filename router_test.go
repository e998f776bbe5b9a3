package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatchExactMatch(t *testing.T) {
	r := NewRouter()
	var got string
	require.NoError(t, r.On("a/b", func(topic string, payload []byte) { got = topic }))
	r.Dispatch("a/b", []byte("x"))
	assert.Equal(t, "a/b", got)
}

func TestRouterDispatchSingleLevelWildcard(t *testing.T) {
	r := NewRouter()
	var got string
	require.NoError(t, r.On("a/+/c", func(topic string, payload []byte) { got = topic }))
	r.Dispatch("a/b/c", nil)
	assert.Equal(t, "a/b/c", got)
}

func TestRouterDispatchSingleLevelWildcardDoesNotCrossLevels(t *testing.T) {
	r := NewRouter()
	fired := false
	require.NoError(t, r.On("a/+", func(topic string, payload []byte) { fired = true }))
	r.Dispatch("a/b/c", nil)
	assert.False(t, fired)
}

func TestRouterDispatchMultiLevelWildcard(t *testing.T) {
	r := NewRouter()
	var got string
	require.NoError(t, r.On("a/#", func(topic string, payload []byte) { got = topic }))
	r.Dispatch("a/b/c/d", nil)
	assert.Equal(t, "a/b/c/d", got)
}

func TestRouterDispatchMultiLevelWildcardMatchesParentLevel(t *testing.T) {
	r := NewRouter()
	fired := false
	require.NoError(t, r.On("a/#", func(topic string, payload []byte) { fired = true }))
	r.Dispatch("a", nil)
	assert.True(t, fired)
}

func TestRouterOffRemovesHandler(t *testing.T) {
	r := NewRouter()
	fired := false
	require.NoError(t, r.On("a/b", func(topic string, payload []byte) { fired = true }))
	r.Off("a/b")
	r.Dispatch("a/b", nil)
	assert.False(t, fired)
}

func TestRouterDispatchFansOutToMultipleFilters(t *testing.T) {
	r := NewRouter()
	count := 0
	require.NoError(t, r.On("a/b", func(string, []byte) { count++ }))
	require.NoError(t, r.On("a/+", func(string, []byte) { count++ }))
	require.NoError(t, r.On("a/#", func(string, []byte) { count++ }))
	r.Dispatch("a/b", nil)
	assert.Equal(t, 3, count)
}

func TestRouterOnRejectsMalformedWildcard(t *testing.T) {
	r := NewRouter()
	assert.Error(t, r.On("finance#", func(string, []byte) {}))
}

func TestRouterOnRejectsHashNotLast(t *testing.T) {
	r := NewRouter()
	assert.Error(t, r.On("a/#/b", func(string, []byte) {}))
}

func TestRouterOnAcceptsPlainHash(t *testing.T) {
	r := NewRouter()
	assert.NoError(t, r.On("#", func(string, []byte) {}))
}
