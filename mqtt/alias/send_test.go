package alias

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendFirstUseAssignsThenReuses(t *testing.T) {
	s, err := NewSend(5)
	require.NoError(t, err)

	a, ok := s.GetLruAlias()
	require.True(t, ok)
	assert.EqualValues(t, 1, a)
	require.NoError(t, s.Put("t/1", a))

	got, ok := s.GetAliasByTopic("t/1")
	require.True(t, ok)
	assert.EqualValues(t, 1, got)

	next, ok := s.GetLruAlias()
	require.True(t, ok)
	assert.EqualValues(t, 2, next)
}

func TestSendPutRejectsOutOfRangeAlias(t *testing.T) {
	s, err := NewSend(2)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Put("t", 3), ErrOutOfRange)
}

func TestSendLruEvictsLeastRecentlyUsedWhenFull(t *testing.T) {
	s, err := NewSend(2)
	require.NoError(t, err)
	a1, _ := s.GetLruAlias()
	require.NoError(t, s.Put("a", a1))
	a2, _ := s.GetLruAlias()
	require.NoError(t, s.Put("b", a2))

	// touch "a" so "b" becomes least-recently-used
	s.GetAliasByTopic("a")

	lru, ok := s.GetLruAlias()
	require.True(t, ok)
	assert.EqualValues(t, a2, lru)
	topic, ok := s.GetTopicByAlias(lru)
	require.True(t, ok)
	assert.Equal(t, "b", topic)
}

func TestSendDisabledWhenMaxZero(t *testing.T) {
	s, err := NewSend(0)
	require.NoError(t, err)
	assert.False(t, s.Enabled())
	_, ok := s.GetLruAlias()
	assert.False(t, ok)
}
