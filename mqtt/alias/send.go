// Package alias implements the bidirectional topic<->alias compression
// tables MQTT v5 uses to avoid repeating topic strings on the wire.
// Grounded on absmach-fluxmq's topicAliasManager (outbound/inbound maps,
// getOrAssignOutbound/registerInbound/resolveInbound) and
// gonzalop-mq's applyTopicAlias first-use/subsequent-use logic.
package alias

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrOutOfRange is returned when an alias falls outside [1, max].
var ErrOutOfRange = errors.New("alias: out of range")

// Send is the sender-side topic->alias table. It tracks LRU order over
// occupied slots so that, once max is reached, the least-recently-used
// alias can be reassigned to a new topic.
type Send struct {
	max   uint16
	cache *lru.Cache[string, uint16]
	byAlias map[uint16]string
}

// NewSend returns a Send table bounded to max aliases (max <= 65535). A
// zero max means topic-alias compression is disabled.
func NewSend(max uint16) (*Send, error) {
	if max == 0 {
		return &Send{max: 0}, nil
	}
	c, err := lru.New[string, uint16](int(max))
	if err != nil {
		return nil, err
	}
	return &Send{max: max, cache: c, byAlias: make(map[uint16]string, max)}, nil
}

// Enabled reports whether this table accepts any aliases at all.
func (s *Send) Enabled() bool { return s.max > 0 }

func (s *Send) Max() uint16 { return s.max }

// GetAliasByTopic returns the alias currently registered for topic, if
// any, and bumps its LRU recency.
func (s *Send) GetAliasByTopic(topic string) (uint16, bool) {
	if s.cache == nil {
		return 0, false
	}
	return s.cache.Get(topic)
}

// GetTopicByAlias returns the topic currently registered to alias.
func (s *Send) GetTopicByAlias(alias uint16) (string, bool) {
	t, ok := s.byAlias[alias]
	return t, ok
}

// Put registers topic<->alias, evicting the topic previously bound to
// alias (if different) and updating LRU order. Fails if alias is out of
// [1, max].
func (s *Send) Put(topic string, alias uint16) error {
	if s.cache == nil || alias == 0 || alias > s.max {
		return ErrOutOfRange
	}
	if old, ok := s.byAlias[alias]; ok && old != topic {
		s.cache.Remove(old)
	}
	s.byAlias[alias] = topic
	s.cache.Add(topic, alias)
	return nil
}

// GetLruAlias returns an alias to reuse for a new topic: either an unused
// slot (1..max not yet assigned) or the least-recently-used occupied
// slot's alias if the table is full.
func (s *Send) GetLruAlias() (uint16, bool) {
	if s.cache == nil {
		return 0, false
	}
	if uint16(s.cache.Len()) < s.max {
		return uint16(s.cache.Len()) + 1, true
	}
	_, lruAlias, ok := s.cache.GetOldest()
	if !ok {
		return 0, false
	}
	return lruAlias, true
}

// Reset clears every registered alias.
func (s *Send) Reset() {
	if s.cache == nil {
		return
	}
	s.cache.Purge()
	s.byAlias = make(map[uint16]string, s.max)
}
