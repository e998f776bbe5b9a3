package mqtt

import (
	"sync"

	"github.com/go-mqtt/session/internal/wire"
)

// resubscribeEntry tracks the effective subscription options for a topic
// so a clean-session reconnect can replay it.
type resubscribeEntry struct {
	qos        wire.QoS
	noLocal    bool
	retainAsPublished bool
	retainHandling    uint8
	properties *wire.Properties
}

type resubscribeTable struct {
	mu      sync.Mutex
	byTopic map[string]resubscribeEntry
	byMessageID map[uint16][]string
}

func newResubscribeTable() *resubscribeTable {
	return &resubscribeTable{
		byTopic:     make(map[string]resubscribeEntry),
		byMessageID: make(map[uint16][]string),
	}
}

// AlreadyAtOrAboveQoS reports whether topic is already tracked at qos or
// higher. Subscribe does not consult it: every requested filter is sent,
// whether or not it is already tracked.
func (t *resubscribeTable) AlreadyAtOrAboveQoS(topic string, qos wire.QoS) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byTopic[topic]
	return ok && e.qos >= qos
}

func (t *resubscribeTable) Put(topic string, e resubscribeEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byTopic[topic] = e
}

func (t *resubscribeTable) Remove(topic string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byTopic, topic)
}

func (t *resubscribeTable) TrackMessageID(id uint16, topics []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byMessageID[id] = topics
}

func (t *resubscribeTable) TopicsForMessageID(id uint16) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	topics := t.byMessageID[id]
	delete(t.byMessageID, id)
	return topics
}

// Snapshot returns every tracked topic and its options, for replay after
// a clean-session reconnect.
func (t *resubscribeTable) Snapshot() map[string]resubscribeEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]resubscribeEntry, len(t.byTopic))
	for k, v := range t.byTopic {
		out[k] = v
	}
	return out
}

func (t *resubscribeTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byTopic)
}
