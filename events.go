package mqtt

import (
	"sync"

	"github.com/go-mqtt/session/internal/wire"
)

// EventSink receives the Session's public event stream: a concrete
// observer registry in place of an event-emitter chain. Every method
// has a no-op default via BaseEventSink so callers only implement what
// they need.
type EventSink interface {
	OnConnect(connack wire.Packet)
	OnReconnect()
	OnOffline()
	OnClose()
	OnDisconnect(p wire.Packet)
	OnEnd()
	OnError(err error)
	OnMessage(topic string, payload []byte, p wire.Packet)
	OnPacketSend(p wire.Packet)
	OnPacketReceive(p wire.Packet)
	OnOutgoingEmpty()
}

// BaseEventSink provides no-op implementations of every EventSink method;
// embed it and override only the events a caller cares about.
type BaseEventSink struct{}

func (BaseEventSink) OnConnect(wire.Packet)             {}
func (BaseEventSink) OnReconnect()                      {}
func (BaseEventSink) OnOffline()                        {}
func (BaseEventSink) OnClose()                          {}
func (BaseEventSink) OnDisconnect(wire.Packet)          {}
func (BaseEventSink) OnEnd()                            {}
func (BaseEventSink) OnError(error)                     {}
func (BaseEventSink) OnMessage(string, []byte, wire.Packet) {}
func (BaseEventSink) OnPacketSend(wire.Packet)          {}
func (BaseEventSink) OnPacketReceive(wire.Packet)       {}
func (BaseEventSink) OnOutgoingEmpty()                  {}

// eventBus fans events out to every registered EventSink.
type eventBus struct {
	mu    sync.RWMutex
	sinks []EventSink
}

func (b *eventBus) Subscribe(s EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

func (b *eventBus) snapshot() []EventSink {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]EventSink(nil), b.sinks...)
}

func (b *eventBus) connect(p wire.Packet) {
	for _, s := range b.snapshot() {
		s.OnConnect(p)
	}
}
func (b *eventBus) reconnect() {
	for _, s := range b.snapshot() {
		s.OnReconnect()
	}
}
func (b *eventBus) offline() {
	for _, s := range b.snapshot() {
		s.OnOffline()
	}
}
func (b *eventBus) close() {
	for _, s := range b.snapshot() {
		s.OnClose()
	}
}
func (b *eventBus) disconnect(p wire.Packet) {
	for _, s := range b.snapshot() {
		s.OnDisconnect(p)
	}
}
func (b *eventBus) end() {
	for _, s := range b.snapshot() {
		s.OnEnd()
	}
}
func (b *eventBus) error(err error) {
	for _, s := range b.snapshot() {
		s.OnError(err)
	}
}
func (b *eventBus) message(topic string, payload []byte, p wire.Packet) {
	for _, s := range b.snapshot() {
		s.OnMessage(topic, payload, p)
	}
}
func (b *eventBus) packetSend(p wire.Packet) {
	for _, s := range b.snapshot() {
		s.OnPacketSend(p)
	}
}
func (b *eventBus) packetReceive(p wire.Packet) {
	for _, s := range b.snapshot() {
		s.OnPacketReceive(p)
	}
}
func (b *eventBus) outgoingEmpty() {
	for _, s := range b.snapshot() {
		s.OnOutgoingEmpty()
	}
}
