package mqtt

import (
	"context"
	"sync"

	"github.com/go-mqtt/session/internal/wire"
	"github.com/go-mqtt/session/mqtt/transport"
)

// Session is the public entry point generalizing Client (client.go) to
// the session's full operation set. Every method hands its work to
// SessionMachine's single run-loop goroutine through submit, so two
// concurrent Publish calls never race on shared state.
type Session struct {
	m *SessionMachine

	endOnce   sync.Once
	endResult error
}

// NewSession validates opts, builds a SessionMachine and connects,
// mirroring Client.Connect — connection happens automatically, there is
// no separate explicit connect step.
func NewSession(builder transport.Builder, opts ...SessionOption) (*Session, error) {
	o := applyOptions(opts)
	if err := validateOptions(o); err != nil {
		return nil, err
	}
	m := newSessionMachine(builder, o)
	m.Start(context.Background())
	return &Session{m: m}, nil
}

// On registers sink to receive every future session event.
func (s *Session) On(sink EventSink) { s.m.bus.Subscribe(sink) }

// Publish sends topic/payload at qos, optionally retained. cb is
// invoked once the publish is fully acknowledged (QoS1/2) or, for
// QoS0, once it has been written to the wire. cb may be nil.
func (s *Session) Publish(topic string, payload []byte, qos wire.QoS, retain bool, cb AckCallback) {
	s.m.submit(func() { s.m.publish(topic, payload, qos, retain, nil, cb) })
}

// PublishWithProperties is Publish with an explicit v5 property list
// (response topic, correlation data, user properties, and so on).
func (s *Session) PublishWithProperties(topic string, payload []byte, qos wire.QoS, retain bool, props *wire.Properties, cb AckCallback) {
	s.m.submit(func() { s.m.publish(topic, payload, qos, retain, props, cb) })
}

// Subscribe requests a single topic filter at qos.
func (s *Session) Subscribe(topicFilter string, qos wire.QoS, cb AckCallback) {
	s.m.submit(func() {
		s.m.subscribe([]wire.SubscribeRequest{{TopicFilter: topicFilter, QoS: qos}}, cb)
	})
}

// SubscribeMany requests every filter in one SUBSCRIBE packet.
func (s *Session) SubscribeMany(filters []wire.SubscribeRequest, cb AckCallback) {
	s.m.submit(func() { s.m.subscribe(filters, cb) })
}

// SubscribeHandlers requests one filter per map entry at qos and routes
// matching inbound PUBLISHes to the corresponding handler through
// Router, using the wildcard matcher in router.go to fan a single
// inbound PUBLISH out locally.
func (s *Session) SubscribeHandlers(handlers map[string]MessageHandler, qos wire.QoS, cb AckCallback) {
	filters := make([]wire.SubscribeRequest, 0, len(handlers))
	for topic, h := range handlers {
		filters = append(filters, wire.SubscribeRequest{TopicFilter: topic, QoS: qos})
		_ = s.m.router.On(topic, h)
	}
	s.m.submit(func() { s.m.subscribe(filters, cb) })
}

// Unsubscribe removes every listed topic filter, both on the broker
// and from the local Router.
func (s *Session) Unsubscribe(topics []string, cb AckCallback) {
	s.m.submit(func() {
		for _, t := range topics {
			s.m.router.Off(t)
		}
		s.m.unsubscribe(topics, cb)
	})
}

// End disconnects (sending a DISCONNECT unless force is set) and
// releases every resource, blocking until cleanup has completed. Safe
// to call more than once: later calls resolve immediately with the
// result of the first.
func (s *Session) End(force bool) error {
	s.endOnce.Do(func() {
		done := make(chan error, 1)
		s.m.submit(func() {
			s.m.end(force, func(err error) { done <- err })
		})
		s.endResult = <-done
		s.m.wg.Wait()
	})
	return s.endResult
}

// Reconnect forces an immediate reconnect attempt if the session is
// currently offline; a no-op while already connected or ending.
func (s *Session) Reconnect() {
	s.m.submit(func() {
		if s.m.rc.Connected.Load() || s.m.state == stateEnding || s.m.state == stateEnded {
			return
		}
		s.m.rc.StopReconnect()
		s.m.beginConnect(s.m.runCtx)
	})
}

// RemoveOutgoingMessage cancels a pending outgoing QoS>=1 publish
// before its ack arrives: releases the packet id, deletes the
// persisted entry, and fires the original callback with
// ErrMessageRemoved.
func (s *Session) RemoveOutgoingMessage(id uint16) error {
	result := make(chan error, 1)
	s.m.submit(func() {
		entry, ok := s.m.inflight.Get(id)
		s.m.inflight.Delete(id)
		s.m.ids.Deallocate(id)
		err := s.m.opts.OutgoingStore.Del(id)
		if ok && entry.callback != nil {
			entry.callback(ErrMessageRemoved, wire.Packet{})
		}
		result <- err
	})
	return <-result
}

// GetLastMessageID returns the most recently allocated packet
// identifier, or false if none has been allocated since the last
// Clear.
func (s *Session) GetLastMessageID() (uint16, bool) {
	return s.m.ids.GetLastAllocated()
}

// Connected reports whether the session currently has a live
// connection to the broker.
func (s *Session) Connected() bool { return s.m.rc.Connected.Load() }
