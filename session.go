package mqtt

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/go-mqtt/session/internal/wire"
	"github.com/go-mqtt/session/mqtt/alias"
	"github.com/go-mqtt/session/mqtt/transport"
)

type sessionState uint8

const (
	stateOffline sessionState = iota
	stateConnecting
	stateConnected
	stateEnding
	stateEnded
)

// SessionMachine is the protocol state machine: one goroutine (run)
// owns every mutable field below except the handful surfaced through
// ReconnectController's atomic flags. Every other access — from
// Publish/Subscribe/Unsubscribe/End — is marshalled onto that goroutine
// through cmdCh, keeping every mutation short, non-blocking, and free
// of explicit locking.
//
// Adapted from Client (client.go), generalized from a single
// in-flight-publish-at-a-time loop to the full v3/v5 operation set.
type SessionMachine struct {
	opts    Options
	builder transport.Builder
	codec   Codec
	logger  *zap.Logger

	bus       *eventBus
	router    *Router
	ids       *PacketIdProvider
	inflight  *inFlightTable
	offline   *offlineQueue
	gate      *storeProcessingGate
	resub     *resubscribeTable
	aliasSend *alias.Send
	aliasRecv *alias.Recv
	rc        *ReconnectController

	wireIO *WireIO

	version               int
	topicAliasRecvMax     uint16
	serverMaxPacketSize   uint32
	pingOutstanding       bool
	pendingReplayIDs      map[uint16]struct{}
	sessionPresent        bool

	state sessionState

	cmdCh   chan func()
	pktCh   chan wire.Packet
	errCh   chan error
	closeCh chan struct{}

	wg     sync.WaitGroup
	runCtx context.Context
	cancel context.CancelFunc

	endCallback   func(error)
	endGraceTimer *time.Timer

	cleanupOnce sync.Once
	endedCh     chan struct{}
}

func newSessionMachine(builder transport.Builder, opts Options) *SessionMachine {
	aliasSend, _ := alias.NewSend(opts.TopicAliasMaximum)
	s := &SessionMachine{
		opts:              opts,
		builder:           builder,
		codec:             DefaultCodec(),
		logger:            sessionLogger(opts.Logger, opts.ClientID),
		bus:               &eventBus{},
		router:            NewRouter(),
		ids:               opts.MessageIDProvider,
		inflight:          newInFlightTable(),
		offline:           newOfflineQueue(),
		gate:              newStoreProcessingGate(),
		resub:             newResubscribeTable(),
		aliasSend:         aliasSend,
		aliasRecv:         alias.NewRecv(opts.TopicAliasMaximum),
		rc:                newReconnectController(opts),
		version:           opts.ProtocolVersion,
		topicAliasRecvMax: opts.TopicAliasMaximum,
		pendingReplayIDs:  make(map[uint16]struct{}),
		cmdCh:             make(chan func(), 64),
		pktCh:             make(chan wire.Packet),
		errCh:             make(chan error, 1),
		closeCh:           make(chan struct{}),
		endedCh:           make(chan struct{}),
	}
	s.wireIO = newWireIO(s.codec, s.version, s.logger, opts.RateLimiter, s.bus)
	s.endGraceTimer = time.NewTimer(time.Hour)
	s.endGraceTimer.Stop()
	return s
}

// Start launches the run loop, which opens the first connection. It
// returns as soon as that goroutine is started, without waiting for the
// first CONNECT to be sent; CONNACK is awaited asynchronously — errors
// surface through the error event and callbacks, not a blocking return
// here.
func (s *SessionMachine) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.runCtx = runCtx
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(runCtx)
}

func (s *SessionMachine) submit(fn func()) {
	select {
	case s.cmdCh <- fn:
	case <-s.closeCh:
	}
}

func (s *SessionMachine) run(ctx context.Context) {
	defer s.wg.Done()
	s.beginConnect(ctx)

	for {
		select {
		case <-ctx.Done():
			s.cleanUp(ErrConnectionClosed)
			return

		case fn := <-s.cmdCh:
			fn()
			if s.state == stateEnded {
				return
			}

		case p := <-s.pktCh:
			s.dispatchInbound(p)

		case err := <-s.errCh:
			s.handleTransportError(ctx, err)

		case <-s.rc.pingTimer.C:
			s.handlePingTimer()

		case <-s.rc.connectTimer.C:
			s.handleConnectTimeout(ctx)

		case <-s.rc.reconnectTimer.C:
			s.beginConnect(ctx)

		case <-s.endGraceTimer.C:
			s.finishEndNow()
		}
	}
}

func (s *SessionMachine) beginConnect(ctx context.Context) {
	s.state = stateConnecting
	stream, err := s.builder.Build(ctx)
	if err != nil {
		s.logger.Warn("connect attempt failed", zap.String("attempt", connAttemptID()), zap.Error(err))
		s.state = stateOffline
		s.bus.offline()
		s.rc.ArmReconnect()
		return
	}
	s.wireIO.Attach(stream)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.wireIO.ReadLoop(stream, s.pktCh, s.errCh)
	}()

	connect := buildConnect(s.opts, s.topicAliasRecvMax)
	if err := s.wireIO.Write(connect); err != nil {
		s.errCh <- err
		return
	}
	s.rc.ArmConnect()
}

func (s *SessionMachine) handleConnectTimeout(ctx context.Context) {
	s.logger.Warn("CONNACK not received before connect timeout")
	s.closeStream()
	s.state = stateOffline
	s.bus.offline()
	s.rc.ArmReconnect()
}

func (s *SessionMachine) handleTransportError(ctx context.Context, err error) {
	s.logger.Warn("transport error", zap.Error(err))
	s.closeStream()
	wasConnected := s.rc.Connected.Load()
	s.rc.Connected.Store(false)
	s.rc.StopPing()
	s.rc.StopConnect()
	s.inflight.FlushVolatile(ErrConnectionClosed)
	s.gate.FlushWithError(ErrConnectionClosed)
	s.gate.SetActive(false)
	s.pendingReplayIDs = make(map[uint16]struct{})
	if wasConnected {
		s.bus.offline()
	}
	s.bus.error(err)
	if s.state == stateEnding {
		s.finishEnd()
		return
	}
	s.state = stateOffline
	s.rc.ArmReconnect()
}

func (s *SessionMachine) closeStream() {
	s.rc.StopReconnect()
	_ = s.wireIO.Close()
}

func (s *SessionMachine) dispatchInbound(p wire.Packet) {
	switch p.Type {
	case wire.ConnackType:
		s.handleConnack(p)
	case wire.PublishType:
		s.handlePublishIn(p)
	case wire.Puback:
		s.handlePuback(p)
	case wire.Pubrec:
		s.handlePubrec(p)
	case wire.Pubrel:
		s.handlePubrelIn(p)
	case wire.Pubcomp:
		s.handlePubcomp(p)
	case wire.SubackType:
		s.handleSuback(p)
	case wire.UnsubackType:
		s.handleUnsuback(p)
	case wire.Pingresp:
		s.rc.PingResp.Store(true)
	case wire.Disconnect:
		s.handleDisconnectIn(p)
	case wire.Auth:
		s.handleAuthIn(p)
	}
}

func (s *SessionMachine) handleConnack(p wire.Packet) {
	s.rc.StopConnect()
	c := p.Connack
	success := !c.ReasonCode.IsError()
	if !success {
		err := newReasonError(c.ReasonCode, s.version)
		s.logger.Warn("CONNECT refused", zap.String("reason", err.Msg))
		s.bus.error(err)
		s.closeStream()
		s.state = stateOffline
		s.bus.offline()
		s.rc.ArmReconnect()
		return
	}

	s.state = stateConnected
	s.sessionPresent = c.SessionPresent
	s.rc.Connected.Store(true)
	s.rc.PingResp.Store(true)
	s.pingOutstanding = false

	if s.version >= 5 && c.Properties != nil {
		if c.Properties.ServerKeepAlive != nil {
			s.rc.keepalive = time.Duration(*c.Properties.ServerKeepAlive) * time.Second
		}
		if c.Properties.TopicAliasMaximum != nil {
			if snd, err := alias.NewSend(*c.Properties.TopicAliasMaximum); err == nil {
				s.aliasSend = snd
			}
		}
		if c.Properties.MaximumPacketSize != nil {
			s.serverMaxPacketSize = *c.Properties.MaximumPacketSize
		}
	}
	s.rc.ArmPing()

	if !s.sessionPresent {
		s.ids.Clear()
	}
	s.aliasRecv.Reset()
	s.aliasSend.Reset()

	s.bus.connect(p)

	if err := s.startReplay(); err != nil {
		s.logger.Warn("outgoing store replay failed to start", zap.Error(err))
	}
	if !s.sessionPresent && s.opts.Resubscribe {
		s.resubscribeAll()
	}
	s.drainOffline()
	if !s.gate.Active() {
		s.gate.Drain()
	}
}

// resubscribeAll re-sends every subscription the resubscribe table
// still tracks after a clean-start reconnect.
func (s *SessionMachine) resubscribeAll() {
	snap := s.resub.Snapshot()
	if len(snap) == 0 {
		return
	}
	filters := make([]wire.SubscribeRequest, 0, len(snap))
	for topic, e := range snap {
		filters = append(filters, wire.SubscribeRequest{
			TopicFilter: topic, QoS: e.qos, NoLocal: e.noLocal,
			RetainAsPublished: e.retainAsPublished, RetainHandling: e.retainHandling,
		})
	}
	s.subscribe(filters, func(err error, _ wire.Packet) {
		if err != nil {
			s.logger.Warn("resubscribe failed", zap.Error(err))
		}
	})
}

func (s *SessionMachine) drainOffline() {
	for _, entry := range s.offline.Drain() {
		s.enqueueOrSend(entry.packet, entry.callback)
	}
}

// handlePublishIn runs the inbound QoS0/1/2 receive protocol, resolving
// v5 topic aliases before dispatch.
func (s *SessionMachine) handlePublishIn(p wire.Packet) {
	pub := p.Publish
	topic := pub.TopicName
	if pub.Properties != nil && pub.Properties.TopicAlias != nil {
		al := *pub.Properties.TopicAlias
		if al == 0 || al > s.topicAliasRecvMax {
			s.protocolError(wire.TopicAliasInvalid, ErrReceivedAliasOutOfRange)
			return
		}
		if topic != "" {
			s.aliasRecv.Put(al, topic)
		} else {
			resolved, ok := s.aliasRecv.Resolve(al)
			if !ok {
				s.protocolError(wire.ProtocolError, ErrReceivedUnregisteredAlias)
				return
			}
			topic = resolved
		}
	}
	if topic == "" {
		s.protocolError(wire.TopicNameInvalid, ErrInvalidTopic)
		return
	}
	if s.opts.Properties != nil && s.opts.Properties.MaximumPacketSize != nil {
		approx := uint32(len(p.Payload) + len(topic) + 10)
		if approx > *s.opts.Properties.MaximumPacketSize {
			s.protocolError(wire.PacketTooLarge, ErrPacketTooLarge)
			return
		}
	}

	switch pub.QoS {
	case wire.QoS0:
		s.deliver(topic, p.Payload, p)

	case wire.QoS1:
		rc, err := s.opts.CustomHandleAcks(topic, p.Payload, p)
		if err != nil {
			s.logger.Warn("customHandleAcks error", zap.Error(err))
			rc = wire.UnspecifiedError
		}
		if !isAllowedAckReasonCode(rc) {
			s.bus.error(newReasonError(rc, s.version))
			return
		}
		if !rc.IsError() {
			if err := s.deliver(topic, p.Payload, p); err != nil {
				s.logger.Warn("handleMessage failed for QoS1 publish", zap.Error(err))
				rc = wire.UnspecifiedError
			}
		}
		_ = s.wireIO.Write(buildAckPacket(wire.Puback, pub.PacketIdentifier, rc))

	case wire.QoS2:
		id := pub.PacketIdentifier
		if _, err := s.opts.IncomingStore.Get(id); err == nil {
			// Retransmission of a PUBLISH already recorded: re-ack, do not
			// redeliver (exactly-once on the receive side).
			_ = s.wireIO.Write(buildAckPacket(wire.Pubrec, id, wire.Success))
			return
		}
		rc, err := s.opts.CustomHandleAcks(topic, p.Payload, p)
		if err != nil {
			s.logger.Warn("customHandleAcks error", zap.Error(err))
			rc = wire.UnspecifiedError
		}
		if !isAllowedAckReasonCode(rc) {
			s.bus.error(newReasonError(rc, s.version))
			return
		}
		if !rc.IsError() {
			if err := s.opts.IncomingStore.Put(p); err != nil {
				s.logger.Warn("incoming store put failed", zap.Error(err))
			}
		}
		_ = s.wireIO.Write(buildAckPacket(wire.Pubrec, id, rc))
		if !rc.IsError() {
			s.deliver(topic, p.Payload, p)
		}
	}
}

func (s *SessionMachine) handlePubrelIn(p wire.Packet) {
	id := p.Pubrel.PacketIdentifier
	_ = s.opts.IncomingStore.Del(id)
	_ = s.wireIO.Write(buildAckPacket(wire.Pubcomp, id, wire.Success))
}

// deliver fans payload out to the event bus and Router, then — if
// HandleMessage is set — blocks until its callback fires. The run loop
// only reads the next inbound packet once deliver returns, so a slow
// handler throttles the peer rather than piling up undelivered
// messages.
func (s *SessionMachine) deliver(topic string, payload []byte, p wire.Packet) error {
	s.bus.message(topic, payload, p)
	s.router.Dispatch(topic, payload)
	if s.opts.HandleMessage == nil {
		return nil
	}
	done := make(chan error, 1)
	s.opts.HandleMessage(p, payload, func(err error) { done <- err })
	select {
	case err := <-done:
		return err
	case <-s.runCtx.Done():
		return ErrConnectionClosed
	}
}

// protocolError handles an oversized or malformed inbound packet under
// v5: tell the peer why, then close.
func (s *SessionMachine) protocolError(rc wire.ReasonCode, cause error) {
	s.logger.Warn("protocol error on inbound packet", zap.Error(cause))
	if s.version >= 5 {
		_ = s.wireIO.Write(wire.Packet{Type: wire.Disconnect, Disconnect: &wire.Ack{ReasonCode: rc}})
	}
	s.errCh <- cause
}

// A non-success PUBREC is terminal: the callback fires with the tagged
// error, the id is deallocated, and the outgoing-store entry is
// removed, rather than waiting for a PUBCOMP that will never come.
func (s *SessionMachine) handlePubrec(p wire.Packet) {
	id := p.Pubrec.PacketIdentifier
	if p.Pubrec.ReasonCode.IsError() {
		err := newReasonError(p.Pubrec.ReasonCode, s.version)
		s.finishOutgoing(id, err, p)
		return
	}
	pubrel := buildAckPacket(wire.Pubrel, id, wire.Success)
	_ = s.opts.OutgoingStore.Put(pubrel)
	_ = s.wireIO.Write(pubrel)
}

func (s *SessionMachine) handlePubcomp(p wire.Packet) {
	s.finishOutgoing(p.Pubcomp.PacketIdentifier, nil, p)
}

func (s *SessionMachine) handlePuback(p wire.Packet) {
	s.finishOutgoing(p.Puback.PacketIdentifier, nil, p)
}

// finishOutgoing is the common terminal-ack path for PUBACK/PUBCOMP and
// a failed PUBREC: release the id, drop the persisted entry, fire the
// caller's callback, and clear the id out of the pending-replay set so
// a drained replay can finalize once that set empties.
func (s *SessionMachine) finishOutgoing(id uint16, err error, p wire.Packet) {
	_ = s.opts.OutgoingStore.Del(id)
	s.ids.Deallocate(id)
	entry, ok := s.inflight.Get(id)
	s.inflight.Delete(id)
	if ok && entry.callback != nil {
		entry.callback(err, p)
	}
	s.clearReplayPending(id)
	s.checkOutgoingEmpty()
}

func (s *SessionMachine) handleSuback(p wire.Packet) {
	id := p.Suback.PacketIdentifier
	topics := s.resub.TopicsForMessageID(id)
	for i, rc := range p.Suback.ReturnCodes {
		if i >= len(topics) {
			break
		}
		if rc&0x80 != 0 {
			s.resub.Remove(topics[i])
		}
	}
	s.ids.Deallocate(id)
	entry, ok := s.inflight.Get(id)
	s.inflight.Delete(id)
	if ok && entry.callback != nil {
		entry.callback(nil, p)
	}
	s.checkOutgoingEmpty()
}

func (s *SessionMachine) handleUnsuback(p wire.Packet) {
	id := p.Unsuback.PacketIdentifier
	for _, topic := range s.resub.TopicsForMessageID(id) {
		s.resub.Remove(topic)
	}
	s.ids.Deallocate(id)
	entry, ok := s.inflight.Get(id)
	s.inflight.Delete(id)
	if ok && entry.callback != nil {
		entry.callback(nil, p)
	}
	s.checkOutgoingEmpty()
}

func (s *SessionMachine) handleDisconnectIn(p wire.Packet) {
	s.bus.disconnect(p)
	s.errCh <- ErrConnectionClosed
}

func (s *SessionMachine) handleAuthIn(p wire.Packet) {
	if s.opts.HandleAuth != nil {
		s.opts.HandleAuth(p, func(out *wire.Packet, err error) {
			if err != nil {
				s.bus.error(err)
				return
			}
			if out != nil {
				_ = s.wireIO.Write(*out)
			}
		})
		return
	}
	if p.Auth != nil && p.Auth.ReasonCode != wire.ContinueAuthentication {
		s.logger.Warn("unsolicited AUTH with no HandleAuth hook configured")
	}
}

// handlePingTimer fires on the keepalive interval: send a PINGREQ, or,
// if the previous one was never answered, treat the connection as dead.
func (s *SessionMachine) handlePingTimer() {
	if s.pingOutstanding && !s.rc.PingResp.Load() {
		s.errCh <- newReasonError(wire.KeepAliveTimeout, s.version)
		return
	}
	s.pingOutstanding = true
	s.rc.PingResp.Store(false)
	if err := s.wireIO.Write(wire.Packet{Type: wire.Pingreq}); err != nil {
		s.errCh <- err
		return
	}
	s.rc.ArmPing()
}

// clearReplayPending drops id from the set of replayed messageIds still
// awaiting a terminal ack; once that set is empty the interlock can be
// released.
func (s *SessionMachine) clearReplayPending(id uint16) {
	if _, ok := s.pendingReplayIDs[id]; !ok {
		return
	}
	delete(s.pendingReplayIDs, id)
	if len(s.pendingReplayIDs) == 0 && s.gate.Active() {
		s.finalizeReplay()
	}
}

// publish allocates an id for QoS>=1, defers behind the
// store-processing interlock or offline queue as appropriate, otherwise
// sends immediately.
func (s *SessionMachine) publish(topic string, payload []byte, qos wire.QoS, retain bool, props *wire.Properties, cb AckCallback) {
	if cb == nil {
		cb = func(error, wire.Packet) {}
	}
	pub := &wire.Publish{TopicName: topic, QoS: qos, Retain: retain, Properties: props}
	if qos != wire.QoS0 {
		id, ok := s.ids.Allocate()
		if !ok {
			s.gate.Enqueue(storeProcessingQueueEntry{
				invoke:   func() bool { s.publish(topic, payload, qos, retain, props, cb); return true },
				callback: cb,
			})
			return
		}
		pub.PacketIdentifier = id
	}
	s.enqueueOrSend(wire.Packet{Type: wire.PublishType, Publish: pub, Payload: payload}, cb)
}

func (s *SessionMachine) subscribe(filters []wire.SubscribeRequest, cb AckCallback) {
	if cb == nil {
		cb = func(error, wire.Packet) {}
	}
	id, ok := s.ids.Allocate()
	if !ok {
		s.gate.Enqueue(storeProcessingQueueEntry{
			invoke:   func() bool { s.subscribe(filters, cb); return true },
			callback: cb,
		})
		return
	}
	topics := make([]string, len(filters))
	for i, f := range filters {
		topics[i] = f.TopicFilter
		s.resub.Put(f.TopicFilter, resubscribeEntry{
			qos: f.QoS, noLocal: f.NoLocal,
			retainAsPublished: f.RetainAsPublished, retainHandling: f.RetainHandling,
		})
	}
	s.resub.TrackMessageID(id, topics)
	pkt := wire.Packet{Type: wire.SubscribeType, Subscribe: &wire.Subscribe{PacketIdentifier: id, Filters: filters}}
	s.enqueueOrSend(pkt, cb)
}

func (s *SessionMachine) unsubscribe(topics []string, cb AckCallback) {
	if cb == nil {
		cb = func(error, wire.Packet) {}
	}
	id, ok := s.ids.Allocate()
	if !ok {
		s.gate.Enqueue(storeProcessingQueueEntry{
			invoke:   func() bool { s.unsubscribe(topics, cb); return true },
			callback: cb,
		})
		return
	}
	s.resub.TrackMessageID(id, topics)
	pkt := wire.Packet{Type: wire.UnsubscribeType, Unsubscribe: &wire.Unsubscribe{PacketIdentifier: id, Topics: topics}}
	s.enqueueOrSend(pkt, cb)
}

// enqueueOrSend is the shared dispatch point: offline packets queue for
// the next CONNACK, packets that arrive while the store-processing gate
// is active queue behind it, everything else goes straight to the wire.
func (s *SessionMachine) enqueueOrSend(pkt wire.Packet, cb AckCallback) {
	if !s.rc.Connected.Load() {
		if pkt.Type == wire.PublishType && pkt.Publish.QoS == wire.QoS0 && !s.opts.QueueQoSZero {
			cb(ErrNoConnection, pkt)
			return
		}
		if needsOutgoingStore(pkt) {
			if err := s.opts.OutgoingStore.Put(pkt); err != nil {
				cb(err, pkt)
				return
			}
		}
		s.offline.Push(pkt, cb)
		return
	}
	if s.gate.ShouldDefer() {
		s.gate.Enqueue(storeProcessingQueueEntry{
			invoke:   func() bool { return s.trySend(pkt, cb) },
			callback: cb,
		})
		return
	}
	s.trySend(pkt, cb)
}

func needsOutgoingStore(pkt wire.Packet) bool {
	return pkt.Type == wire.PublishType && pkt.Publish != nil && pkt.Publish.QoS != wire.QoS0
}

// trySend persists (if applicable), registers the in-flight callback,
// applies v5 topic-alias compression, and writes pkt to the wire. It
// returns false when the write could not be admitted so a gate-deferred
// caller knows to retry rather than advance its queue.
func (s *SessionMachine) trySend(pkt wire.Packet, cb AckCallback) bool {
	if needsOutgoingStore(pkt) {
		if err := s.opts.OutgoingStore.Put(pkt); err != nil {
			cb(err, pkt)
			return false
		}
	}
	if id := pkt.PacketIdentifier(); id != 0 {
		volatile := pkt.Type != wire.PublishType
		s.inflight.Put(id, volatile, cb)
	}
	s.applyOutboundAlias(&pkt)
	if err := s.wireIO.Write(pkt); err != nil {
		s.errCh <- err
		return false
	}
	if s.opts.ReschedulePings {
		s.rc.ArmPing()
	}
	if pkt.Type == wire.PublishType && pkt.Publish.QoS == wire.QoS0 {
		cb(nil, pkt)
	}
	return true
}

// applyOutboundAlias compresses an outgoing PUBLISH's topic name to a v5
// topic alias. It points pkt.Publish at a copy before changing it: by the
// time it runs the packet has already been persisted in full (trySend
// stores before calling this), and a store may hold that same *Publish,
// so the stored copy always retains the real topic name —
// recoverTopicNameIfNeeded (replay.go) exists only to guard against a
// store entry from elsewhere that didn't uphold that order.
func (s *SessionMachine) applyOutboundAlias(pkt *wire.Packet) {
	if pkt.Type != wire.PublishType || s.version < 5 || s.aliasSend == nil || !s.aliasSend.Enabled() {
		return
	}
	cp := *pkt.Publish
	if cp.Properties != nil {
		props := *cp.Properties
		cp.Properties = &props
	}
	pkt.Publish = &cp
	pub := pkt.Publish
	if al, ok := s.aliasSend.GetAliasByTopic(pub.TopicName); ok {
		if s.opts.AutoUseTopicAlias || s.opts.AutoAssignTopicAlias {
			v := al
			if pub.Properties == nil {
				pub.Properties = &wire.Properties{}
			}
			pub.Properties.TopicAlias = &v
			pub.TopicName = ""
		}
		return
	}
	if s.opts.AutoAssignTopicAlias {
		al, ok := s.aliasSend.GetLruAlias()
		if ok && s.aliasSend.Put(pub.TopicName, al) == nil {
			v := al
			if pub.Properties == nil {
				pub.Properties = &wire.Properties{}
			}
			pub.Properties.TopicAlias = &v
		}
	}
}

// end optionally sends DISCONNECT, then tears down every resource. Called
// at most once per SessionMachine — Session.End guards repeat calls with
// its own sync.Once and caches the result, so a second End resolves
// immediately without reaching here.
//
// A non-forced end with outstanding in-flight operations defers cleanup
// until checkOutgoingEmpty observes the table drain (plus a short grace
// period for the terminal ack's own bookkeeping to settle) rather than
// cutting them off mid-flight.
func (s *SessionMachine) end(force bool, cb func(error)) {
	s.rc.Disconnecting.Store(true)
	s.state = stateEnding
	s.endCallback = cb
	if !force && s.rc.Connected.Load() {
		_ = s.wireIO.Write(wire.Packet{Type: wire.Disconnect, Disconnect: &wire.Ack{ReasonCode: wire.NormalDisconnection}})
	}
	if !force && s.inflight.Len() > 0 {
		return
	}
	s.finishEndNow()
}

// finishEndNow runs cleanup and resolves the callback end() was given,
// if any. Reached either immediately (force, or nothing in flight) or
// after a deferred graceful end's grace timer fires.
func (s *SessionMachine) finishEndNow() {
	s.cleanUp(ErrAlreadyEnded)
	if s.endCallback != nil {
		cb := s.endCallback
		s.endCallback = nil
		cb(nil)
	}
}

// finishEnd is reached when a transport error arrives while a graceful
// end is still waiting on checkOutgoingEmpty: the connection is gone, so
// there is nothing left to wait for.
func (s *SessionMachine) finishEnd() { s.finishEndNow() }

// checkOutgoingEmpty emits the outgoingEmpty event once every in-flight
// operation has been acknowledged while disconnecting, and lets a
// graceful end pending on that drain proceed after a short grace period.
func (s *SessionMachine) checkOutgoingEmpty() {
	if !s.rc.Disconnecting.Load() || s.inflight.Len() != 0 {
		return
	}
	s.bus.outgoingEmpty()
	if s.state == stateEnding && s.endCallback != nil {
		stopTimer(s.endGraceTimer)
		s.endGraceTimer.Reset(10 * time.Millisecond)
	}
}

// cleanUp stops every timer, closes the stream, flushes every pending
// callback with err, and marks the session ended. Idempotent since
// several paths (End, a transport error while already ending, context
// cancellation) can all reach it.
func (s *SessionMachine) cleanUp(err error) {
	s.cleanupOnce.Do(func() {
		s.rc.StopAll()
		stopTimer(s.endGraceTimer)
		_ = s.wireIO.Close()
		s.rc.Connected.Store(false)
		s.inflight.FlushAll(err)
		s.gate.FlushWithError(err)
		s.gate.SetActive(false)
		s.ids.Clear()
		for _, e := range s.offline.Drain() {
			if e.callback != nil {
				e.callback(err, e.packet)
			}
		}
		s.state = stateEnded
		s.bus.close()
		s.bus.end()
		if s.cancel != nil {
			s.cancel()
		}
		close(s.closeCh)
		close(s.endedCh)
	})
}
