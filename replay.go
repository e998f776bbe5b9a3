package mqtt

import (
	"go.uber.org/zap"

	"github.com/go-mqtt/session/internal/wire"
)

// startReplay opens the outgoing store's restartable stream, marks the
// interlock active, and resends every still-unacknowledged packet in
// put order.
// The gate stays active until every replayed id's terminal ack has
// arrived (tracked in pendingReplayIDs, cleared from finishOutgoing via
// clearReplayPending) — not until the resend loop itself finishes.
func (s *SessionMachine) startReplay() error {
	seq, err := s.opts.OutgoingStore.CreateStream()
	if err != nil {
		return err
	}
	s.gate.SetActive(true)

	for {
		p, ok, err := seq.Next()
		if err != nil {
			seq.Destroy()
			s.gate.FlushWithError(err)
			s.gate.SetActive(false)
			return err
		}
		if !ok {
			break
		}
		id := p.PacketIdentifier()
		if id == 0 {
			continue
		}
		_, alreadyInFlight := s.inflight.Get(id)
		registered := s.ids.Register(id)
		if !alreadyInFlight && !registered {
			// Already tracked under a different logical owner; the store
			// entry is stale, drop it rather than resend a conflicting id.
			continue
		}
		s.recoverTopicNameIfNeeded(&p)
		if p.Type == wire.PublishType && p.Publish != nil {
			if p.Publish.TopicName == "" && (p.Publish.Properties == nil || p.Publish.Properties.TopicAlias == nil) {
				if !alreadyInFlight {
					_ = s.opts.OutgoingStore.Del(id)
					s.ids.Deallocate(id)
				}
				continue
			}
			p.Publish.Dup = true
		}
		s.pendingReplayIDs[id] = struct{}{}
		// A survivor of a prior connection already holds the original
		// caller's callback in inflight; only a fresh entry needs one
		// (log-only, since no caller is waiting on it).
		if !alreadyInFlight {
			s.inflight.Put(id, false, s.replayCallbackFor(id))
		}
		if err := s.wireIO.Write(p); err != nil {
			seq.Destroy()
			s.errCh <- err
			return err
		}
	}
	seq.Destroy()

	if len(s.pendingReplayIDs) == 0 {
		s.finalizeReplay()
	}
	return nil
}

// replayCallbackFor returns the callback a replayed in-flight entry
// fires when its terminal ack arrives. The original caller from a prior
// connection is gone, so a replay ack only needs to log.
func (s *SessionMachine) replayCallbackFor(id uint16) AckCallback {
	return func(err error, _ wire.Packet) {
		if err != nil {
			s.logger.Warn("replayed publish failed", zap.Uint16("id", id), zap.Error(err))
		}
	}
}

// finalizeReplay releases the store-processing interlock and drains
// whatever publish/subscribe/unsubscribe calls queued up behind it
// while replay was in progress.
func (s *SessionMachine) finalizeReplay() {
	s.gate.SetActive(false)
	s.gate.Drain()
}

// recoverTopicNameIfNeeded is a defensive repair for a stored PUBLISH
// that somehow carries only a v5 topic alias and no topic name: our own
// write path always persists the full name before compressing (see
// applyOutboundAlias), so this only matters for store contents written
// by another process generation whose alias table has since reset.
func (s *SessionMachine) recoverTopicNameIfNeeded(p *wire.Packet) {
	if p.Type != wire.PublishType || p.Publish == nil || p.Publish.TopicName != "" {
		return
	}
	if p.Publish.Properties == nil || p.Publish.Properties.TopicAlias == nil {
		return
	}
	al := *p.Publish.Properties.TopicAlias
	if topic, ok := s.aliasSend.GetTopicByAlias(al); ok {
		p.Publish.TopicName = topic
		return
	}
	s.logger.Warn("dropping replayed publish with unrecoverable topic alias", zap.Uint16("alias", al))
	p.Publish.TopicName = ""
}
