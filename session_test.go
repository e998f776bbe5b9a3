package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-mqtt/session/internal/wire"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("waitFor: condition never became true")
}

type ackResult struct {
	mu   sync.Mutex
	err  error
	pkt  wire.Packet
	done bool
}

func (r *ackResult) callback(err error, p wire.Packet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	r.pkt = p
	r.done = true
}

func (r *ackResult) isDone() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func TestSessionPublishQoS1HappyPath(t *testing.T) {
	broker := newFakeBroker()
	sess, err := NewSession(broker.Builder(), WithProtocolVersion(4), WithReconnectPeriod(20*time.Millisecond))
	require.NoError(t, err)
	defer sess.End(true)

	server := broker.nextServer(t)
	serverHandshake(t, server, 4, false)
	waitFor(t, sess.Connected)

	result := &ackResult{}
	sess.Publish("a/b", []byte("hello"), wire.QoS1, false, result.callback)

	pub := serverReadPacket(t, server, 4)
	require.Equal(t, wire.PublishType, pub.Type)
	assert.Equal(t, "a/b", pub.Publish.TopicName)
	assert.False(t, pub.Publish.Dup)
	id := pub.Publish.PacketIdentifier
	require.NotZero(t, id)

	serverWritePacket(t, server, wire.Packet{Type: wire.Puback, Puback: &wire.Ack{PacketIdentifier: id}}, 4)

	waitFor(t, result.isDone)
	assert.NoError(t, result.err)
}

func TestSessionPublishQoS0DoesNotWaitForAck(t *testing.T) {
	broker := newFakeBroker()
	sess, err := NewSession(broker.Builder(), WithProtocolVersion(4), WithReconnectPeriod(20*time.Millisecond))
	require.NoError(t, err)
	defer sess.End(true)

	server := broker.nextServer(t)
	serverHandshake(t, server, 4, false)
	waitFor(t, sess.Connected)

	result := &ackResult{}
	sess.Publish("x/y", []byte("z"), wire.QoS0, false, result.callback)

	pub := serverReadPacket(t, server, 4)
	require.Equal(t, wire.PublishType, pub.Type)
	assert.Zero(t, pub.Publish.PacketIdentifier)

	waitFor(t, result.isDone)
	assert.NoError(t, result.err)
}

// TestSessionQoS2ReconnectReplay drops the connection after the broker has
// seen the PUBLISH but before it acks, then verifies the redelivered copy
// carries Dup and the same packet id, and that the original callback still
// fires once the QoS2 handshake eventually completes.
func TestSessionQoS2ReconnectReplay(t *testing.T) {
	broker := newFakeBroker()
	sess, err := NewSession(broker.Builder(), WithProtocolVersion(4), WithReconnectPeriod(20*time.Millisecond))
	require.NoError(t, err)
	defer sess.End(true)

	server1 := broker.nextServer(t)
	serverHandshake(t, server1, 4, false)
	waitFor(t, sess.Connected)

	result := &ackResult{}
	sess.Publish("a/b", []byte("payload"), wire.QoS2, false, result.callback)

	firstPub := serverReadPacket(t, server1, 4)
	require.Equal(t, wire.PublishType, firstPub.Type)
	id := firstPub.Publish.PacketIdentifier
	require.NotZero(t, id)

	server1.Close()
	waitFor(t, func() bool { return !sess.Connected() })

	server2 := broker.nextServer(t)
	serverHandshake(t, server2, 4, true)
	waitFor(t, sess.Connected)

	replayed := serverReadPacket(t, server2, 4)
	require.Equal(t, wire.PublishType, replayed.Type)
	assert.Equal(t, id, replayed.Publish.PacketIdentifier)
	assert.True(t, replayed.Publish.Dup)
	assert.Equal(t, "a/b", replayed.Publish.TopicName)

	serverWritePacket(t, server2, wire.Packet{Type: wire.Pubrec, Pubrec: &wire.Ack{PacketIdentifier: id}}, 4)

	pubrel := serverReadPacket(t, server2, 4)
	require.Equal(t, wire.Pubrel, pubrel.Type)
	assert.Equal(t, id, pubrel.Pubrel.PacketIdentifier)

	serverWritePacket(t, server2, wire.Packet{Type: wire.Pubcomp, Pubcomp: &wire.Ack{PacketIdentifier: id}}, 4)

	waitFor(t, result.isDone)
	assert.NoError(t, result.err)
}

func TestSessionSubscribeSuccess(t *testing.T) {
	broker := newFakeBroker()
	sess, err := NewSession(broker.Builder(), WithProtocolVersion(4), WithReconnectPeriod(20*time.Millisecond))
	require.NoError(t, err)
	defer sess.End(true)

	server := broker.nextServer(t)
	serverHandshake(t, server, 4, false)
	waitFor(t, sess.Connected)

	result := &ackResult{}
	sess.Subscribe("a/b", wire.QoS1, result.callback)

	sub := serverReadPacket(t, server, 4)
	require.Equal(t, wire.SubscribeType, sub.Type)
	require.Len(t, sub.Subscribe.Filters, 1)
	assert.Equal(t, "a/b", sub.Subscribe.Filters[0].TopicFilter)
	id := sub.Subscribe.PacketIdentifier

	serverWritePacket(t, server, wire.Packet{
		Type: wire.SubackType,
		Suback: &wire.Suback{PacketIdentifier: id, ReturnCodes: []wire.QoS{wire.QoS1}},
	}, 4)

	waitFor(t, result.isDone)
	assert.NoError(t, result.err)
	waitFor(t, func() bool { return sess.m.resub.AlreadyAtOrAboveQoS("a/b", wire.QoS1) })
}

func TestSessionSubscribeFailureDropsFromResubscribeTable(t *testing.T) {
	broker := newFakeBroker()
	sess, err := NewSession(broker.Builder(), WithProtocolVersion(4), WithReconnectPeriod(20*time.Millisecond))
	require.NoError(t, err)
	defer sess.End(true)

	server := broker.nextServer(t)
	serverHandshake(t, server, 4, false)
	waitFor(t, sess.Connected)

	result := &ackResult{}
	sess.Subscribe("denied/topic", wire.QoS1, result.callback)

	sub := serverReadPacket(t, server, 4)
	id := sub.Subscribe.PacketIdentifier

	serverWritePacket(t, server, wire.Packet{
		Type: wire.SubackType,
		Suback: &wire.Suback{PacketIdentifier: id, ReturnCodes: []wire.QoS{wire.SubscribeFailure}},
	}, 4)

	waitFor(t, result.isDone)
	assert.NoError(t, result.err)
	assert.False(t, sess.m.resub.AlreadyAtOrAboveQoS("denied/topic", wire.QoS1))
}

func TestSessionTopicAliasV5RoundTrip(t *testing.T) {
	broker := newFakeBroker()
	sess, err := NewSession(broker.Builder(),
		WithProtocolVersion(5),
		WithReconnectPeriod(20*time.Millisecond),
		WithTopicAliasMaximum(10),
		WithAutoAssignTopicAlias(true),
		WithAutoUseTopicAlias(true),
	)
	require.NoError(t, err)
	defer sess.End(true)

	server := broker.nextServer(t)
	max := uint16(10)
	connack := wire.Packet{Type: wire.ConnackType, Connack: &wire.Connack{
		ReasonCode: wire.Success,
		Properties: &wire.Properties{TopicAliasMaximum: &max},
	}}
	connect := serverReadPacket(t, server, 5)
	require.Equal(t, wire.ConnectType, connect.Type)
	serverWritePacket(t, server, connack, 5)
	waitFor(t, sess.Connected)

	first := &ackResult{}
	sess.Publish("alias/topic", []byte("1"), wire.QoS1, false, first.callback)
	pub1 := serverReadPacket(t, server, 5)
	assert.Equal(t, "alias/topic", pub1.Publish.TopicName)
	serverWritePacket(t, server, wire.Packet{Type: wire.Puback, Puback: &wire.Ack{PacketIdentifier: pub1.Publish.PacketIdentifier}}, 5)
	waitFor(t, first.isDone)

	second := &ackResult{}
	sess.Publish("alias/topic", []byte("2"), wire.QoS1, false, second.callback)
	pub2 := serverReadPacket(t, server, 5)
	assert.Equal(t, "", pub2.Publish.TopicName)
	require.NotNil(t, pub2.Publish.Properties)
	require.NotNil(t, pub2.Publish.Properties.TopicAlias)
	assert.NotZero(t, *pub2.Publish.Properties.TopicAlias)
	serverWritePacket(t, server, wire.Packet{Type: wire.Puback, Puback: &wire.Ack{PacketIdentifier: pub2.Publish.PacketIdentifier}}, 5)
	waitFor(t, second.isDone)
}

func TestSessionKeepaliveTimeoutGoesOffline(t *testing.T) {
	broker := newFakeBroker()
	sess, err := NewSession(broker.Builder(),
		WithProtocolVersion(4),
		WithKeepalive(30*time.Millisecond),
		WithReconnectPeriod(20*time.Millisecond),
	)
	require.NoError(t, err)
	defer sess.End(true)

	server := broker.nextServer(t)
	serverHandshake(t, server, 4, false)
	waitFor(t, sess.Connected)

	ping := serverReadPacket(t, server, 4)
	require.Equal(t, wire.Pingreq, ping.Type)
	// Never answer with PINGRESP: the next keepalive tick must detect the
	// outstanding ping and tear the connection down.
	waitFor(t, func() bool { return !sess.Connected() })
}

func TestSessionOversizedInboundV5Rejected(t *testing.T) {
	broker := newFakeBroker()
	maxSize := uint32(16)
	sess, err := NewSession(broker.Builder(),
		WithProtocolVersion(5),
		WithReconnectPeriod(20*time.Millisecond),
		WithProperties(&wire.Properties{MaximumPacketSize: &maxSize}),
	)
	require.NoError(t, err)
	defer sess.End(true)

	server := broker.nextServer(t)
	connect := serverReadPacket(t, server, 5)
	require.Equal(t, wire.ConnectType, connect.Type)
	serverWritePacket(t, server, wire.Packet{Type: wire.ConnackType, Connack: &wire.Connack{ReasonCode: wire.Success}}, 5)
	waitFor(t, sess.Connected)

	oversized := make([]byte, 64)
	serverWritePacket(t, server, wire.Packet{
		Type:    wire.PublishType,
		Publish: &wire.Publish{TopicName: "big/topic", QoS: wire.QoS0},
		Payload: oversized,
	}, 5)

	disconnect := serverReadPacket(t, server, 5)
	require.Equal(t, wire.Disconnect, disconnect.Type)
	require.NotNil(t, disconnect.Disconnect)
	assert.Equal(t, wire.PacketTooLarge, disconnect.Disconnect.ReasonCode)
}
