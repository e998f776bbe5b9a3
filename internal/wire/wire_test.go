package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundtrip(t *testing.T, p Packet, version int) Packet {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, EncodePacket(&buf, p, version))
	got, err := DecodePacket(&buf, version)
	require.NoError(t, err)
	return got
}

func TestHeaderRoundtrip(t *testing.T) {
	for _, h := range []Header{
		{Type: ConnectType, RemainingLength: 0},
		{Type: PublishType, PubFlags: Flags(0b1011), RemainingLength: 300},
		{Type: SubscribeType, RemainingLength: 2097151},
	} {
		var buf bytes.Buffer
		_, err := h.Encode(&buf)
		require.NoError(t, err)
		got, _, err := DecodeHeader(&buf)
		require.NoError(t, err)
		assert.Equal(t, h.Type, got.Type)
		assert.Equal(t, h.RemainingLength, got.RemainingLength)
	}
}

func TestDecodeHeaderRejectsReservedType(t *testing.T) {
	_, _, err := DecodeHeader(bytes.NewReader([]byte{0x00, 0x00}))
	assert.Error(t, err)
}

func TestRemainingLengthEncodeDecode(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, maxRemainingLengthValue}
	for _, c := range cases {
		var buf [4]byte
		n := encodeRemainingLength(c, buf[:])
		got, ngot, err := decodeRemainingLength(bytes.NewReader(buf[:n]))
		require.NoError(t, err)
		assert.Equal(t, c, got)
		assert.Equal(t, n, ngot)
	}
}

func TestConnectRoundtripV311(t *testing.T) {
	p := Packet{Type: ConnectType, Connect: &Connect{
		ClientID:      "client-1",
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		CleanSession:  true,
		KeepAlive:     60,
		Username:      "alice",
		Password:      []byte("secret"),
		WillTopic:     "status/client-1",
		WillMessage:   []byte("offline"),
		WillQoS:       QoS1,
		WillRetain:    true,
	}}
	got := roundtrip(t, p, 4)
	require.NotNil(t, got.Connect)
	assert.Equal(t, p.Connect.ClientID, got.Connect.ClientID)
	assert.Equal(t, p.Connect.Username, got.Connect.Username)
	assert.Equal(t, p.Connect.Password, got.Connect.Password)
	assert.Equal(t, p.Connect.WillTopic, got.Connect.WillTopic)
	assert.Equal(t, p.Connect.WillQoS, got.Connect.WillQoS)
	assert.True(t, got.Connect.WillRetain)
	assert.True(t, got.Connect.CleanSession)
}

func TestConnectRoundtripV5Properties(t *testing.T) {
	p := Packet{Type: ConnectType, Connect: &Connect{
		ClientID:      "client-5",
		ProtocolLevel: 5,
		KeepAlive:     30,
		Properties: &Properties{
			SessionExpiryInterval: u32p(3600),
			ReceiveMaximum:        u16p(20),
			User:                  []UserProperty{{Key: "build", Value: "42"}},
		},
	}}
	got := roundtrip(t, p, 5)
	require.NotNil(t, got.Connect.Properties)
	require.NotNil(t, got.Connect.Properties.SessionExpiryInterval)
	assert.EqualValues(t, 3600, *got.Connect.Properties.SessionExpiryInterval)
	require.Len(t, got.Connect.Properties.User, 1)
	assert.Equal(t, "build", got.Connect.Properties.User[0].Key)
}

func TestConnackRoundtrip(t *testing.T) {
	p := Packet{Type: ConnackType, Connack: &Connack{SessionPresent: true, ReasonCode: Success}}
	got := roundtrip(t, p, 4)
	assert.True(t, got.Connack.SessionPresent)
	assert.Equal(t, Success, got.Connack.ReasonCode)
}

func TestPublishRoundtripQoS0(t *testing.T) {
	p := Packet{Type: PublishType, Publish: &Publish{TopicName: "a/b", QoS: QoS0}, Payload: []byte("hello")}
	got := roundtrip(t, p, 4)
	assert.Equal(t, "a/b", got.Publish.TopicName)
	assert.Equal(t, QoS0, got.Publish.QoS)
	assert.Equal(t, []byte("hello"), got.Payload)
	assert.Zero(t, got.Publish.PacketIdentifier)
}

func TestPublishRoundtripQoS2WithProperties(t *testing.T) {
	p := Packet{Type: PublishType, Publish: &Publish{
		TopicName:        "a/b/c",
		PacketIdentifier: 99,
		QoS:              QoS2,
		Dup:              true,
		Retain:           true,
		Properties:       &Properties{TopicAlias: u16p(7)},
	}, Payload: []byte{1, 2, 3}}
	got := roundtrip(t, p, 5)
	assert.Equal(t, uint16(99), got.Publish.PacketIdentifier)
	assert.Equal(t, QoS2, got.Publish.QoS)
	assert.True(t, got.Publish.Dup)
	assert.True(t, got.Publish.Retain)
	require.NotNil(t, got.Publish.Properties.TopicAlias)
	assert.EqualValues(t, 7, *got.Publish.Properties.TopicAlias)
	assert.Equal(t, []byte{1, 2, 3}, got.Payload)
}

func TestPublishRejectsDupOnQoS0(t *testing.T) {
	_, err := NewPublishFlags(QoS0, true, false)
	assert.Error(t, err)
}

func TestPublishRejectsZeroPacketIdentifierOnQoS1(t *testing.T) {
	p := Packet{Type: PublishType, Publish: &Publish{TopicName: "a", QoS: QoS1, PacketIdentifier: 0}}
	var buf bytes.Buffer
	err := EncodePacket(&buf, p, 4)
	assert.ErrorIs(t, err, ErrZeroPacketIdentifier)
}

func TestAckRoundtripV311(t *testing.T) {
	for _, typ := range []PacketType{Puback, Pubrec, Pubrel, Pubcomp} {
		p := Packet{Type: typ}
		switch typ {
		case Puback:
			p.Puback = &Ack{PacketIdentifier: 5}
		case Pubrec:
			p.Pubrec = &Ack{PacketIdentifier: 5}
		case Pubrel:
			p.Pubrel = &Ack{PacketIdentifier: 5}
		case Pubcomp:
			p.Pubcomp = &Ack{PacketIdentifier: 5}
		}
		got := roundtrip(t, p, 4)
		assert.Equal(t, uint16(5), got.PacketIdentifier())
	}
}

func TestAckRoundtripV5WithReasonCode(t *testing.T) {
	p := Packet{Type: Puback, Puback: &Ack{PacketIdentifier: 11, ReasonCode: NoMatchingSubscribers}}
	got := roundtrip(t, p, 5)
	assert.Equal(t, NoMatchingSubscribers, got.Puback.ReasonCode)
}

func TestSubscribeRoundtrip(t *testing.T) {
	p := Packet{Type: SubscribeType, Subscribe: &Subscribe{
		PacketIdentifier: 3,
		Filters: []SubscribeRequest{
			{TopicFilter: "a/+", QoS: QoS1},
			{TopicFilter: "b/#", QoS: QoS2, NoLocal: true},
		},
	}}
	got := roundtrip(t, p, 5)
	require.Len(t, got.Subscribe.Filters, 2)
	assert.Equal(t, "a/+", got.Subscribe.Filters[0].TopicFilter)
	assert.Equal(t, QoS1, got.Subscribe.Filters[0].QoS)
	assert.True(t, got.Subscribe.Filters[1].NoLocal)
}

func TestSubscribeRejectsEmptyFilterList(t *testing.T) {
	p := Packet{Type: SubscribeType, Subscribe: &Subscribe{PacketIdentifier: 1}}
	var buf bytes.Buffer
	err := EncodePacket(&buf, p, 4)
	assert.Error(t, err)
}

func TestSubackRoundtrip(t *testing.T) {
	p := Packet{Type: SubackType, Suback: &Suback{
		PacketIdentifier: 3,
		ReturnCodes:      []QoS{QoS1, QoS2, SubscribeFailure},
	}}
	got := roundtrip(t, p, 4)
	require.Len(t, got.Suback.ReturnCodes, 3)
	assert.Equal(t, SubscribeFailure, got.Suback.ReturnCodes[2])
}

func TestUnsubscribeUnsubackRoundtrip(t *testing.T) {
	up := Packet{Type: UnsubscribeType, Unsubscribe: &Unsubscribe{PacketIdentifier: 8, Topics: []string{"a/b", "c/d"}}}
	gotUp := roundtrip(t, up, 4)
	assert.Equal(t, []string{"a/b", "c/d"}, gotUp.Unsubscribe.Topics)

	ua := Packet{Type: UnsubackType, Unsuback: &Unsuback{PacketIdentifier: 8, ReasonCodes: []ReasonCode{Success, NoSubscriptionExisted}}}
	gotUa := roundtrip(t, ua, 5)
	assert.Equal(t, []ReasonCode{Success, NoSubscriptionExisted}, gotUa.Unsuback.ReasonCodes)
}

func TestPingAndDisconnectRoundtrip(t *testing.T) {
	got := roundtrip(t, Packet{Type: Pingreq}, 4)
	assert.Equal(t, Pingreq, got.Type)

	got = roundtrip(t, Packet{Type: Pingresp}, 4)
	assert.Equal(t, Pingresp, got.Type)

	got = roundtrip(t, Packet{Type: Disconnect, Disconnect: &Ack{}}, 4)
	assert.Equal(t, Disconnect, got.Type)

	got = roundtrip(t, Packet{Type: Disconnect, Disconnect: &Ack{ReasonCode: SessionTakenOver}}, 5)
	assert.Equal(t, SessionTakenOver, got.Disconnect.ReasonCode)
}

func TestAuthRejectedBelowV5(t *testing.T) {
	var buf bytes.Buffer
	err := EncodePacket(&buf, Packet{Type: Auth, Auth: &Ack{}}, 4)
	assert.Error(t, err)
}

func TestPropertiesSizeMatchesEncodedBody(t *testing.T) {
	p := &Properties{
		ContentType:    "application/json",
		ReceiveMaximum: u16p(10),
		User:           []UserProperty{{Key: "a", Value: "b"}},
	}
	var buf bytes.Buffer
	require.NoError(t, p.encodeBody(&buf))
	assert.Equal(t, p.Size(), buf.Len())
}

func TestReasonCodeStringsDifferByVersion(t *testing.T) {
	rc := ReasonCode(0x04)
	assert.NotEqual(t, rc.StringForVersion(4), rc.StringForVersion(5))
}

func TestDecodePropertiesRejectsUnknownPropertyIdentifier(t *testing.T) {
	var buf bytes.Buffer
	_, err := encodeByte(&buf, 2) // length prefix: 2 bytes
	require.NoError(t, err)
	_, err = encodeByte(&buf, 0xF0) // unknown identifier
	require.NoError(t, err)
	_, err = encodeByte(&buf, 0x00)
	require.NoError(t, err)
	_, _, err = DecodeProperties(&buf)
	assert.Error(t, err)
}
