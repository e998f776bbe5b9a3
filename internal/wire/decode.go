package wire

import (
	"errors"
	"io"
)

// DecodePacket reads one full packet (fixed header, variable header and
// payload) from r. version governs whether property lists are expected.
// Adapted from rxtx.go's ReadNextPacket dispatch switch and
// decoder_lowmem.go's per-type decoders, generalized to return a Packet
// value instead of invoking per-type callbacks — session.WireIO owns
// dispatch in this module.
func DecodePacket(r io.Reader, version int) (Packet, error) {
	h, _, err := DecodeHeader(r)
	if err != nil {
		return Packet{}, err
	}
	lr := io.LimitReader(r, int64(h.RemainingLength))
	switch h.Type {
	case ConnectType:
		c, err := decodeConnect(lr, version)
		return Packet{Type: ConnectType, Connect: c}, err
	case ConnackType:
		c, err := decodeConnack(lr, version)
		return Packet{Type: ConnackType, Connack: c}, err
	case PublishType:
		p, payload, err := decodePublish(lr, h, version)
		return Packet{Type: PublishType, Publish: p, Payload: payload}, err
	case Puback:
		a, err := decodeAck(lr, h.RemainingLength, version)
		return Packet{Type: Puback, Puback: a}, err
	case Pubrec:
		a, err := decodeAck(lr, h.RemainingLength, version)
		return Packet{Type: Pubrec, Pubrec: a}, err
	case Pubrel:
		a, err := decodeAck(lr, h.RemainingLength, version)
		return Packet{Type: Pubrel, Pubrel: a}, err
	case Pubcomp:
		a, err := decodeAck(lr, h.RemainingLength, version)
		return Packet{Type: Pubcomp, Pubcomp: a}, err
	case SubscribeType:
		s, err := decodeSubscribe(lr, h.RemainingLength, version)
		return Packet{Type: SubscribeType, Subscribe: s}, err
	case SubackType:
		s, err := decodeSuback(lr, h.RemainingLength, version)
		return Packet{Type: SubackType, Suback: s}, err
	case UnsubscribeType:
		u, err := decodeUnsubscribe(lr, h.RemainingLength, version)
		return Packet{Type: UnsubscribeType, Unsubscribe: u}, err
	case UnsubackType:
		u, err := decodeUnsuback(lr, h.RemainingLength, version)
		return Packet{Type: UnsubackType, Unsuback: u}, err
	case Pingreq:
		return Packet{Type: Pingreq}, nil
	case Pingresp:
		return Packet{Type: Pingresp}, nil
	case Disconnect:
		a, err := decodeDisconnect(lr, h.RemainingLength, version)
		return Packet{Type: Disconnect, Disconnect: a}, err
	case Auth:
		a, err := decodeAuth(lr, version)
		return Packet{Type: Auth, Auth: a}, err
	default:
		return Packet{}, errors.New("wire: cannot decode unknown packet type")
	}
}

func decodeConnect(r io.Reader, version int) (*Connect, error) {
	var c Connect
	var err error
	c.ProtocolName, _, err = decodeString(r)
	if err != nil {
		return nil, err
	}
	c.ProtocolLevel, err = decodeByte(r)
	if err != nil {
		return nil, err
	}
	flags, err := decodeByte(r)
	if err != nil {
		return nil, err
	}
	if flags&1 != 0 {
		return nil, errors.New("wire: reserved bit set in CONNECT flags")
	}
	hasUser := flags&(1<<7) != 0
	hasPass := flags&(1<<6) != 0
	c.WillRetain = flags&(1<<5) != 0
	c.WillQoS = QoS(flags>>3) & 0b11
	willFlag := flags&(1<<2) != 0
	c.CleanSession = flags&(1<<1) != 0
	if hasPass && !hasUser {
		return nil, errors.New("wire: username flag must be set to use password flag")
	}
	c.KeepAlive, _, err = decodeUint16(r)
	if err != nil {
		return nil, err
	}
	if version >= 5 {
		c.Properties, _, err = DecodeProperties(r)
		if err != nil {
			return nil, err
		}
	}
	c.ClientID, _, err = decodeString(r)
	if err != nil {
		return nil, err
	}
	if willFlag {
		if version >= 5 {
			c.WillProperties, _, err = DecodeProperties(r)
			if err != nil {
				return nil, err
			}
		}
		c.WillTopic, _, err = decodeString(r)
		if err != nil {
			return nil, err
		}
		c.WillMessage, _, err = decodeBinary(r)
		if err != nil {
			return nil, err
		}
	}
	if hasUser {
		c.Username, _, err = decodeString(r)
		if err != nil {
			return nil, err
		}
		if hasPass {
			c.Password, _, err = decodeBinary(r)
			if err != nil {
				return nil, err
			}
		}
	}
	return &c, nil
}

func decodeConnack(r io.Reader, version int) (*Connack, error) {
	ackFlags, err := decodeByte(r)
	if err != nil {
		return nil, err
	}
	if ackFlags&^1 != 0 {
		return nil, errors.New("wire: malformed CONNACK ack flags")
	}
	rc, err := decodeByte(r)
	if err != nil {
		return nil, err
	}
	c := &Connack{SessionPresent: ackFlags&1 != 0, ReasonCode: ReasonCode(rc)}
	if version >= 5 {
		c.Properties, _, err = DecodeProperties(r)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

func decodePublish(r io.Reader, h Header, version int) (*Publish, []byte, error) {
	qos := h.PubFlags.QoS()
	if !qos.IsValid() {
		return nil, nil, errors.New("wire: invalid PUBLISH QoS")
	}
	if h.PubFlags.Dup() && qos == QoS0 {
		return nil, nil, errors.New("wire: DUP must be 0 for QoS0 [MQTT-3.3.1-2]")
	}
	topic, n, err := decodeString(r)
	if err != nil {
		return nil, nil, err
	}
	p := &Publish{TopicName: topic, QoS: qos, Dup: h.PubFlags.Dup(), Retain: h.PubFlags.Retain()}
	consumed := n
	if qos != QoS0 {
		pi, ngot, err := decodeUint16(r)
		consumed += ngot
		if err != nil {
			return nil, nil, err
		}
		if pi == 0 {
			return nil, nil, ErrZeroPacketIdentifier
		}
		p.PacketIdentifier = pi
	}
	if version >= 5 {
		props, ngot, err := DecodeProperties(r)
		consumed += ngot
		if err != nil {
			return nil, nil, err
		}
		p.Properties = props
	}
	remaining := int64(h.RemainingLength) - int64(consumed)
	if remaining < 0 {
		return nil, nil, errors.New("wire: PUBLISH variable header overran remaining length")
	}
	payload := make([]byte, remaining)
	if remaining > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, err
		}
	}
	return p, payload, nil
}

func decodeAck(r io.Reader, remainingLen uint32, version int) (*Ack, error) {
	pi, n, err := decodeUint16(r)
	if err != nil {
		return nil, err
	}
	if pi == 0 {
		return nil, ErrZeroPacketIdentifier
	}
	a := &Ack{PacketIdentifier: pi}
	if version >= 5 && remainingLen > uint32(n) {
		rc, err := decodeByte(r)
		if err != nil {
			return nil, err
		}
		a.ReasonCode = ReasonCode(rc)
		a.Properties, _, err = DecodeProperties(r)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func decodeSubscribe(r io.Reader, remainingLen uint32, version int) (*Subscribe, error) {
	var s Subscribe
	var err error
	var n int
	s.PacketIdentifier, n, err = decodeUint16(r)
	if err != nil {
		return nil, err
	}
	consumed := n
	if version >= 5 {
		var ngot int
		s.Properties, ngot, err = DecodeProperties(r)
		consumed += ngot
		if err != nil {
			return nil, err
		}
	}
	for consumed < int(remainingLen) {
		topic, ngot, err := decodeString(r)
		consumed += ngot
		if err != nil {
			return nil, err
		}
		opts, err := decodeByte(r)
		consumed++
		if err != nil {
			return nil, err
		}
		req := SubscribeRequest{TopicFilter: topic, QoS: QoS(opts & 0b11)}
		if version >= 5 {
			req.NoLocal = opts&(1<<2) != 0
			req.RetainAsPublished = opts&(1<<3) != 0
			req.RetainHandling = (opts >> 4) & 0b11
		}
		s.Filters = append(s.Filters, req)
	}
	if len(s.Filters) == 0 {
		return nil, errors.New("wire: SUBSCRIBE with no topic filters")
	}
	return &s, nil
}

func decodeSuback(r io.Reader, remainingLen uint32, version int) (*Suback, error) {
	var s Suback
	var err error
	var n int
	s.PacketIdentifier, n, err = decodeUint16(r)
	if err != nil {
		return nil, err
	}
	consumed := n
	if version >= 5 {
		var ngot int
		s.Properties, ngot, err = DecodeProperties(r)
		consumed += ngot
		if err != nil {
			return nil, err
		}
	}
	for consumed < int(remainingLen) {
		b, err := decodeByte(r)
		consumed++
		if err != nil {
			return nil, err
		}
		s.ReturnCodes = append(s.ReturnCodes, QoS(b))
	}
	return &s, nil
}

func decodeUnsubscribe(r io.Reader, remainingLen uint32, version int) (*Unsubscribe, error) {
	var u Unsubscribe
	var err error
	var n int
	u.PacketIdentifier, n, err = decodeUint16(r)
	if err != nil {
		return nil, err
	}
	consumed := n
	if version >= 5 {
		var ngot int
		u.Properties, ngot, err = DecodeProperties(r)
		consumed += ngot
		if err != nil {
			return nil, err
		}
	}
	for consumed < int(remainingLen) {
		topic, ngot, err := decodeString(r)
		consumed += ngot
		if err != nil {
			return nil, err
		}
		u.Topics = append(u.Topics, topic)
	}
	if len(u.Topics) == 0 {
		return nil, errors.New("wire: UNSUBSCRIBE with no topics")
	}
	return &u, nil
}

func decodeUnsuback(r io.Reader, remainingLen uint32, version int) (*Unsuback, error) {
	var u Unsuback
	var err error
	var n int
	u.PacketIdentifier, n, err = decodeUint16(r)
	if err != nil {
		return nil, err
	}
	consumed := n
	if version >= 5 {
		var ngot int
		u.Properties, ngot, err = DecodeProperties(r)
		consumed += ngot
		if err != nil {
			return nil, err
		}
		for consumed < int(remainingLen) {
			b, err := decodeByte(r)
			consumed++
			if err != nil {
				return nil, err
			}
			u.ReasonCodes = append(u.ReasonCodes, ReasonCode(b))
		}
	}
	return &u, nil
}

func decodeDisconnect(r io.Reader, remainingLen uint32, version int) (*Ack, error) {
	if version < 5 || remainingLen == 0 {
		return &Ack{}, nil
	}
	rc, err := decodeByte(r)
	if err != nil {
		return nil, err
	}
	a := &Ack{ReasonCode: ReasonCode(rc)}
	if remainingLen > 1 {
		a.Properties, _, err = DecodeProperties(r)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func decodeAuth(r io.Reader, version int) (*Ack, error) {
	if version < 5 {
		return nil, errors.New("wire: AUTH is a v5-only packet")
	}
	rc, err := decodeByte(r)
	if err != nil {
		return nil, err
	}
	a := &Ack{ReasonCode: ReasonCode(rc)}
	a.Properties, _, err = DecodeProperties(r)
	if err != nil {
		return nil, err
	}
	return a, nil
}
