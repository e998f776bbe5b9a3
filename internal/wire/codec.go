package wire

import (
	"errors"
	"io"
)

// EncodePacket writes p's fixed header, variable header and payload to w.
// version is 3 or 4 for v3.1.1, 5 for v5.0; it governs whether properties
// are present on the wire at all. Adapted from encode.go, generalized
// from per-field writer calls into one entry point keyed on
// Packet.Type, with v5 property support added.
func EncodePacket(w io.Writer, p Packet, version int) error {
	switch p.Type {
	case ConnectType:
		return encodeConnectPacket(w, p.Connect, version)
	case ConnackType:
		return encodeConnackPacket(w, p.Connack, version)
	case PublishType:
		return encodePublishPacket(w, p.Publish, p.Payload, version)
	case Puback, Pubrec, Pubrel, Pubcomp:
		return encodeAckPacket(w, p.Type, ackFor(p), version)
	case SubscribeType:
		return encodeSubscribePacket(w, p.Subscribe, version)
	case SubackType:
		return encodeSubackPacket(w, p.Suback, version)
	case UnsubscribeType:
		return encodeUnsubscribePacket(w, p.Unsubscribe, version)
	case UnsubackType:
		return encodeUnsubackPacket(w, p.Unsuback, version)
	case Pingreq, Pingresp:
		h := Header{Type: p.Type, RemainingLength: 0}
		_, err := h.Encode(w)
		return err
	case Disconnect:
		return encodeDisconnectPacket(w, p.Disconnect, version)
	case Auth:
		return encodeAuthPacket(w, p.Auth, version)
	default:
		return errors.New("wire: cannot encode unknown packet type")
	}
}

func ackFor(p Packet) *Ack {
	switch p.Type {
	case Puback:
		return p.Puback
	case Pubrec:
		return p.Pubrec
	case Pubrel:
		return p.Pubrel
	case Pubcomp:
		return p.Pubcomp
	}
	return nil
}

func encodeConnectPacket(w io.Writer, c *Connect, version int) error {
	h := Header{Type: ConnectType, RemainingLength: uint32(c.size(version))}
	if _, err := h.Encode(w); err != nil {
		return err
	}
	proto := c.ProtocolName
	if proto == "" {
		proto = defaultProtocolName
	}
	if _, err := encodeString(w, proto); err != nil {
		return err
	}
	level := c.ProtocolLevel
	if level == 0 {
		level = protocolLevelFor(version)
	}
	if _, err := encodeByte(w, level); err != nil {
		return err
	}
	if _, err := encodeByte(w, c.flagsByte()); err != nil {
		return err
	}
	if _, err := encodeUint16(w, c.KeepAlive); err != nil {
		return err
	}
	if version >= 5 {
		if _, err := c.Properties.Encode(w); err != nil {
			return err
		}
	}
	if _, err := encodeString(w, c.ClientID); err != nil {
		return err
	}
	if c.willFlag() {
		if version >= 5 {
			if _, err := c.WillProperties.Encode(w); err != nil {
				return err
			}
		}
		if _, err := encodeString(w, c.WillTopic); err != nil {
			return err
		}
		if _, err := encodeBinary(w, c.WillMessage); err != nil {
			return err
		}
	}
	if c.Username != "" {
		if _, err := encodeString(w, c.Username); err != nil {
			return err
		}
		if len(c.Password) != 0 {
			if _, err := encodeBinary(w, c.Password); err != nil {
				return err
			}
		}
	}
	return nil
}

func protocolLevelFor(version int) byte {
	if version >= 5 {
		return 5
	}
	return 4
}

func encodeConnackPacket(w io.Writer, c *Connack, version int) error {
	h := Header{Type: ConnackType, RemainingLength: uint32(c.size(version))}
	if _, err := h.Encode(w); err != nil {
		return err
	}
	if _, err := encodeByte(w, b2u8(c.SessionPresent)); err != nil {
		return err
	}
	if _, err := encodeByte(w, byte(c.ReasonCode)); err != nil {
		return err
	}
	if version >= 5 {
		_, err := c.Properties.Encode(w)
		return err
	}
	return nil
}

func encodePublishPacket(w io.Writer, p *Publish, payload []byte, version int) error {
	if p.TopicName == "" && (p.Properties == nil || p.Properties.TopicAlias == nil) {
		return ErrEmptyTopic
	}
	if p.QoS != QoS0 && p.PacketIdentifier == 0 {
		return ErrZeroPacketIdentifier
	}
	flags, err := NewPublishFlags(p.QoS, p.Dup, p.Retain)
	if err != nil {
		return err
	}
	h := Header{Type: PublishType, PubFlags: flags, RemainingLength: uint32(p.size(version) + len(payload))}
	if _, err := h.Encode(w); err != nil {
		return err
	}
	if _, err := encodeString(w, p.TopicName); err != nil {
		return err
	}
	if p.QoS != QoS0 {
		if _, err := encodeUint16(w, p.PacketIdentifier); err != nil {
			return err
		}
	}
	if version >= 5 {
		if _, err := p.Properties.Encode(w); err != nil {
			return err
		}
	}
	_, err = writeFull(w, payload)
	return err
}

// encodeAckPacket writes an ack-shaped packet of type t. Per MQTT v5
// section 3.4.2.1/3.14.2.1, the reason code (and properties) may be
// omitted entirely when the code is Success and there are no properties
// — the v5 encoding here always includes them for determinism and
// simplicity.
func encodeAckPacket(w io.Writer, t PacketType, a *Ack, version int) error {
	if a.PacketIdentifier == 0 {
		return ErrZeroPacketIdentifier
	}
	includeReason := version >= 5
	h := Header{Type: t, RemainingLength: uint32(a.size(version, includeReason))}
	if _, err := h.Encode(w); err != nil {
		return err
	}
	if _, err := encodeUint16(w, a.PacketIdentifier); err != nil {
		return err
	}
	if includeReason {
		if _, err := encodeByte(w, byte(a.ReasonCode)); err != nil {
			return err
		}
		if _, err := a.Properties.Encode(w); err != nil {
			return err
		}
	}
	return nil
}

func encodeDisconnectPacket(w io.Writer, a *Ack, version int) error {
	if version < 5 {
		h := Header{Type: Disconnect, RemainingLength: 0}
		_, err := h.Encode(w)
		return err
	}
	if a == nil {
		a = &Ack{}
	}
	sz := 0
	if a.ReasonCode != 0 || a.Properties != nil {
		sz = 1 + propsWireSize(a.Properties)
	}
	h := Header{Type: Disconnect, RemainingLength: uint32(sz)}
	if _, err := h.Encode(w); err != nil {
		return err
	}
	if sz == 0 {
		return nil
	}
	if _, err := encodeByte(w, byte(a.ReasonCode)); err != nil {
		return err
	}
	_, err := a.Properties.Encode(w)
	return err
}

func encodeAuthPacket(w io.Writer, a *Ack, version int) error {
	if version < 5 {
		return errors.New("wire: AUTH is a v5-only packet")
	}
	sz := 1 + propsWireSize(a.Properties)
	h := Header{Type: Auth, RemainingLength: uint32(sz)}
	if _, err := h.Encode(w); err != nil {
		return err
	}
	if _, err := encodeByte(w, byte(a.ReasonCode)); err != nil {
		return err
	}
	_, err := a.Properties.Encode(w)
	return err
}

func encodeSubscribePacket(w io.Writer, s *Subscribe, version int) error {
	if len(s.Filters) == 0 {
		return errors.New("wire: SUBSCRIBE requires at least one topic filter")
	}
	if s.PacketIdentifier == 0 {
		return ErrZeroPacketIdentifier
	}
	h := Header{Type: SubscribeType, RemainingLength: uint32(s.size(version))}
	if _, err := h.Encode(w); err != nil {
		return err
	}
	if _, err := encodeUint16(w, s.PacketIdentifier); err != nil {
		return err
	}
	if version >= 5 {
		if _, err := s.Properties.Encode(w); err != nil {
			return err
		}
	}
	for _, f := range s.Filters {
		if _, err := encodeString(w, f.TopicFilter); err != nil {
			return err
		}
		opts := byte(f.QoS & 0b11)
		if version >= 5 {
			opts |= b2u8(f.NoLocal) << 2
			opts |= b2u8(f.RetainAsPublished) << 3
			opts |= (f.RetainHandling & 0b11) << 4
		}
		if _, err := encodeByte(w, opts); err != nil {
			return err
		}
	}
	return nil
}

func encodeSubackPacket(w io.Writer, s *Suback, version int) error {
	h := Header{Type: SubackType, RemainingLength: uint32(s.size(version))}
	if _, err := h.Encode(w); err != nil {
		return err
	}
	if _, err := encodeUint16(w, s.PacketIdentifier); err != nil {
		return err
	}
	if version >= 5 {
		if _, err := s.Properties.Encode(w); err != nil {
			return err
		}
	}
	for _, rc := range s.ReturnCodes {
		if _, err := encodeByte(w, byte(rc)); err != nil {
			return err
		}
	}
	return nil
}

func encodeUnsubscribePacket(w io.Writer, u *Unsubscribe, version int) error {
	if len(u.Topics) == 0 {
		return errors.New("wire: UNSUBSCRIBE requires at least one topic")
	}
	if u.PacketIdentifier == 0 {
		return ErrZeroPacketIdentifier
	}
	h := Header{Type: UnsubscribeType, RemainingLength: uint32(u.size(version))}
	if _, err := h.Encode(w); err != nil {
		return err
	}
	if _, err := encodeUint16(w, u.PacketIdentifier); err != nil {
		return err
	}
	if version >= 5 {
		if _, err := u.Properties.Encode(w); err != nil {
			return err
		}
	}
	for _, t := range u.Topics {
		if _, err := encodeString(w, t); err != nil {
			return err
		}
	}
	return nil
}

func encodeUnsubackPacket(w io.Writer, u *Unsuback, version int) error {
	h := Header{Type: UnsubackType, RemainingLength: uint32(u.size(version))}
	if _, err := h.Encode(w); err != nil {
		return err
	}
	if _, err := encodeUint16(w, u.PacketIdentifier); err != nil {
		return err
	}
	if version >= 5 {
		if _, err := u.Properties.Encode(w); err != nil {
			return err
		}
		for _, rc := range u.ReasonCodes {
			if _, err := encodeByte(w, byte(rc)); err != nil {
				return err
			}
		}
	}
	return nil
}
