package mqtt

import (
	"github.com/go-mqtt/session/internal/wire"
)

// buildConnect maps an Options record directly onto a CONNECT packet,
// in place of a prototype-inheritance trick — Options is a plain
// configuration record read once per connect attempt.
func buildConnect(o Options, topicAliasRecvMax uint16) wire.Packet {
	c := &wire.Connect{
		ClientID:      o.ClientID,
		ProtocolName:  "MQTT",
		ProtocolLevel: protocolLevelByte(o.ProtocolVersion),
		Username:      o.Username,
		Password:      o.Password,
		WillTopic:     o.WillTopic,
		WillMessage:   o.WillMessage,
		WillQoS:       o.WillQoS,
		WillRetain:    o.WillRetain,
		CleanSession:  o.Clean,
		KeepAlive:     uint16(o.Keepalive.Seconds()),
	}
	if o.ProtocolVersion >= 5 {
		props := cloneProperties(o.Properties)
		if topicAliasRecvMax > 0 {
			v := topicAliasRecvMax
			props.TopicAliasMaximum = &v
		}
		c.Properties = props
	}
	return wire.Packet{Type: wire.ConnectType, Connect: c}
}

func protocolLevelByte(version int) byte {
	if version >= 5 {
		return 5
	}
	return 4
}

func cloneProperties(p *wire.Properties) *wire.Properties {
	if p == nil {
		return &wire.Properties{}
	}
	clone := *p
	return &clone
}

func buildAckPacket(t wire.PacketType, id uint16, rc wire.ReasonCode) wire.Packet {
	p := wire.Packet{Type: t}
	ack := &wire.Ack{PacketIdentifier: id, ReasonCode: rc}
	switch t {
	case wire.Puback:
		p.Puback = ack
	case wire.Pubrec:
		p.Pubrec = ack
	case wire.Pubrel:
		p.Pubrel = ack
	case wire.Pubcomp:
		p.Pubcomp = ack
	}
	return p
}
