package store

import (
	"bytes"

	"github.com/go-mqtt/session/internal/wire"
)

// serializationVersion is fixed at 5 regardless of the session's
// negotiated protocol version: it only needs to round-trip through
// encode/decode for persistence, never travel on the wire, so the
// superset v5 framing (which always carries a property-list length
// prefix) is always used.
const serializationVersion = 5

func marshalPacket(p wire.Packet) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.EncodePacket(&buf, p, serializationVersion); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalPacket(b []byte) (wire.Packet, error) {
	return wire.DecodePacket(bytes.NewReader(b), serializationVersion)
}
