package mqtt

import (
	"io"

	"github.com/go-mqtt/session/internal/wire"
)

// Codec is the thin interface WireIO drives to turn packets into bytes
// and back. The default adapter below is implemented on top of
// internal/wire, itself grounded on the packet codec in
// encode.go/decoder_lowmem.go, generalized to v5 properties.
type Codec interface {
	WriteToStream(w io.Writer, p wire.Packet, version int) error
	Parse(r io.Reader, version int) (wire.Packet, error)
}

type defaultCodec struct{}

func (defaultCodec) WriteToStream(w io.Writer, p wire.Packet, version int) error {
	return wire.EncodePacket(w, p, version)
}

func (defaultCodec) Parse(r io.Reader, version int) (wire.Packet, error) {
	return wire.DecodePacket(r, version)
}

// DefaultCodec returns the built-in Codec adapter.
func DefaultCodec() Codec { return defaultCodec{} }
