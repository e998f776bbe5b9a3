package wire

import (
	"errors"
	"io"
)

// Encode writes the fixed header to w. Adapted from Header.Encode/Put
// (encode.go), generalized to the named Header type.
func (h Header) Encode(w io.Writer) (int, error) {
	if h.RemainingLength > maxRemainingLengthValue {
		return 0, errors.New("wire: remaining length too large")
	}
	var buf [5]byte
	buf[0] = h.firstByte()
	n := 1 + encodeRemainingLength(h.RemainingLength, buf[1:])
	return writeFull(w, buf[:n])
}

// DecodeHeader reads and validates a fixed header from r. Adapted from
// decode.go's DecodeHeader, generalized to the v5 reserved packet type 15
// (AUTH) and returning the named Header/PacketType/Flags types.
func DecodeHeader(r io.Reader) (Header, int, error) {
	first, err := decodeByte(r)
	if err != nil {
		return Header{}, 0, err
	}
	n := 1
	rlen, ngot, err := decodeRemainingLength(r)
	n += ngot
	if err != nil {
		return Header{}, n, err
	}
	pt := PacketType(first >> 4)
	if pt == 0 {
		return Header{}, n, errors.New("wire: reserved packet type 0")
	}
	flags := Flags(first & 0b1111)
	if pt != PublishType {
		if flags != fixedFlags(pt) {
			return Header{}, n, errors.New("wire: malformed reserved flags for " + pt.String())
		}
		flags = 0
	}
	return Header{Type: pt, PubFlags: flags, RemainingLength: rlen}, n, nil
}
