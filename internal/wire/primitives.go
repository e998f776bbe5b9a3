package wire

import (
	"encoding/binary"
	"io"

	"github.com/go-mqtt/session/internal/bufconv"
)

// readFull is writeFull's decode-side counterpart, adapted from the
// teacher's decoder_lowmem.go readFull: tolerates a Read that returns
// io.EOF exactly when it also delivered the last requested byte.
func readFull(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	return n, err
}

func writeFull(w io.Writer, buf []byte) (int, error) {
	return w.Write(buf)
}

func decodeByte(r io.Reader) (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(r, b[:])
	return b[0], err
}

func encodeByte(w io.Writer, v byte) (int, error) {
	return w.Write([]byte{v})
}

func decodeUint16(r io.Reader) (uint16, int, error) {
	var b [2]byte
	n, err := readFull(r, b[:])
	if err != nil {
		return 0, n, err
	}
	return binary.BigEndian.Uint16(b[:]), n, nil
}

func encodeUint16(w io.Writer, v uint16) (int, error) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return writeFull(w, b[:])
}

func decodeUint32(r io.Reader) (uint32, int, error) {
	var b [4]byte
	n, err := readFull(r, b[:])
	if err != nil {
		return 0, n, err
	}
	return binary.BigEndian.Uint32(b[:]), n, nil
}

func encodeUint32(w io.Writer, v uint32) (int, error) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return writeFull(w, b[:])
}

// decodeString decodes a length-prefixed MQTT UTF-8 string.
func decodeString(r io.Reader) (string, int, error) {
	b, n, err := decodeBinary(r)
	if err != nil {
		return "", n, err
	}
	return bufconv.BytesToString(b), n, nil
}

func encodeString(w io.Writer, s string) (int, error) {
	return encodeBinary(w, []byte(s))
}

// decodeBinary decodes a length-prefixed MQTT byte string (the v5
// "Binary Data" field, also used to carry string payloads pre-v5).
func decodeBinary(r io.Reader) ([]byte, int, error) {
	length, n, err := decodeUint16(r)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	buf := make([]byte, length)
	ngot, err := readFull(r, buf)
	n += ngot
	if err != nil {
		return nil, n, err
	}
	return buf, n, nil
}

func encodeBinary(w io.Writer, b []byte) (n int, err error) {
	n, err = encodeUint16(w, uint16(len(b)))
	if err != nil {
		return n, err
	}
	if len(b) == 0 {
		return n, nil
	}
	ngot, err := writeFull(w, b)
	n += ngot
	return n, err
}

func stringSize(s string) int {
	return len(s) + 2
}

func binarySize(b []byte) int { return len(b) + 2 }

// decodeRemainingLength decodes the 1-4 byte variable-length-integer
// preceding a packet's variable header and payload.
func decodeRemainingLength(r io.Reader) (value uint32, n int, err error) {
	multiplier := uint32(1)
	for i := 0; i < maxRemainingLengthSize; i++ {
		b, err := decodeByte(r)
		if err != nil {
			return value, n, err
		}
		n++
		value += uint32(b&0x7f) * multiplier
		if b&0x80 == 0 {
			return value, n, nil
		}
		multiplier *= 128
	}
	return 0, n, ErrMalformedRemaining
}

func encodeRemainingLength(remlen uint32, b []byte) (n int) {
	if remlen < 128 {
		b[0] = byte(remlen)
		return 1
	}
	for n = 0; remlen > 0; n++ {
		encoded := byte(remlen % 128)
		remlen /= 128
		if remlen > 0 {
			encoded |= 0x80
		}
		b[n] = encoded
	}
	return n
}

// decodeVarint decodes a v5 "Variable Byte Integer" — used only within
// the property list, where it bounds the length of the properties
// section itself rather than the whole packet.
func decodeVarint(r io.Reader) (value uint32, n int, err error) {
	return decodeRemainingLength(r)
}

func encodeVarint(remlen uint32, b []byte) int {
	return encodeRemainingLength(remlen, b)
}

func varintSize(remlen uint32) int {
	switch {
	case remlen <= 0x7f:
		return 1
	case remlen <= 0x3fff:
		return 2
	case remlen <= 0x1fffff:
		return 3
	default:
		return 4
	}
}
