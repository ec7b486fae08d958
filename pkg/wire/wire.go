// Package wire defines the codec contract shared by every ENIP/CIP wire
// type: little-endian fixed-width scalar helpers plus the
// encode/try-parse pair that higher layers build on.
package wire

import "encoding/binary"

// Order is the byte order used by every type on the wire. EtherNet/IP
// and CIP are little-endian end to end; this alias exists so call
// sites read as domain vocabulary rather than a raw binary.ByteOrder.
var Order = binary.LittleEndian

// PutU16 appends v to buf in wire byte order.
func PutU16(buf []byte, v uint16) []byte {
	return append(buf, byte(v), byte(v>>8))
}

// PutU32 appends v to buf in wire byte order.
func PutU32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// PutU64 appends v to buf in wire byte order.
func PutU64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

// U16 reads a little-endian u16 from the front of buf.
func U16(buf []byte) (uint16, error) {
	if len(buf) < 2 {
		return 0, NewIncomplete(2 - len(buf))
	}
	return Order.Uint16(buf), nil
}

// U32 reads a little-endian u32 from the front of buf.
func U32(buf []byte) (uint32, error) {
	if len(buf) < 4 {
		return 0, NewIncomplete(4 - len(buf))
	}
	return Order.Uint32(buf), nil
}

// U64 reads a little-endian u64 from the front of buf.
func U64(buf []byte) (uint64, error) {
	if len(buf) < 8 {
		return 0, NewIncomplete(8 - len(buf))
	}
	return Order.Uint64(buf), nil
}

// Encoder is the contract every wire type satisfies on the way out:
// serialize itself to bytes. There is no matching decoder interface —
// Go has no Self-returning method, so each package instead exposes a
// free function `TryParseX(buf []byte) (X, []byte, error)` following
// the same (value, remainder, error) shape documented here.
type Encoder interface {
	Encode() []byte
}
