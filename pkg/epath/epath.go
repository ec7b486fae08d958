// Package epath implements CIP Electronic Path (EPATH) segments: the
// Logical and Port segment encodings and the ordered segment list that
// addresses a CIP object.
package epath

import (
	"github.com/openenip/goenip/pkg/wire"
)

// LogicalType is the 3-bit logical segment type (bits 4-2 of the type byte).
type LogicalType byte

const (
	LogicalClass           LogicalType = 0
	LogicalInstance        LogicalType = 1
	LogicalMember          LogicalType = 2
	LogicalConnectionPoint LogicalType = 3
	LogicalAttribute       LogicalType = 4
	LogicalSpecial         LogicalType = 5
	LogicalService         LogicalType = 6
	LogicalExtended        LogicalType = 7
)

// LogicalFormat is the 2-bit width selector (bits 1-0 of the type byte).
type LogicalFormat byte

const (
	Format8Bit     LogicalFormat = 0
	Format16Bit    LogicalFormat = 1
	Format32Bit    LogicalFormat = 2
	formatReserved LogicalFormat = 3
)

const logicalSegmentTag byte = 0b001 << 5

// Segment is one element of an EPath: either a LogicalSegment or a
// PortSegment. Encode never fails; the invariants it could violate
// (value too wide, unsupported port) are rejected at construction.
type Segment interface {
	wire.Encoder
	segmentLen() int
}

// LogicalSegment is a (type, format, value) logical address component:
// Class, Instance, Attribute, etc.
type LogicalSegment struct {
	Type   LogicalType
	Format LogicalFormat
	Value  uint32
}

// NewLogicalSegment selects the minimum encoding width that holds
// value: 8-bit for <256, 16-bit for <65536, else 32-bit.
func NewLogicalSegment(t LogicalType, value uint32) LogicalSegment {
	switch {
	case value <= 0xFF:
		return LogicalSegment{Type: t, Format: Format8Bit, Value: value}
	case value <= 0xFFFF:
		return LogicalSegment{Type: t, Format: Format16Bit, Value: value}
	default:
		return LogicalSegment{Type: t, Format: Format32Bit, Value: value}
	}
}

func (s LogicalSegment) segmentLen() int {
	switch s.Format {
	case Format8Bit:
		return 2
	case Format16Bit:
		return 4 // type byte + pad + 2 value bytes
	default:
		return 6 // type byte + pad + 4 value bytes
	}
}

// Encode emits the type byte, an alignment pad byte when the value is
// wider than 8 bits, then the value little-endian.
func (s LogicalSegment) Encode() []byte {
	typeByte := logicalSegmentTag | byte(s.Type)<<2 | byte(s.Format)
	buf := make([]byte, 0, s.segmentLen())
	buf = append(buf, typeByte)
	switch s.Format {
	case Format8Bit:
		buf = append(buf, byte(s.Value))
	case Format16Bit:
		buf = append(buf, 0x00)
		buf = wire.PutU16(buf, uint16(s.Value))
	default:
		buf = append(buf, 0x00)
		buf = wire.PutU32(buf, s.Value)
	}
	return buf
}

// TryParseLogicalSegment reads one logical segment from the front of
// buf, returning the unconsumed remainder.
func TryParseLogicalSegment(buf []byte) (LogicalSegment, []byte, error) {
	if len(buf) < 1 {
		return LogicalSegment{}, nil, wire.NewIncomplete(1)
	}
	typeByte := buf[0]
	if typeByte&0b11100000 != logicalSegmentTag {
		return LogicalSegment{}, nil, wire.NewMalformed("epath.segment_tag", "not a logical segment")
	}
	lt := LogicalType((typeByte >> 2) & 0b111)
	format := LogicalFormat(typeByte & 0b11)
	if format == formatReserved {
		return LogicalSegment{}, nil, wire.NewMalformed("epath.logical_format", "reserved format bits")
	}
	rest := buf[1:]
	switch format {
	case Format8Bit:
		if len(rest) < 1 {
			return LogicalSegment{}, nil, wire.NewIncomplete(1)
		}
		return LogicalSegment{Type: lt, Format: format, Value: uint32(rest[0])}, rest[1:], nil
	case Format16Bit:
		if len(rest) < 3 {
			return LogicalSegment{}, nil, wire.NewIncomplete(3 - len(rest))
		}
		v, err := wire.U16(rest[1:3])
		if err != nil {
			return LogicalSegment{}, nil, err
		}
		return LogicalSegment{Type: lt, Format: format, Value: uint32(v)}, rest[3:], nil
	default: // Format32Bit
		if len(rest) < 5 {
			return LogicalSegment{}, nil, wire.NewIncomplete(5 - len(rest))
		}
		v, err := wire.U32(rest[1:5])
		if err != nil {
			return LogicalSegment{}, nil, err
		}
		return LogicalSegment{Type: lt, Format: format, Value: v}, rest[5:], nil
	}
}

const portSegmentTag byte = 0

// PortSegment addresses a CIP port/link (e.g. a backplane slot). Only
// ports 1-14 with a single-byte link address are supported; an
// extended link address is rejected on both encode and decode.
type PortSegment struct {
	Port        byte // 1..14
	LinkAddress byte
}

const extendedLinkFlag byte = 0x10

func (s PortSegment) segmentLen() int { return 2 }

// Encode emits the port segment. Build via NewPortSegment to validate
// the port range first.
func (s PortSegment) Encode() []byte {
	return []byte{portSegmentTag | s.Port, s.LinkAddress}
}

// NewPortSegment builds a PortSegment, rejecting ports and link
// addresses this codec doesn't support.
func NewPortSegment(port, linkAddress byte) (PortSegment, error) {
	if port < 1 || port > 14 {
		return PortSegment{}, wire.NewNotSupported("port segment: port out of 1..14 range or extended port id")
	}
	return PortSegment{Port: port, LinkAddress: linkAddress}, nil
}

// TryParsePortSegment reads one port segment from the front of buf.
func TryParsePortSegment(buf []byte) (PortSegment, []byte, error) {
	if len(buf) < 1 {
		return PortSegment{}, nil, wire.NewIncomplete(1)
	}
	typeByte := buf[0]
	if typeByte&0b11100000 != 0 {
		return PortSegment{}, nil, wire.NewMalformed("epath.segment_tag", "not a port segment")
	}
	if typeByte&extendedLinkFlag != 0 {
		return PortSegment{}, nil, wire.NewNotSupported("extended link address")
	}
	port := typeByte & 0x0F
	if port == 0 || port > 14 {
		return PortSegment{}, nil, wire.NewNotSupported("port segment: port out of 1..14 range or extended port id")
	}
	rest := buf[1:]
	if len(rest) < 1 {
		return PortSegment{}, nil, wire.NewIncomplete(1)
	}
	return PortSegment{Port: port, LinkAddress: rest[0]}, rest[1:], nil
}

// Path is an ordered sequence of EPath segments. Encode emits the
// segment bytes only; EncodeWithWordCount adds the one-byte word-count
// prefix, and the Message Router request / ForwardOpen / ForwardClose /
// UnconnectedSend encoders decide where that prefix goes (ForwardClose
// and UnconnectedSend follow it with a reserved zero byte).
type Path struct {
	Segments []Segment
}

// Push appends a segment to the path.
func (p *Path) Push(s Segment) {
	p.Segments = append(p.Segments, s)
}

// Len returns the total encoded byte length of the path.
func (p Path) Len() int {
	n := 0
	for _, s := range p.Segments {
		n += s.segmentLen()
	}
	return n
}

// Encode concatenates every segment's encoding in order. The result's
// length is guaranteed even by construction: every LogicalSegment and
// PortSegment this package can build has an even segmentLen.
func (p Path) Encode() []byte {
	buf := make([]byte, 0, p.Len())
	for _, s := range p.Segments {
		buf = append(buf, s.Encode()...)
	}
	return buf
}

// EncodeWithWordCount returns the word-count prefix byte (Len()/2)
// followed by the encoded path, failing if Len() is odd — which would
// be a bug in this package's own segment encoders rather than caller
// error, since every segment type here is built to be even-length.
func (p Path) EncodeWithWordCount() ([]byte, error) {
	if p.Len()%2 != 0 {
		return nil, wire.NewEncodingInvariantViolated("epath length is odd")
	}
	buf := make([]byte, 0, 1+p.Len())
	buf = append(buf, byte(p.Len()/2))
	buf = append(buf, p.Encode()...)
	return buf, nil
}

// ClassInstance builds the common two-segment EPath addressing
// (class, instance), the shape call_service and
// get/set_attribute_single start from.
func ClassInstance(classID, instanceID uint32) Path {
	var p Path
	p.Push(NewLogicalSegment(LogicalClass, classID))
	p.Push(NewLogicalSegment(LogicalInstance, instanceID))
	return p
}

// ClassInstanceAttribute builds the three-segment EPath used by
// get_attribute_single / set_attribute_single.
func ClassInstanceAttribute(classID, instanceID, attributeID uint32) Path {
	p := ClassInstance(classID, instanceID)
	p.Push(NewLogicalSegment(LogicalAttribute, attributeID))
	return p
}
