// Package eip implements the EtherNet/IP encapsulation layer: the
// 24-byte header, the command vocabulary, and the Common Packet Format
// item list carried inside SendRRData/SendUnitData.
package eip

import (
	"fmt"

	"github.com/openenip/goenip/pkg/wire"
)

// HeaderSize is the fixed size of every encapsulation header.
const HeaderSize = 24

// SessionHandle identifies a registered TCP session. It is always 0
// before RegisterSession succeeds, and always 0 on a UDP transport.
type SessionHandle uint32

// Header is the 24-byte EtherNet/IP encapsulation header prefixing
// every command.
type Header struct {
	Command       Command
	Length        uint16 // byte count of the body following this header
	SessionHandle SessionHandle
	Status        uint32
	SenderContext uint64 // opaque echo-back, used for reply correlation
	Options       uint32
}

// Encode serializes the header. Length must already reflect the
// caller's body size; Encode does not recompute it.
func (h Header) Encode() []byte {
	buf := make([]byte, 0, HeaderSize)
	buf = wire.PutU16(buf, uint16(h.Command))
	buf = wire.PutU16(buf, h.Length)
	buf = wire.PutU32(buf, uint32(h.SessionHandle))
	buf = wire.PutU32(buf, h.Status)
	buf = wire.PutU64(buf, h.SenderContext)
	buf = wire.PutU32(buf, h.Options)
	return buf
}

// TryParseHeader decodes a Header from the front of buf. If buf is
// shorter than HeaderSize it returns an Incomplete error naming
// exactly how many more bytes are needed.
func TryParseHeader(buf []byte) (Header, []byte, error) {
	if len(buf) < HeaderSize {
		return Header{}, nil, wire.NewIncomplete(HeaderSize - len(buf))
	}
	cmd, _ := wire.U16(buf[0:2])
	length, _ := wire.U16(buf[2:4])
	sh, _ := wire.U32(buf[4:8])
	status, _ := wire.U32(buf[8:12])
	ctx, _ := wire.U64(buf[12:20])
	opts, _ := wire.U32(buf[20:24])
	h := Header{
		Command:       Command(cmd),
		Length:        length,
		SessionHandle: SessionHandle(sh),
		Status:        status,
		SenderContext: ctx,
		Options:       opts,
	}
	return h, buf[HeaderSize:], nil
}

// String renders the header for logs.
func (h Header) String() string {
	return fmt.Sprintf("Cmd: %s (0x%04X), Len: %d, Session: 0x%08X, Status: 0x%08X",
		h.Command, uint16(h.Command), h.Length, h.SessionHandle, h.Status)
}

// Message is a decoded encapsulation header plus its body bytes. Body
// parsing beyond the header is command-specific and left to the
// command-specific decoders — the header layer only guarantees frame
// alignment (encoded header.Length always equals len(body)).
type Message struct {
	Header Header
	Body   []byte
}

// TryParseMessage decodes one full ENIP message: the header, then
// exactly Header.Length more bytes of body. If fewer than
// Header.Length bytes remain, it returns Incomplete with the shortfall
// so a stream framer knows exactly how much more to read.
func TryParseMessage(buf []byte) (Message, []byte, error) {
	h, rest, err := TryParseHeader(buf)
	if err != nil {
		return Message{}, nil, err
	}
	if len(rest) < int(h.Length) {
		return Message{}, nil, wire.NewIncomplete(int(h.Length) - len(rest))
	}
	body := rest[:h.Length]
	return Message{Header: h, Body: body}, rest[h.Length:], nil
}

// Encode serializes the full message: header (with Length recomputed
// from len(Body)) followed by the body.
func (m Message) Encode() []byte {
	h := m.Header
	h.Length = uint16(len(m.Body))
	buf := make([]byte, 0, HeaderSize+len(m.Body))
	buf = append(buf, h.Encode()...)
	buf = append(buf, m.Body...)
	return buf
}
