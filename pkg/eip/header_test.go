package eip

import (
	"bytes"
	"testing"
)

func TestRegisterSessionRequestWireBytes(t *testing.T) {
	h := Header{Command: CommandRegisterSession, Length: 4}
	body := NewRegisterSessionData().Encode()
	msg := Message{Header: h, Body: body}

	got := msg.Encode()
	want := []byte{
		0x65, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % X\nwant % X", got, want)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Command:       CommandSendRRData,
		Length:        10,
		SessionHandle: 0x01020304,
		Status:        0,
		SenderContext: 0xDEADBEEFCAFEBABE,
		Options:       0,
	}
	encoded := h.Encode()
	got, rest, err := TryParseHeader(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatalf("unexpected remainder %v", rest)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestRegisterSessionReplyAssignsSessionHandle(t *testing.T) {
	h := Header{Command: CommandRegisterSession, SessionHandle: 0x01020304, Status: StatusSuccess}
	encoded := h.Encode()
	got, _, err := TryParseHeader(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if got.SessionHandle != 0x01020304 {
		t.Fatalf("got session handle 0x%08X", got.SessionHandle)
	}
}

func TestTryParseHeaderIncomplete(t *testing.T) {
	_, _, err := TryParseHeader(make([]byte, 10))
	pe, ok := err.(interface{ Error() string })
	if !ok {
		t.Fatalf("expected error, got %v", err)
	}
	_ = pe
}

func TestTryParseMessageIncompleteBody(t *testing.T) {
	h := Header{Command: CommandNop, Length: 10}
	buf := append(h.Encode(), []byte{1, 2, 3}...) // only 3 of the promised 10 body bytes
	_, _, err := TryParseMessage(buf)
	if err == nil {
		t.Fatal("expected incomplete error")
	}
}

func TestLengthAgreement(t *testing.T) {
	body := []byte{1, 2, 3, 4, 5}
	msg := Message{Header: Header{Command: CommandSendUnitData}, Body: body}
	encoded := msg.Encode()
	if len(encoded)-HeaderSize != len(body) {
		t.Fatalf("header length does not agree with body length")
	}
	h, _, err := TryParseHeader(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if int(h.Length) != len(body) {
		t.Fatalf("decoded length %d != %d", h.Length, len(body))
	}
}
