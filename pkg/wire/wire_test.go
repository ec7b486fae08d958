package wire

import "testing"

func TestU16RoundTrip(t *testing.T) {
	buf := PutU16(nil, 0xBEEF)
	got, err := U16(buf)
	if err != nil {
		t.Fatalf("U16: %v", err)
	}
	if got != 0xBEEF {
		t.Fatalf("got 0x%04X, want 0xBEEF", got)
	}
}

func TestU32RoundTrip(t *testing.T) {
	buf := PutU32(nil, 0x01020304)
	got, err := U32(buf)
	if err != nil {
		t.Fatalf("U32: %v", err)
	}
	if got != 0x01020304 {
		t.Fatalf("got 0x%08X, want 0x01020304", got)
	}
	// little-endian: low byte first
	if buf[0] != 0x04 || buf[3] != 0x01 {
		t.Fatalf("byte order wrong: % X", buf)
	}
}

func TestU16Incomplete(t *testing.T) {
	_, err := U16([]byte{0x01})
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Kind != KindIncomplete || pe.Needed != 1 {
		t.Fatalf("got %+v", pe)
	}
}
