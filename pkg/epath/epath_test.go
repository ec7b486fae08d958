package epath

import (
	"bytes"
	"testing"
)

func TestLogicalSegmentMinimalWidth(t *testing.T) {
	cases := []struct {
		value      uint32
		wantFormat LogicalFormat
	}{
		{0, Format8Bit},
		{0xFF, Format8Bit},
		{0x100, Format16Bit},
		{0xFFFF, Format16Bit},
		{0x10000, Format32Bit},
	}
	for _, c := range cases {
		s := NewLogicalSegment(LogicalClass, c.value)
		if s.Format != c.wantFormat {
			t.Errorf("value=0x%X: got format %v, want %v", c.value, s.Format, c.wantFormat)
		}
	}
}

func TestLogicalSegmentRoundTrip(t *testing.T) {
	for _, value := range []uint32{0, 1, 0xFF, 0x100, 0xFFFF, 0x10000, 0xFFFFFFFF} {
		s := NewLogicalSegment(LogicalAttribute, value)
		encoded := s.Encode()
		got, remainder, err := TryParseLogicalSegment(encoded)
		if err != nil {
			t.Fatalf("value=0x%X: %v", value, err)
		}
		if len(remainder) != 0 {
			t.Fatalf("value=0x%X: remainder %v", value, remainder)
		}
		if got != s {
			t.Fatalf("value=0x%X: got %+v, want %+v", value, got, s)
		}
	}
}

func TestLogicalSegmentEncoding(t *testing.T) {
	// Class=2 (MessageRouter), 8-bit form: 0x20 0x02
	s := NewLogicalSegment(LogicalClass, 2)
	want := []byte{0x20, 0x02}
	if !bytes.Equal(s.Encode(), want) {
		t.Fatalf("got % X, want % X", s.Encode(), want)
	}

	// Instance=1, 8-bit form: 0x24 0x01
	s = NewLogicalSegment(LogicalInstance, 1)
	want = []byte{0x24, 0x01}
	if !bytes.Equal(s.Encode(), want) {
		t.Fatalf("got % X, want % X", s.Encode(), want)
	}
}

func TestPortSegmentRoundTrip(t *testing.T) {
	s, err := NewPortSegment(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	encoded := s.Encode()
	want := []byte{0x01, 0x02}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("got % X, want % X", encoded, want)
	}
	got, remainder, err := TryParsePortSegment(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(remainder) != 0 || got != s {
		t.Fatalf("got %+v remainder=%v", got, remainder)
	}
}

func TestPortSegmentRejectsOutOfRange(t *testing.T) {
	if _, err := NewPortSegment(0, 1); err == nil {
		t.Fatal("expected error for port 0")
	}
	if _, err := NewPortSegment(15, 1); err == nil {
		t.Fatal("expected error for port 15")
	}
}

func TestPortSegmentRejectsExtendedLink(t *testing.T) {
	_, _, err := TryParsePortSegment([]byte{0x11, 0x02, 0x00})
	pe, ok := err.(interface{ Error() string })
	if !ok || pe == nil {
		t.Fatal("expected error for extended link address")
	}
}

func TestPathEncodedLengthIsEven(t *testing.T) {
	p := ClassInstanceAttribute(0x01, 0x01, 0xFF)
	if p.Len()%2 != 0 {
		t.Fatalf("path length %d is odd", p.Len())
	}
}

func TestClassInstanceEncoding(t *testing.T) {
	// Class=0x02 (MessageRouter), Instance=1 -> word_count=2, 0x20 0x02 0x24 0x01
	p := ClassInstance(0x02, 0x01)
	encoded, err := p.EncodeWithWordCount()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x02, 0x20, 0x02, 0x24, 0x01}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("got % X, want % X", encoded, want)
	}
}
