package capture

import (
	"bytes"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/openenip/goenip/pkg/eip"
)

func TestWriteMessageProducesReadablePcap(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, ProtoTCP)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	out := eip.Message{
		Header: eip.Header{Command: eip.CommandRegisterSession, SessionHandle: 0x01020304},
		Body:   eip.NewRegisterSessionData().Encode(),
	}
	if err := w.WriteMessage(Outbound, out); err != nil {
		t.Fatalf("WriteMessage outbound: %v", err)
	}
	in := eip.Message{
		Header: eip.Header{Command: eip.CommandRegisterSession, SessionHandle: 0x01020304, Status: eip.StatusSuccess},
		Body:   eip.NewRegisterSessionData().Encode(),
	}
	if err := w.WriteMessage(Inbound, in); err != nil {
		t.Fatalf("WriteMessage inbound: %v", err)
	}

	r, err := pcapgo.NewReader(&buf)
	if err != nil {
		t.Fatalf("pcapgo.NewReader: %v", err)
	}

	var frames [][]byte
	for {
		data, _, err := r.ReadPacketData()
		if err != nil {
			break
		}
		frames = append(frames, append([]byte(nil), data...))
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}

	for i, data := range frames {
		pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
		tcpLayer := pkt.Layer(layers.LayerTypeTCP)
		if tcpLayer == nil {
			t.Fatalf("frame %d: no TCP layer", i)
		}
		appLayer := pkt.ApplicationLayer()
		if appLayer == nil {
			t.Fatalf("frame %d: no application payload", i)
		}
		msg, _, err := eip.TryParseMessage(appLayer.Payload())
		if err != nil {
			t.Fatalf("frame %d: parse ENIP payload: %v", i, err)
		}
		if msg.Header.Command != eip.CommandRegisterSession {
			t.Errorf("frame %d: command = %v, want RegisterSession", i, msg.Header.Command)
		}
		if msg.Header.SessionHandle != 0x01020304 {
			t.Errorf("frame %d: session handle = 0x%08X, want 0x01020304", i, msg.Header.SessionHandle)
		}
	}
}

func TestWriteMessageUDP(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, ProtoUDP)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	msg := eip.Message{Header: eip.Header{Command: eip.CommandNop}, Body: []byte{0xDE, 0xAD}}
	if err := w.WriteMessage(Outbound, msg); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	r, err := pcapgo.NewReader(&buf)
	if err != nil {
		t.Fatalf("pcapgo.NewReader: %v", err)
	}
	data, _, err := r.ReadPacketData()
	if err != nil {
		t.Fatalf("ReadPacketData: %v", err)
	}
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	if pkt.Layer(layers.LayerTypeUDP) == nil {
		t.Fatalf("no UDP layer in captured packet")
	}
}
