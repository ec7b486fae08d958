package transport

import (
	"net"
	"testing"

	"github.com/openenip/goenip/pkg/eip"
)

func TestUDPTransportSendUnconnectedSessionHandleIsZero(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	ut, err := NewUDPTransport(server.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer ut.Close()

	payload := []byte{0x0E, 0x02, 0x20, 0x02, 0x24, 0x01}
	if err := ut.SendUnconnected(0xDEADBEEF, payload, 0); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 256)
	n, _, err := server.ReadFromUDP(buf)
	if err != nil {
		t.Fatal(err)
	}
	msg, _, err := eip.TryParseMessage(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if msg.Header.SessionHandle != 0 {
		t.Fatalf("got session handle 0x%08X, want 0 on UDP", msg.Header.SessionHandle)
	}
	if msg.Header.Command != eip.CommandSendRRData {
		t.Fatalf("got command %v", msg.Header.Command)
	}
}

func TestUDPTransportBeginCloseSessionAreNoops(t *testing.T) {
	ut := &UDPTransport{}
	handle, err := ut.BeginSession()
	if err != nil || handle != 0 {
		t.Fatalf("got (%v, %v)", handle, err)
	}
	if err := ut.CloseSession(123); err != nil {
		t.Fatal(err)
	}
}
