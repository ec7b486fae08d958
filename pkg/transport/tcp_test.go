package transport

import (
	"net"
	"testing"

	"github.com/openenip/goenip/pkg/eip"
)

func TestTCPTransportBeginSessionAssignsHandle(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	transport := &TCPTransport{conn: client}

	errCh := make(chan error, 1)
	go func() {
		msg, err := (&TCPTransport{conn: server}).ReadData()
		if err != nil {
			errCh <- err
			return
		}
		if msg.Header.Command != eip.CommandRegisterSession {
			t.Errorf("got command %v, want RegisterSession", msg.Header.Command)
		}
		reply := eip.Message{Header: eip.Header{
			Command:       eip.CommandRegisterSession,
			SessionHandle: 0xCAFEBABE,
			Status:        eip.StatusSuccess,
		}, Body: msg.Body}
		if _, err := server.Write(reply.Encode()); err != nil {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	handle, err := transport.BeginSession()
	if err != nil {
		t.Fatal(err)
	}
	if err := <-errCh; err != nil {
		t.Fatal(err)
	}
	if handle != 0xCAFEBABE {
		t.Fatalf("got handle 0x%08X", handle)
	}
}

func TestTCPTransportSendUnconnectedFrames(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	transport := &TCPTransport{conn: client}
	payload := []byte{0x0E, 0x02, 0x20, 0x02, 0x24, 0x01}

	done := make(chan eip.Message, 1)
	go func() {
		msg, err := (&TCPTransport{conn: server}).ReadData()
		if err != nil {
			t.Error(err)
			return
		}
		done <- msg
	}()

	if err := transport.SendUnconnected(0x12345678, payload, 5); err != nil {
		t.Fatal(err)
	}
	msg := <-done
	if msg.Header.Command != eip.CommandSendRRData {
		t.Fatalf("got command %v", msg.Header.Command)
	}
	if msg.Header.SessionHandle != 0x12345678 {
		t.Fatalf("got session handle 0x%08X", msg.Header.SessionHandle)
	}
}

func TestTCPConnFalseForNonTCPSocket(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	transport := &TCPTransport{conn: client}
	if _, ok := transport.TCPConn(); ok {
		t.Fatal("expected ok=false for a net.Pipe() connection")
	}
}

func TestTCPTransportReadDataZeroLengthIsPeerClosed(t *testing.T) {
	client, server := net.Pipe()
	transport := &TCPTransport{conn: client}
	server.Close()

	_, err := transport.ReadData()
	if err != ErrPeerClosed {
		t.Fatalf("got %v, want ErrPeerClosed", err)
	}
}
