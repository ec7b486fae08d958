package transport

import (
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/openenip/goenip/pkg/eip"
)

const defaultTCPPort = "44818"

// TCPTransport frames ENIP messages over a TCP byte stream: reads
// buffer to 24 bytes, parse the header, then buffer to header.length
// more bytes before a message is considered complete. Writes are
// serialized so one ENIP message is never interleaved with another.
type TCPTransport struct {
	conn    net.Conn
	writeMu sync.Mutex
}

// NewTCPTransport dials address, appending the standard EtherNet/IP
// port if none is given.
func NewTCPTransport(address string) (*TCPTransport, error) {
	if !strings.Contains(address, ":") {
		address = net.JoinHostPort(address, defaultTCPPort)
	}
	conn, err := net.DialTimeout("tcp", address, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &TCPTransport{conn: conn}, nil
}

func (t *TCPTransport) writeMessage(msg eip.Message) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err := t.conn.Write(msg.Encode())
	return err
}

// BeginSession issues RegisterSession (protocol version 1, no
// options) and returns the session_handle the device assigned.
func (t *TCPTransport) BeginSession() (eip.SessionHandle, error) {
	req := eip.Message{
		Header: eip.Header{Command: eip.CommandRegisterSession},
		Body:   eip.NewRegisterSessionData().Encode(),
	}
	if err := t.writeMessage(req); err != nil {
		return 0, fmt.Errorf("transport: register session: %w", err)
	}
	reply, err := t.ReadData()
	if err != nil {
		return 0, fmt.Errorf("transport: register session reply: %w", err)
	}
	if reply.Header.Status != eip.StatusSuccess {
		return 0, fmt.Errorf("transport: register session failed, status 0x%08X", reply.Header.Status)
	}
	if reply.Header.SessionHandle == 0 {
		return 0, fmt.Errorf("transport: register session returned a zero session handle")
	}
	return reply.Header.SessionHandle, nil
}

// CloseSession issues UnregisterSession; no reply is expected.
func (t *TCPTransport) CloseSession(sessionHandle eip.SessionHandle) error {
	msg := eip.Message{
		Header: eip.Header{Command: eip.CommandUnregisterSession, SessionHandle: sessionHandle},
	}
	return t.writeMessage(msg)
}

// SendUnconnected wraps cipPayload in a Null Address / Unconnected
// Data CPF list and emits it as SendRRData.
func (t *TCPTransport) SendUnconnected(sessionHandle eip.SessionHandle, cipPayload []byte, timeoutSeconds uint16) error {
	body := buildUnconnectedSendData(cipPayload, timeoutSeconds).Encode()
	msg := eip.Message{
		Header: eip.Header{Command: eip.CommandSendRRData, SessionHandle: sessionHandle},
		Body:   body,
	}
	return t.writeMessage(msg)
}

// SendConnected wraps cipPayload in a Connected Address / Connected
// Data CPF list and emits it as SendUnitData.
func (t *TCPTransport) SendConnected(sessionHandle eip.SessionHandle, connectionID uint32, cipPayload []byte) error {
	body := buildConnectedSendData(connectionID, cipPayload).Encode()
	msg := eip.Message{
		Header: eip.Header{Command: eip.CommandSendUnitData, SessionHandle: sessionHandle},
		Body:   body,
	}
	return t.writeMessage(msg)
}

// SendNop emits an opaque NOP keepalive; devices must silently drop it.
func (t *TCPTransport) SendNop(payload []byte) error {
	return t.writeMessage(eip.Message{Header: eip.Header{Command: eip.CommandNop}, Body: payload})
}

// SendRaw emits msg exactly as given.
func (t *TCPTransport) SendRaw(msg eip.Message) error {
	return t.writeMessage(msg)
}

// ReadData reads one complete ENIP message: 24 header bytes, then
// header.length body bytes. A zero-length read anywhere in that
// sequence means the peer closed the connection.
func (t *TCPTransport) ReadData() (eip.Message, error) {
	headerBuf := make([]byte, eip.HeaderSize)
	if err := readFull(t.conn, headerBuf); err != nil {
		return eip.Message{}, err
	}
	header, _, err := eip.TryParseHeader(headerBuf)
	if err != nil {
		return eip.Message{}, err
	}
	body := make([]byte, header.Length)
	if header.Length > 0 {
		if err := readFull(t.conn, body); err != nil {
			return eip.Message{}, err
		}
	}
	return eip.Message{Header: header, Body: body}, nil
}

// Close closes the underlying connection.
func (t *TCPTransport) Close() error {
	return t.conn.Close()
}

// TCPConn exposes the underlying *net.TCPConn for internal/tcpdiag to
// sample TCP_INFO off of. ok is false for a connection that, for
// whatever reason, isn't backed by a real TCP socket (e.g. a
// net.Pipe() used in tests).
func (t *TCPTransport) TCPConn() (conn *net.TCPConn, ok bool) {
	conn, ok = t.conn.(*net.TCPConn)
	return conn, ok
}

func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrPeerClosed
	}
	return err
}
