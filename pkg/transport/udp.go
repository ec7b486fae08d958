package transport

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/openenip/goenip/pkg/eip"
)

const defaultUDPPort = "44818"
const maxUDPDatagram = 65507

// UDPTransport frames ENIP messages one-per-datagram: no stream
// reassembly, no session to register, session_handle is always 0 on
// the wire.
type UDPTransport struct {
	conn    net.Conn
	writeMu sync.Mutex
}

// NewUDPTransport dials address, appending the standard EtherNet/IP
// port if none is given.
func NewUDPTransport(address string) (*UDPTransport, error) {
	if !strings.Contains(address, ":") {
		address = net.JoinHostPort(address, defaultUDPPort)
	}
	conn, err := net.DialTimeout("udp", address, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &UDPTransport{conn: conn}, nil
}

// BeginSession is a no-op: a UDP transport carries no session.
func (t *UDPTransport) BeginSession() (eip.SessionHandle, error) {
	return 0, nil
}

// CloseSession is a no-op.
func (t *UDPTransport) CloseSession(eip.SessionHandle) error {
	return nil
}

func (t *UDPTransport) writeMessage(msg eip.Message) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err := t.conn.Write(msg.Encode())
	return err
}

// SendUnconnected wraps cipPayload in a Null Address / Unconnected
// Data CPF list and emits it as SendRRData with session_handle 0.
func (t *UDPTransport) SendUnconnected(_ eip.SessionHandle, cipPayload []byte, timeoutSeconds uint16) error {
	body := buildUnconnectedSendData(cipPayload, timeoutSeconds).Encode()
	return t.writeMessage(eip.Message{Header: eip.Header{Command: eip.CommandSendRRData}, Body: body})
}

// SendConnected wraps cipPayload in a Connected Address / Connected
// Data CPF list and emits it as SendUnitData with session_handle 0.
func (t *UDPTransport) SendConnected(_ eip.SessionHandle, connectionID uint32, cipPayload []byte) error {
	body := buildConnectedSendData(connectionID, cipPayload).Encode()
	return t.writeMessage(eip.Message{Header: eip.Header{Command: eip.CommandSendUnitData}, Body: body})
}

// SendNop emits an opaque NOP keepalive.
func (t *UDPTransport) SendNop(payload []byte) error {
	return t.writeMessage(eip.Message{Header: eip.Header{Command: eip.CommandNop}, Body: payload})
}

// SendRaw emits msg exactly as given.
func (t *UDPTransport) SendRaw(msg eip.Message) error {
	return t.writeMessage(msg)
}

// ReadData reads one datagram and parses it as a full ENIP message;
// a UDP transport never needs to buffer across reads.
func (t *UDPTransport) ReadData() (eip.Message, error) {
	buf := make([]byte, maxUDPDatagram)
	n, err := t.conn.Read(buf)
	if err != nil {
		return eip.Message{}, err
	}
	msg, _, err := eip.TryParseMessage(buf[:n])
	return msg, err
}

// Close closes the underlying socket.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
