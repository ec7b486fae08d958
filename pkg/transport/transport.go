// Package transport adapts the ENIP encapsulation codec to a
// concrete byte stream (TCP) or datagram (UDP) socket.
package transport

import (
	"errors"

	"github.com/openenip/goenip/pkg/eip"
)

// ErrPeerClosed is returned by ReadData when the peer closed the
// connection (a zero-length read on a stream transport).
var ErrPeerClosed = errors.New("transport: peer closed connection")

// Transport is the uniform contract both adapters satisfy.
// BeginSession/CloseSession perform whatever handshake the transport
// needs before carrying a session (the RegisterSession/
// UnregisterSession round trip for TCP, a no-op for UDP).
// SendUnconnected and SendConnected wrap a CIP payload in the
// appropriate CPF item list and envelope; SendNop carries an opaque
// keepalive payload. ReadData returns the next full ENIP message.
type Transport interface {
	BeginSession() (eip.SessionHandle, error)
	CloseSession(sessionHandle eip.SessionHandle) error
	SendUnconnected(sessionHandle eip.SessionHandle, cipPayload []byte, timeoutSeconds uint16) error
	SendConnected(sessionHandle eip.SessionHandle, connectionID uint32, cipPayload []byte) error
	SendNop(payload []byte) error
	// SendRaw emits msg unchanged, for commands that don't fit the
	// send_unconnected/send_connected/send_nop shapes — ListIdentity
	// and ListServices, whose bodies are empty requests rather than
	// CPF-wrapped CIP payloads.
	SendRaw(msg eip.Message) error
	ReadData() (eip.Message, error)
}

func buildUnconnectedSendData(cipPayload []byte, timeoutSeconds uint16) eip.SendData {
	return eip.SendData{
		InterfaceHandle: 0,
		TimeoutSeconds:  timeoutSeconds,
		Items: eip.ItemList{Items: []eip.Item{
			eip.NullAddressItem{},
			eip.UnconnectedDataItem{Data: cipPayload},
		}},
	}
}

func buildConnectedSendData(connectionID uint32, cipPayload []byte) eip.SendData {
	return eip.SendData{
		InterfaceHandle: 0,
		Items: eip.ItemList{Items: []eip.Item{
			eip.ConnectedAddressItem{ConnectionID: connectionID},
			eip.ConnectedDataItem{Data: cipPayload},
		}},
	}
}
