package capture

import (
	"github.com/openenip/goenip/pkg/eip"
	"github.com/openenip/goenip/pkg/transport"
)

// registerSessionMessage and the other helpers below rebuild, byte for
// byte, the request bodies transport.TCPTransport/UDPTransport already
// construct internally. Transport doesn't expose the raw bytes it put
// on the wire, so a capturing decorator reconstructs the same
// deterministic encoding rather than reaching into transport's
// unexported helpers; the wire shape is fixed by the protocol, not a
// private implementation detail.
func registerSessionMessage() eip.Message {
	return eip.Message{
		Header: eip.Header{Command: eip.CommandRegisterSession},
		Body:   eip.NewRegisterSessionData().Encode(),
	}
}

func unregisterSessionMessage(sessionHandle eip.SessionHandle) eip.Message {
	return eip.Message{
		Header: eip.Header{Command: eip.CommandUnregisterSession, SessionHandle: sessionHandle},
	}
}

func sendRRDataMessage(sessionHandle eip.SessionHandle, cipPayload []byte, timeoutSeconds uint16) eip.Message {
	body := eip.SendData{
		TimeoutSeconds: timeoutSeconds,
		Items: eip.ItemList{Items: []eip.Item{
			eip.NullAddressItem{},
			eip.UnconnectedDataItem{Data: cipPayload},
		}},
	}.Encode()
	return eip.Message{
		Header: eip.Header{Command: eip.CommandSendRRData, SessionHandle: sessionHandle},
		Body:   body,
	}
}

func sendUnitDataMessage(sessionHandle eip.SessionHandle, connectionID uint32, cipPayload []byte) eip.Message {
	body := eip.SendData{
		Items: eip.ItemList{Items: []eip.Item{
			eip.ConnectedAddressItem{ConnectionID: connectionID},
			eip.ConnectedDataItem{Data: cipPayload},
		}},
	}.Encode()
	return eip.Message{
		Header: eip.Header{Command: eip.CommandSendUnitData, SessionHandle: sessionHandle},
		Body:   body,
	}
}

// Transport wraps a transport.Transport, writing every message sent or
// received through it to a Writer. It otherwise delegates entirely to
// the inner transport; a capture failure never aborts the underlying
// call, since a dropped capture packet shouldn't take a live session
// down with it.
type Transport struct {
	inner transport.Transport
	w     *Writer

	onError func(error)
}

// Wrap returns a Transport decorator recording every message passed
// through inner into w.
func Wrap(inner transport.Transport, w *Writer) *Transport {
	return &Transport{inner: inner, w: w}
}

// OnError installs a callback invoked whenever a capture write fails,
// e.g. to log it without disrupting the session. The default ignores
// capture errors entirely.
func (t *Transport) OnError(fn func(error)) *Transport {
	t.onError = fn
	return t
}

func (t *Transport) record(dir Direction, msg eip.Message) {
	if err := t.w.WriteMessage(dir, msg); err != nil && t.onError != nil {
		t.onError(err)
	}
}

func (t *Transport) BeginSession() (eip.SessionHandle, error) {
	t.record(Outbound, registerSessionMessage())
	handle, err := t.inner.BeginSession()
	return handle, err
}

func (t *Transport) CloseSession(sessionHandle eip.SessionHandle) error {
	t.record(Outbound, unregisterSessionMessage(sessionHandle))
	return t.inner.CloseSession(sessionHandle)
}

func (t *Transport) SendUnconnected(sessionHandle eip.SessionHandle, cipPayload []byte, timeoutSeconds uint16) error {
	t.record(Outbound, sendRRDataMessage(sessionHandle, cipPayload, timeoutSeconds))
	return t.inner.SendUnconnected(sessionHandle, cipPayload, timeoutSeconds)
}

func (t *Transport) SendConnected(sessionHandle eip.SessionHandle, connectionID uint32, cipPayload []byte) error {
	t.record(Outbound, sendUnitDataMessage(sessionHandle, connectionID, cipPayload))
	return t.inner.SendConnected(sessionHandle, connectionID, cipPayload)
}

func (t *Transport) SendNop(payload []byte) error {
	t.record(Outbound, eip.Message{Header: eip.Header{Command: eip.CommandNop}, Body: payload})
	return t.inner.SendNop(payload)
}

func (t *Transport) SendRaw(msg eip.Message) error {
	t.record(Outbound, msg)
	return t.inner.SendRaw(msg)
}

func (t *Transport) ReadData() (eip.Message, error) {
	msg, err := t.inner.ReadData()
	if err == nil {
		t.record(Inbound, msg)
	}
	return msg, err
}

var _ transport.Transport = (*Transport)(nil)
