package session

import (
	"errors"
	"testing"
	"time"

	"github.com/openenip/goenip/pkg/cip"
	"github.com/openenip/goenip/pkg/eip"
)

type fakeMetrics struct {
	calls []string
}

func (m *fakeMetrics) ObserveCall(service, outcome string, _ time.Duration) {
	m.calls = append(m.calls, service+":"+outcome)
}

// fakeTransport is an in-memory stand-in for pkg/transport.Transport,
// scripted per-test by pushing onto replies.
type fakeTransport struct {
	beginHandle eip.SessionHandle
	beginErr    error
	closeErr    error
	sendErr     error
	replies     []eip.Message
	replyErr    error

	lastCIPPayload []byte
	lastCommand    eip.Command
	sessionHandle  eip.SessionHandle
}

func (f *fakeTransport) BeginSession() (eip.SessionHandle, error) { return f.beginHandle, f.beginErr }
func (f *fakeTransport) CloseSession(eip.SessionHandle) error     { return f.closeErr }

func (f *fakeTransport) SendUnconnected(handle eip.SessionHandle, cipPayload []byte, _ uint16) error {
	f.sessionHandle = handle
	f.lastCIPPayload = cipPayload
	f.lastCommand = eip.CommandSendRRData
	return f.sendErr
}

func (f *fakeTransport) SendConnected(handle eip.SessionHandle, _ uint32, cipPayload []byte) error {
	f.sessionHandle = handle
	f.lastCIPPayload = cipPayload
	f.lastCommand = eip.CommandSendUnitData
	return f.sendErr
}

func (f *fakeTransport) SendNop([]byte) error { return f.sendErr }

func (f *fakeTransport) SendRaw(msg eip.Message) error {
	f.lastCommand = msg.Header.Command
	return f.sendErr
}

func (f *fakeTransport) ReadData() (eip.Message, error) {
	if f.replyErr != nil {
		return eip.Message{}, f.replyErr
	}
	if len(f.replies) == 0 {
		return eip.Message{}, errors.New("fakeTransport: no scripted reply")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func sendRRDataReply(respData []byte) eip.Message {
	sd := eip.SendData{Items: eip.ItemList{Items: []eip.Item{
		eip.NullAddressItem{},
		eip.UnconnectedDataItem{Data: respData},
	}}}
	return eip.Message{
		Header: eip.Header{Command: eip.CommandSendRRData, Status: eip.StatusSuccess},
		Body:   sd.Encode(),
	}
}

func mrSuccessResponse(service byte, data []byte) []byte {
	resp := cip.Response{Service: service | 0x80, GeneralStatus: cip.StatusSuccess, Data: data}
	buf := []byte{resp.Service, 0x00, resp.GeneralStatus, 0x00}
	return append(buf, data...)
}

func TestConnectTransitionsToRegistered(t *testing.T) {
	ft := &fakeTransport{beginHandle: 0xCAFEBABE}
	s := New(ft)
	if s.State() != Disconnected {
		t.Fatalf("initial state %v", s.State())
	}
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Registered {
		t.Fatalf("got state %v", s.State())
	}
	if s.sessionHandle != 0xCAFEBABE {
		t.Fatalf("got handle 0x%08X", s.sessionHandle)
	}
}

func TestConnectFailureStaysDisconnected(t *testing.T) {
	ft := &fakeTransport{beginErr: errors.New("refused")}
	s := New(ft)
	if err := s.Connect(); err == nil {
		t.Fatal("expected error")
	}
	if s.State() != Disconnected {
		t.Fatalf("got state %v", s.State())
	}
}

func TestCallServiceRequiresRegistration(t *testing.T) {
	s := New(&fakeTransport{})
	_, err := s.CallService(0x01, 0x01, cip.ServiceGetAttributeAll, nil)
	if err == nil {
		t.Fatal("expected SessionError for unregistered session")
	}
}

func TestGetAttributeSingleRoundTrip(t *testing.T) {
	respData := []byte{0xAA, 0xBB}
	ft := &fakeTransport{
		beginHandle: 1,
		replies:     []eip.Message{sendRRDataReply(mrSuccessResponse(cip.ServiceGetAttributeSingle, respData))},
	}
	s := New(ft)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	resp, err := s.GetAttributeSingle(0x01, 0x01, 0x01)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.IsSuccess() {
		t.Fatal("expected success")
	}
	if string(resp.Data) != string(respData) {
		t.Fatalf("got %v", resp.Data)
	}
	if ft.sessionHandle != 1 {
		t.Fatalf("session handle not forwarded: got %d", ft.sessionHandle)
	}
}

func TestGetSupportedClassesSortsAscending(t *testing.T) {
	data := []byte{0x02, 0x00, 0xF5, 0x00, 0x01, 0x00}
	ft := &fakeTransport{
		beginHandle: 1,
		replies:     []eip.Message{sendRRDataReply(mrSuccessResponse(cip.ServiceGetAttributeAll, data))},
	}
	s := New(ft)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	classes, err := s.GetSupportedClasses()
	if err != nil {
		t.Fatal(err)
	}
	if len(classes) != 2 || classes[0] != 0x0001 || classes[1] != 0x00F5 {
		t.Fatalf("got %v", classes)
	}
}

func TestDisconnectResetsState(t *testing.T) {
	ft := &fakeTransport{beginHandle: 1}
	s := New(ft)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := s.Disconnect(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Disconnected {
		t.Fatalf("got state %v", s.State())
	}
}

func TestMetricsObservesOkAndCipError(t *testing.T) {
	fm := &fakeMetrics{}
	ft := &fakeTransport{
		beginHandle: 1,
		replies: []eip.Message{
			sendRRDataReply(mrSuccessResponse(cip.ServiceGetAttributeSingle, nil)),
			sendRRDataReply([]byte{cip.ServiceGetAttributeSingle | 0x80, 0x00, 0x05, 0x00}),
		},
	}
	s := New(ft, WithMetrics(fm))
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetAttributeSingle(1, 1, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetAttributeSingle(1, 1, 1); err != nil {
		t.Fatal(err)
	}
	want := []string{"0x0E:ok", "0x0E:cip_error"}
	if len(fm.calls) != 2 || fm.calls[0] != want[0] || fm.calls[1] != want[1] {
		t.Fatalf("got %v", fm.calls)
	}
}

func TestListIdentityUsesListIdentityCommand(t *testing.T) {
	item := []byte{
		0x01, 0x00, // encapsulation version
	}
	item = append(item, make([]byte, 16)...)             // socket addr
	item = append(item, 0x01, 0x00, 0x0C, 0x00, 0x02, 0x00) // vendor, device type, product code
	item = append(item, 0x01, 0x00)                       // revision
	item = append(item, 0x00, 0x00)                       // status
	item = append(item, 0x01, 0x00, 0x00, 0x00)           // serial
	item = append(item, 0x00)                             // product name length 0
	item = append(item, 0x00)                             // state

	body := []byte{0x01, 0x00} // item count
	body = append(body, 0x0C, 0x00) // type id ListIdentity
	body = append(body, byte(len(item)), 0x00)
	body = append(body, item...)

	ft := &fakeTransport{
		replies: []eip.Message{{Header: eip.Header{Command: eip.CommandListIdentity}, Body: body}},
	}
	s := New(ft)
	items, err := s.ListIdentity()
	if err != nil {
		t.Fatal(err)
	}
	if ft.lastCommand != eip.CommandListIdentity {
		t.Fatalf("got command %v", ft.lastCommand)
	}
	if len(items) != 1 || items[0].VendorID != 1 {
		t.Fatalf("got %+v", items)
	}
}
