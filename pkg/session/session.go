// Package session implements the CIP Client session state machine:
// registration, request/reply correlation, and the high-level
// call_service / get_attribute_single / set_attribute_single /
// get_supported_classes operations built on top of Connection Manager
// UnconnectedSend envelopes.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/openenip/goenip/internal/logging"
	"github.com/openenip/goenip/pkg/cip"
	"github.com/openenip/goenip/pkg/connmgr"
	"github.com/openenip/goenip/pkg/eip"
	"github.com/openenip/goenip/pkg/epath"
	"github.com/openenip/goenip/pkg/transport"
	"github.com/openenip/goenip/pkg/utils"
)

// Metrics receives one observation per call_service round trip.
// *metrics.Registry satisfies this without pkg/session importing
// internal/metrics directly; a nil Metrics (the default) disables
// observation entirely.
type Metrics interface {
	ObserveCall(service string, outcome string, elapsed time.Duration)
}

// State is the session's position in the connect/registered/
// disconnected lifecycle.
type State int

const (
	Disconnected State = iota
	Registering
	Registered
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Registering:
		return "Registering"
	case Registered:
		return "Registered"
	default:
		return "Unknown"
	}
}

// SessionError wraps a failure in the connect/register/disconnect
// lifecycle, as distinct from a wire parse error or a CIP-level
// general_status.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string { return fmt.Sprintf("session: %s: %v", e.Op, e.Err) }
func (e *SessionError) Unwrap() error { return e.Err }

const (
	defaultRoutePort        = 1
	defaultRouteLinkAddress = 2
	unconnectedPriorityTick = 0b11
	unconnectedTimeoutTicks = 240
)

// ClientSession drives one transport through the
// Disconnected -> Registering -> Registered -> Disconnected lifecycle
// and issues CIP services over it. Every public method holds the
// session's mutex for its whole send/receive round trip, so calls
// from several goroutines are serialized one complete round trip at a
// time, never interleaved at the level of individual reads.
type ClientSession struct {
	mu sync.Mutex

	t             transport.Transport
	logger        logging.Logger
	metrics       Metrics
	state         State
	sessionHandle eip.SessionHandle
	routePath     epath.Path
}

// Option configures a ClientSession at construction.
type Option func(*ClientSession)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(s *ClientSession) { s.logger = l }
}

// WithRoutePath overrides the default route (port 1, link address 2 —
// backplane slot 2) used to reach the target over UnconnectedSend.
func WithRoutePath(path epath.Path) Option {
	return func(s *ClientSession) { s.routePath = path }
}

// WithMetrics attaches a Metrics sink; the default observes nothing.
func WithMetrics(m Metrics) Option {
	return func(s *ClientSession) { s.metrics = m }
}

// New builds a ClientSession over an already-constructed transport.
// The session does not dial; it takes ownership of t exclusively for
// its lifetime.
func New(t transport.Transport, opts ...Option) *ClientSession {
	defaultRoute, _ := epath.NewPortSegment(defaultRoutePort, defaultRouteLinkAddress)
	var routePath epath.Path
	routePath.Push(defaultRoute)

	s := &ClientSession{
		t:         t,
		logger:    logging.Nop(),
		state:     Disconnected,
		routePath: routePath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the session's current lifecycle state.
func (s *ClientSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect registers the session. For TCP this performs the
// RegisterSession round trip and stores the assigned handle; for UDP
// the transport's BeginSession is a no-op and the handle stays 0.
func (s *ClientSession) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Registering
	handle, err := s.t.BeginSession()
	if err != nil {
		s.state = Disconnected
		return &SessionError{Op: "connect", Err: err}
	}
	s.sessionHandle = handle
	s.state = Registered
	s.logger.Infof("session registered, handle=0x%08X", uint32(handle))
	return nil
}

// Disconnect issues UnregisterSession and tears the transport down;
// no reply is expected.
func (s *ClientSession) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Disconnected {
		return nil
	}
	err := s.t.CloseSession(s.sessionHandle)
	s.state = Disconnected
	s.sessionHandle = 0
	if err != nil {
		return &SessionError{Op: "disconnect", Err: err}
	}
	return nil
}

// SendNop fires an opaque keepalive payload; no reply is expected.
func (s *ClientSession) SendNop(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.SendNop(payload)
}

// callUnconnectedLocked wraps req in an UnconnectedSend routed via
// s.routePath, sends it, and awaits the matching SendRRData reply.
// Caller must hold s.mu.
func (s *ClientSession) callUnconnectedLocked(req cip.Request) (resp cip.Response, err error) {
	if s.metrics != nil {
		start := time.Now()
		defer func() {
			s.metrics.ObserveCall(fmt.Sprintf("0x%02X", req.Service), callOutcome(resp, err), time.Since(start))
		}()
	}

	if s.state != Registered {
		return cip.Response{}, &SessionError{Op: "call_service", Err: fmt.Errorf("session not registered (state=%s)", s.state)}
	}

	usReq, err := connmgr.NewUnconnectedSendRequest(req, s.routePath, unconnectedPriorityTick, unconnectedTimeoutTicks)
	if err != nil {
		return cip.Response{}, err
	}
	payload, err := usReq.Encode()
	if err != nil {
		return cip.Response{}, err
	}

	// Single in-flight request per session: the next ReadData is assumed
	// to be this call's reply, so no sender_context correlation is
	// needed on the wire. corrID exists purely for log correlation —
	// tying together the -> and <- lines (and anything a breaker or
	// metrics sink logs alongside them) for one call_service
	// invocation, the way a request id threads through a log line in
	// a server handler.
	corrID := xid.New().String()
	s.logger.Debugf("[%s] -> unconnected send, service=0x%02X\n%s", corrID, req.Service, utils.HexDump(payload))

	if err := s.t.SendUnconnected(s.sessionHandle, payload, 0); err != nil {
		return cip.Response{}, &SessionError{Op: "call_service", Err: err}
	}

	reply, err := s.t.ReadData()
	if err != nil {
		return cip.Response{}, &SessionError{Op: "call_service", Err: err}
	}
	if reply.Header.Command != eip.CommandSendRRData {
		return cip.Response{}, &SessionError{Op: "call_service", Err: fmt.Errorf("unexpected reply command %v", reply.Header.Command)}
	}
	if reply.Header.Status != eip.StatusSuccess {
		return cip.Response{}, &SessionError{Op: "call_service", Err: fmt.Errorf("encapsulation status 0x%08X", reply.Header.Status)}
	}

	sendData, err := eip.TryParseSendData(reply.Body)
	if err != nil {
		return cip.Response{}, err
	}
	item, ok := sendData.Items.FindFirst(eip.TypeUnconnectedData)
	if !ok {
		return cip.Response{}, &SessionError{Op: "call_service", Err: fmt.Errorf("reply missing Unconnected Data Item")}
	}
	data, ok := item.(eip.UnconnectedDataItem)
	if !ok {
		return cip.Response{}, &SessionError{Op: "call_service", Err: fmt.Errorf("unexpected item type for Unconnected Data")}
	}

	resp, err = cip.TryParseResponse(data.Data)
	if err != nil {
		return cip.Response{}, err
	}
	s.logger.Debugf("[%s] <- response, general_status=0x%02X", corrID, resp.GeneralStatus)
	return resp, nil
}

// callOutcome labels a call_service observation for metrics: "ok" on
// CIP success, "cip_error" when the device returned a non-zero
// general_status, or "transport_error" for anything that kept the
// request from completing a round trip at all.
func callOutcome(resp cip.Response, err error) string {
	if err != nil {
		return "transport_error"
	}
	if !resp.IsSuccess() {
		return "cip_error"
	}
	return "ok"
}

// CallService invokes an arbitrary service against (classID,
// instanceID), wrapped in UnconnectedSend via the session's route
// path, and returns the Message Router response (the caller checks
// resp.Err() for a non-zero general_status).
func (s *ClientSession) CallService(classID, instanceID uint32, service byte, data []byte) (cip.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callUnconnectedLocked(cip.NewServiceRequest(service, classID, instanceID, data))
}

// GetAttributeSingle reads one attribute via service 0x0E.
func (s *ClientSession) GetAttributeSingle(classID, instanceID, attributeID uint32) (cip.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callUnconnectedLocked(cip.NewGetAttributeSingleRequest(classID, instanceID, attributeID))
}

// SetAttributeSingle writes one attribute via service 0x10.
func (s *ClientSession) SetAttributeSingle(classID, instanceID, attributeID uint32, data []byte) (cip.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callUnconnectedLocked(cip.NewSetAttributeSingleRequest(classID, instanceID, attributeID, data))
}

// GetSupportedClasses issues GetAttributesAll (service 0x01) against
// MessageRouter (class 2, instance 1, attribute 1), returning the
// device's supported class ids sorted ascending.
func (s *ClientSession) GetSupportedClasses() ([]uint16, error) {
	req := cip.Request{
		Service: cip.ServiceGetAttributeAll,
		Path:    epath.ClassInstanceAttribute(uint32(cip.ClassMessageRouter), 1, 1),
	}
	s.mu.Lock()
	resp, err := s.callUnconnectedLocked(req)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return cip.TryParseSupportedClasses(resp.Data)
}

// ForwardOpen issues a ForwardOpen against the Connection Manager,
// wrapped in UnconnectedSend like any other service and routed via the
// session's route path, establishing a connected-messaging connection
// to req.ConnectionPath.
func (s *ClientSession) ForwardOpen(req connmgr.ForwardOpenRequest) (connmgr.ForwardOpenResponse, error) {
	body, err := req.Encode()
	if err != nil {
		return connmgr.ForwardOpenResponse{}, err
	}
	mrReq := cip.Request{
		Service: connmgr.ServiceForwardOpen,
		Path:    epath.ClassInstance(uint32(cip.ClassConnectionMgr), 1),
		Data:    body,
	}
	s.mu.Lock()
	resp, err := s.callUnconnectedLocked(mrReq)
	s.mu.Unlock()
	if err != nil {
		return connmgr.ForwardOpenResponse{}, err
	}
	if err := resp.Err(); err != nil {
		return connmgr.ForwardOpenResponse{}, err
	}
	return connmgr.TryParseForwardOpenResponse(resp.Data)
}

// ForwardClose tears down a connection opened by ForwardOpen.
func (s *ClientSession) ForwardClose(req connmgr.ForwardCloseRequest) (connmgr.ForwardCloseResponse, error) {
	body, err := req.Encode()
	if err != nil {
		return connmgr.ForwardCloseResponse{}, err
	}
	mrReq := cip.Request{
		Service: connmgr.ServiceForwardClose,
		Path:    epath.ClassInstance(uint32(cip.ClassConnectionMgr), 1),
		Data:    body,
	}
	s.mu.Lock()
	resp, err := s.callUnconnectedLocked(mrReq)
	s.mu.Unlock()
	if err != nil {
		return connmgr.ForwardCloseResponse{}, err
	}
	if err := resp.Err(); err != nil {
		return connmgr.ForwardCloseResponse{}, err
	}
	return connmgr.TryParseForwardCloseResponse(resp.Data)
}

// ListIdentity broadcasts/unicasts a ListIdentity request and parses
// the Identity items in the reply. session_handle is irrelevant here
// (ListIdentity precedes registration) so this works before Connect.
func (s *ClientSession) ListIdentity() ([]eip.ListIdentityItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.t.SendRaw(eip.Message{Header: eip.Header{Command: eip.CommandListIdentity}}); err != nil {
		return nil, err
	}
	reply, err := s.t.ReadData()
	if err != nil {
		return nil, err
	}
	return eip.TryParseListIdentityResponse(reply.Body)
}

// ListServices advertises the device's supported encapsulation services.
func (s *ClientSession) ListServices() ([]eip.ListServicesItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.t.SendRaw(eip.Message{Header: eip.Header{Command: eip.CommandListServices}}); err != nil {
		return nil, err
	}
	reply, err := s.t.ReadData()
	if err != nil {
		return nil, err
	}
	return eip.TryParseListServicesResponse(reply.Body)
}
