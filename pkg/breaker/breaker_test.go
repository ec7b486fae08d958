package breaker

import (
	"errors"
	"testing"

	"github.com/openenip/goenip/pkg/eip"
	"github.com/openenip/goenip/pkg/session"
)

// stubTransport is a minimal transport.Transport whose BeginSession
// can be scripted to fail, to exercise Guard's redial path without a
// real socket.
type stubTransport struct {
	beginErr error
	handle   eip.SessionHandle
	closed   bool
}

func (s *stubTransport) BeginSession() (eip.SessionHandle, error) { return s.handle, s.beginErr }
func (s *stubTransport) CloseSession(eip.SessionHandle) error     { s.closed = true; return nil }
func (s *stubTransport) SendUnconnected(eip.SessionHandle, []byte, uint16) error {
	return errors.New("stub: no wire")
}
func (s *stubTransport) SendConnected(eip.SessionHandle, uint32, []byte) error {
	return errors.New("stub: no wire")
}
func (s *stubTransport) SendNop([]byte) error         { return nil }
func (s *stubTransport) SendRaw(eip.Message) error    { return nil }
func (s *stubTransport) ReadData() (eip.Message, error) {
	return eip.Message{}, errors.New("stub: no wire")
}

func dialerSequence(handles ...eip.SessionHandle) Dialer {
	i := 0
	return func() (*session.ClientSession, error) {
		h := handles[i]
		if i < len(handles)-1 {
			i++
		}
		st := &stubTransport{handle: h}
		sess := session.New(st)
		if err := sess.Connect(); err != nil {
			return nil, err
		}
		return sess, nil
	}
}

func TestNewDialsInitialSession(t *testing.T) {
	g, err := New(dialerSequence(1))
	if err != nil {
		t.Fatal(err)
	}
	if g.Session().State() != session.Registered {
		t.Fatalf("got state %v", g.Session().State())
	}
}

func TestNewPropagatesDialFailure(t *testing.T) {
	_, err := New(func() (*session.ClientSession, error) { return nil, errors.New("refused") })
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCallRedialsOnSessionError(t *testing.T) {
	g, err := New(dialerSequence(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	first := g.Session()

	_, callErr := g.Call(func(s *session.ClientSession) (any, error) {
		// Force the session into an unregistered state so CallService
		// returns a *session.SessionError, the trigger Guard watches for.
		_ = s.Disconnect()
		return s.CallService(1, 1, 0x0E, nil)
	})
	if callErr == nil {
		t.Fatal("expected error")
	}

	if g.Session() == first {
		t.Fatal("expected Guard to have redialed a new session")
	}
	if g.Session().State() != session.Registered {
		t.Fatalf("redialed session not registered: %v", g.Session().State())
	}
}

func TestCallSucceedsWhenOperationSucceeds(t *testing.T) {
	g, err := New(dialerSequence(1))
	if err != nil {
		t.Fatal(err)
	}
	result, err := g.Call(func(s *session.ClientSession) (any, error) {
		return s.State(), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if result != session.Registered {
		t.Fatalf("got %v", result)
	}
}
