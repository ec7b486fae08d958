// Package breaker fronts a ClientSession with reconnect-on-failure and
// a circuit breaker, so a caller that wants resilience can opt in one
// layer above the session instead of baking retries into it.
package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/openenip/goenip/internal/logging"
	"github.com/openenip/goenip/pkg/session"
)

// Dialer builds and connects a fresh session. Guard calls it once at
// construction and again every time the underlying session needs to
// be replaced after a failure.
type Dialer func() (*session.ClientSession, error)

// Guard wraps a ClientSession with a gobreaker.CircuitBreaker.
// Consecutive SessionErrors trip the breaker open; while open, Call
// fails fast without touching the wire. On a SessionError, Guard
// drops the failed session and redials before the breaker's next
// half-open probe, following the same "invalidate and reconnect on
// next use" shape as a retrying client wrapper, minus the sleep loop.
type Guard struct {
	mu      sync.Mutex
	dial    Dialer
	logger  logging.Logger
	cb      *gobreaker.CircuitBreaker[any]
	current *session.ClientSession
}

// Option configures a Guard at construction.
type Option func(*guardConfig)

type guardConfig struct {
	logger            logging.Logger
	maxRequests       uint32
	openTimeout       time.Duration
	consecutiveToTrip uint32
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(c *guardConfig) { c.logger = l }
}

// WithOpenTimeout sets how long the breaker stays open before allowing
// a half-open probe. Default is 30s.
func WithOpenTimeout(d time.Duration) Option {
	return func(c *guardConfig) { c.openTimeout = d }
}

// WithConsecutiveFailures sets how many consecutive SessionErrors trip
// the breaker open. Default is 3.
func WithConsecutiveFailures(n uint32) Option {
	return func(c *guardConfig) { c.consecutiveToTrip = n }
}

// New dials an initial session and wraps it in a Guard.
func New(dial Dialer, opts ...Option) (*Guard, error) {
	cfg := &guardConfig{
		logger:            logging.Nop(),
		maxRequests:       1,
		openTimeout:       30 * time.Second,
		consecutiveToTrip: 3,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	g := &Guard{dial: dial, logger: cfg.logger}
	settings := gobreaker.Settings{
		Name:        "goenip-session",
		MaxRequests: cfg.maxRequests,
		Timeout:     cfg.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.consecutiveToTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	g.cb = gobreaker.NewCircuitBreaker[any](settings)

	sess, err := dial()
	if err != nil {
		return nil, fmt.Errorf("breaker: initial dial: %w", err)
	}
	g.current = sess
	return g, nil
}

// Call runs fn against the guarded session through the circuit
// breaker. A *session.SessionError causes the session to be
// disconnected and redialed before Call returns, so the next Call
// starts from a fresh connection attempt rather than repeating the
// same broken one.
func (g *Guard) Call(fn func(*session.ClientSession) (any, error)) (any, error) {
	return g.cb.Execute(func() (any, error) {
		g.mu.Lock()
		sess := g.current
		g.mu.Unlock()

		result, err := fn(sess)
		if err == nil {
			return result, nil
		}

		var sessErr *session.SessionError
		if errors.As(err, &sessErr) {
			g.redial(sess)
		}
		return nil, err
	})
}

func (g *Guard) redial(failed *session.ClientSession) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != failed {
		return // someone else already redialed
	}
	_ = failed.Disconnect()
	newSess, err := g.dial()
	if err != nil {
		g.logger.Warnf("breaker: redial failed: %v", err)
		return
	}
	g.current = newSess
}

// Session returns the currently guarded session, for callers that
// need direct access (e.g. to inspect State()) alongside Call.
func (g *Guard) Session() *session.ClientSession {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}
