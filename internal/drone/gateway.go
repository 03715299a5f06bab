package drone

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fieldrelay/internal/logger"
	"fieldrelay/internal/metrics"
)

// Gateway owns the drone sessions. Each actuator gets exactly one
// session; commands for different sessions proceed independently.
type Gateway struct {
	limits  Limits
	timeout time.Duration
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewGateway creates an empty gateway.
func NewGateway(limits Limits, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		limits:   limits,
		timeout:  timeout,
		logger:   log,
		metrics:  m,
		sessions: make(map[string]*Session),
	}
}

// Register creates the session for an actuator. Registering the same id
// twice is an error; there is exactly one session per actuator.
func (g *Gateway) Register(id string, sink ActuatorSink) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrSessionClosed
	}
	if _, exists := g.sessions[id]; exists {
		return nil, fmt.Errorf("session %q already registered", id)
	}

	session := NewSession(id, sink, g.limits, g.timeout, g.logger, g.metrics)
	g.sessions[id] = session
	return session, nil
}

// Session returns the session for id, or nil.
func (g *Gateway) Session(id string) *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[id]
}

// Submit routes cmd to the named session.
func (g *Gateway) Submit(ctx context.Context, id string, cmd Command) Outcome {
	session := g.Session(id)
	if session == nil {
		g.metrics.CommandsRejected.Inc()
		return Outcome{Status: StatusRejected, Err: fmt.Errorf("%w: unknown session %q", ErrNotConnected, id)}
	}
	return session.Submit(ctx, cmd)
}

// Close rejects further submissions and tears down every session.
// In-flight commands complete: Session.Submit holds each session's
// command mutex, so close waits its turn per session.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	sessions := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		sessions = append(sessions, s)
	}
	g.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
