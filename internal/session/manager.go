// Package session implements the SessionManager: a registry of
// sessions keyed by id, each with its own worker goroutine, bounded
// control inbox, and fan-out event bus.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"banksim/internal/events"
)

// auditSink receives every event published on a session's bus, keyed by
// session id. Satisfied by *audit.Writer without importing it here, so the
// core session package stays unaware of durable storage.
type auditSink interface {
	Forward(sessionID string, stream <-chan events.Event)
}

// Manager is the session registry.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	audit    auditSink
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// SetAuditSink attaches an optional durable mirror. Every session created
// after this call has its event stream forwarded to sink as well as to its
// regular subscribers. Passing nil disables forwarding.
func (m *Manager) SetAuditSink(sink auditSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = sink
}

// Init creates a new session in INITIALIZED state.
func (m *Manager) Init(cfg Config) *Session {
	id := uuid.NewString()
	s := newSession(id, cfg)

	m.mu.Lock()
	m.sessions[id] = s
	sink := m.audit
	m.mu.Unlock()

	if sink != nil {
		stream, _ := s.Subscribe()
		go sink.Forward(id, stream)
	}
	return s
}

// Get returns the session by id, or ErrNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Start transitions a session from INITIALIZED to RUNNING and launches its
// worker goroutine.
func (m *Manager) Start(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if !s.state.canStart() {
		before := s.state
		s.mu.Unlock()
		return newTransitionError("start", before)
	}
	s.state = StateRunning
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.bus.Publish(ctx, s.InitEvent())
	go s.run(ctx)
	return nil
}

// Pause enqueues a pause command, applied by the worker between steps.
func (m *Manager) Pause(id string) error {
	return m.sendCommand(id, Command{Kind: CommandPause}, State.canPause)
}

// Resume enqueues a resume command.
func (m *Manager) Resume(id string) error {
	return m.sendCommand(id, Command{Kind: CommandResume}, State.canResume)
}

// Stop enqueues a terminal stop command.
func (m *Manager) Stop(id string) error {
	return m.sendCommand(id, Command{Kind: CommandStop}, State.canStop)
}

// Control enqueues an arbitrary control command (delete_bank, add_capital,
// trigger_default, shock). Pause/Resume/Stop have dedicated precondition-checked
// methods; this one is for the remaining commands which have no state
// precondition beyond the session running or paused.
func (m *Manager) Control(id string, cmd Command) error {
	return m.sendCommand(id, cmd, State.canStop)
}

func (m *Manager) sendCommand(id string, cmd Command, precondition func(State) bool) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if !precondition(s.State()) {
		return newTransitionError(string(cmd.Kind), s.State())
	}
	select {
	case s.controlInbox <- cmd:
		return nil
	default:
		return ErrInboxFull
	}
}

// Destroy stops the session (if still active) and removes it from the
// registry, releasing its buffers and unblocking subscribers.
func (m *Manager) Destroy(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if !s.state.terminal() {
		s.state = StateStopped
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.bus.CloseAll()

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}
