package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/city"
	"github.com/i474232898/weather-dashboard/internal/observability"
)

var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")
	// ErrTooManySessions is returned by Create when MaxSessions are live.
	ErrTooManySessions = errors.New("too many active sessions")
)

const minReapInterval = time.Second

// ManagerOptions holds optional Manager settings.
type ManagerOptions struct {
	Clock clockwork.Clock
	// IdleTTL closes sessions nobody has touched for this long. Zero keeps
	// them until deleted.
	IdleTTL time.Duration
	// MaxSessions caps live sessions; zero is unlimited.
	MaxSessions int
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// Manager creates, finds and tears down sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	resolver    *city.Resolver
	service     DashboardService
	clock       clockwork.Clock
	idleTTL     time.Duration
	maxSessions int
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewManager creates a Manager.
func NewManager(resolver *city.Resolver, service DashboardService, opts ManagerOptions) *Manager {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		resolver:    resolver,
		service:     service,
		clock:       opts.Clock,
		idleTTL:     opts.IdleTTL,
		maxSessions: opts.MaxSessions,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
}

// Create starts an idle session.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	s := newSession(uuid.NewString(), m.resolver, m.service, m.clock, m.logger, m.metrics)
	m.sessions[s.id] = s
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveSessions.Inc()
	}
	m.logger.Debug("session created", zap.String("session", s.id))
	return s, nil
}

// Get returns the session with id and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	s.touch()
	return s, nil
}

// Delete removes the session and cancels its pending work.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	m.close(s)
	m.logger.Debug("session deleted", zap.String("session", id))
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ReapIdle closes every session idle for longer than IdleTTL and returns how
// many were closed.
func (m *Manager) ReapIdle() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.clock.Now().Add(-m.idleTTL)

	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.lastUsed().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		m.close(s)
	}
	if len(idle) > 0 {
		m.logger.Info("reaped idle sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Run reaps idle sessions periodically until ctx ends. It returns at once
// when IdleTTL is zero.
func (m *Manager) Run(ctx context.Context) {
	if m.idleTTL <= 0 {
		return
	}
	interval := m.idleTTL / 2
	if interval < minReapInterval {
		interval = minReapInterval
	}

	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.ReapIdle()
		}
	}
}

// Close tears down every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		m.close(s)
	}
}

func (m *Manager) close(s *Session) {
	s.Close()
	if m.metrics != nil {
		m.metrics.ActiveSessions.Dec()
	}
}
