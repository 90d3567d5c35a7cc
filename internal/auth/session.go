package auth

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Session scopes a Manager's lifetime. Begin marks the session active;
// Close runs the manager's cleanup exactly once, no matter how many exit
// paths reach it. The intended shape is:
//
//	sess := auth.Begin(manager)
//	defer sess.Close()
type Session struct {
	ID      uuid.UUID
	manager *Manager
	logger  *slog.Logger

	active    atomic.Bool
	closeOnce sync.Once
}

// Begin starts an authentication session over the given manager.
func Begin(manager *Manager, opts ...SessionOption) *Session {
	s := &Session{
		ID:      uuid.New(),
		manager: manager,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.active.Store(true)
	s.logger.Info("starting authentication session", "session_id", s.ID)
	return s
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the session logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// Manager returns the wrapped token manager.
func (s *Session) Manager() *Manager { return s.manager }

// Close ends the session and cleans up tokens. Only the first call has any
// effect; later calls return immediately.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.logger.Info("ending authentication session", "session_id", s.ID)
		s.active.Store(false)
		s.manager.CleanupTokens()
	})
}

// IsActive reports whether the session has been started and not yet closed.
func (s *Session) IsActive() bool {
	return s.active.Load()
}
