package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"portfolio/internal/domain"

	"github.com/google/uuid"
)

// Session is one open explorer. Each session owns an independent Navigator.
type Session struct {
	ID        string
	Explorer  *Navigator
	CreatedAt time.Time

	lastAccessed time.Time
}

// SessionStore keeps explorer sessions in memory and evicts idle ones.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session

	newExplorer func() *Navigator
	idleTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewSessionStore creates a store. newExplorer builds the navigator for every new
// session. An idleTimeout <= 0 disables eviction.
func NewSessionStore(newExplorer func() *Navigator, idleTimeout time.Duration, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*Session),
		newExplorer: newExplorer,
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      logger,
	}
}

// Create registers a new session with a fresh, idle navigator.
func (s *SessionStore) Create() *Session {
	now := s.now()
	session := &Session{
		ID:           uuid.NewString(),
		Explorer:     s.newExplorer(),
		CreatedAt:    now,
		lastAccessed: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Debug("explorer session created", "session_id", session.ID)
	return session
}

// Get returns a live session and marks it as used.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	now := s.now()
	if s.expired(session, now) {
		delete(s.sessions, id)
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	session.lastAccessed = now
	return session, nil
}

// Close removes a session.
func (s *SessionStore) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of sessions, including idle ones not yet swept.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts idle sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, session := range s.sessions {
		if s.expired(session, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("evicted idle explorer sessions",
			"removed", removed,
			"remaining", len(s.sessions),
		)
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	if s.idleTimeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *SessionStore) expired(session *Session, now time.Time) bool {
	return s.idleTimeout > 0 && now.Sub(session.lastAccessed) > s.idleTimeout
}
