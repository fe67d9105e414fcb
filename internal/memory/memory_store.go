package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type storedSession struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryStore keeps sessions in process. Sessions are stored as JSON so
// callers never share state with the store.
type InMemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]storedSession
	now      func() time.Time
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		ttl:      ttl,
		sessions: make(map[string]storedSession),
		now:      time.Now,
	}
}

func (s *InMemoryStore) LoadSession(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.Lock()
	stored, ok := s.sessions[sessionID]
	if ok && s.expired(stored) {
		delete(s.sessions, sessionID)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return NewSession(sessionID), nil
	}

	var session Session
	if err := json.Unmarshal(stored.data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session data: %w", err)
	}
	return &session, nil
}

func (s *InMemoryStore) SaveSession(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry := storedSession{data: data}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.sessions[session.SessionID] = entry
	return nil
}

func (s *InMemoryStore) ClearSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *InMemoryStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[sessionID]
	return ok && !s.expired(stored), nil
}

// Len returns the number of unexpired sessions.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.sessions {
		if !s.expired(e) {
			n++
		}
	}
	return n
}

// Sweep drops expired sessions and returns how many it removed.
func (s *InMemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *InMemoryStore) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
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

func (s *InMemoryStore) expired(e storedSession) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}
