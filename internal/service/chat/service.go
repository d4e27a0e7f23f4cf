package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/line-relay/backend/internal/model/chat"
	"github.com/zhouzirui/line-relay/backend/internal/model/persona"
)

var (
	ErrUserRequired    = errors.New("user id is required")
	ErrPersonaRequired = errors.New("persona key is required")
)

// Service owns per-user conversational state. Sessions live for the process lifetime.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	now      func() time.Time
}

// NewService bootstraps the in-memory session store.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreate returns the session for userID, creating it with the default persona on first
// use. created reports whether this call created it.
func (s *Service) GetOrCreate(_ context.Context, userID string) (session chat.Session, created bool, err error) {
	if userID == "" {
		return chat.Session{}, false, ErrUserRequired
	}

	s.mu.RLock()
	session, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return session, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have created it between the two locks.
	if existing, ok := s.sessions[userID]; ok {
		return existing, false, nil
	}

	now := s.now()
	session = chat.Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		PersonaKey: persona.DefaultID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.sessions[userID] = session
	return session, true, nil
}

// SetPersona switches the active persona, creating the session if needed.
func (s *Service) SetPersona(ctx context.Context, userID, personaKey string) (chat.Session, error) {
	if personaKey == "" {
		return chat.Session{}, ErrPersonaRequired
	}
	if _, _, err := s.GetOrCreate(ctx, userID); err != nil {
		return chat.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.sessions[userID]
	session.PersonaKey = personaKey
	session.UpdatedAt = s.now()
	s.sessions[userID] = session
	return session, nil
}

// GetSession retrieves a session without creating it.
func (s *Service) GetSession(_ context.Context, userID string) (chat.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// Len reports how many sessions are held.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
