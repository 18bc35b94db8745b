package memory

import (
	"sync"

	"classroom-sim-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	factory  app.SessionFactory
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(factory app.SessionFactory) *SessionStore {
	return &SessionStore{
		factory:  factory,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(classroomID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[classroomID]; ok {
		return session
	}
	session := s.factory(classroomID)
	s.sessions[classroomID] = session
	return session
}

func (s *SessionStore) Get(classroomID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[classroomID]
	return session, ok
}

func (s *SessionStore) DeleteIfIdle(classroomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[classroomID]
	if !ok {
		return
	}
	if session.IsIdle() {
		delete(s.sessions, classroomID)
	}
}

// Touch is a no-op; in-process sessions never expire.
func (s *SessionStore) Touch(string) {}

func (s *SessionStore) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*app.Session)
	s.mu.Unlock()
	for _, session := range sessions {
		session.Stop()
	}
}
