package redis

import (
	"context"
	"sync"
	"time"

	"classroom-sim-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - Live sessions stay in a local map so the in-process single-writer lock
//     and broadcast keep working.
//   - Redis marks which classrooms are live on this instance, so operators and
//     other instances can see where a classroom is being taught.
type SessionStore struct {
	client   *redis.Client
	factory  app.SessionFactory
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, factory app.SessionFactory, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		factory:  factory,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(classroomID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[classroomID]; ok {
		// refresh liveness on every reuse
		_ = s.client.Expire(context.Background(), s.key(classroomID), s.ttl).Err()
		return session
	}
	session := s.factory(classroomID)
	s.sessions[classroomID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(classroomID), "1", s.ttl).Err()
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
		_ = s.client.Del(context.Background(), s.key(classroomID)).Err()
	}
}

// Touch refreshes (or restores) the liveness marker of a local session.
func (s *SessionStore) Touch(classroomID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[classroomID]; !ok {
		return
	}
	_ = s.client.Set(context.Background(), s.key(classroomID), "1", s.ttl).Err()
}

// Close stops local sessions and clears their liveness markers.
func (s *SessionStore) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*app.Session)
	s.mu.Unlock()
	for id, session := range sessions {
		session.Stop()
		_ = s.client.Del(context.Background(), s.key(id)).Err()
	}
}

func (s *SessionStore) key(classroomID string) string {
	return "classroom:session:" + classroomID
}
