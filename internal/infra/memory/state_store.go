package memory

import (
	"context"
	"sync"

	"classroom-sim-service/internal/domain"
)

// StateStore keeps classroom blobs in process memory (useful for tests/demos).
type StateStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewStateStore() *StateStore {
	return &StateStore{blobs: make(map[string][]byte)}
}

func (s *StateStore) Load(_ context.Context, classroomID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[blobKey(classroomID, key)]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *StateStore) Save(_ context.Context, classroomID, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[blobKey(classroomID, key)] = append([]byte(nil), data...)
	return nil
}

func blobKey(classroomID, key string) string {
	return classroomID + "/" + key
}
