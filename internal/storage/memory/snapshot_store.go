package memory

import (
	"context"
	"fmt"
	"sync"
)

// SnapshotStore keeps page bodies in memory and returns memory:// URIs.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewSnapshotStore creates an empty SnapshotStore.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{data: make(map[string][]byte)}
}

// SaveSnapshot stores a copy of body under key.
func (s *SnapshotStore) SaveSnapshot(_ context.Context, key string, body []byte) (string, error) {
	if key == "" {
		return "", fmt.Errorf("snapshot key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), body...)
	return "memory://" + key, nil
}

// Snapshot returns the body saved under key.
func (s *SnapshotStore) Snapshot(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[key]
	return b, ok
}

// Len returns the number of saved snapshots.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
