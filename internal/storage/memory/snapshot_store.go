package memory

import (
	"context"
	"sync"

	"pump-trader/internal/domain"
	"pump-trader/internal/storage"
)

// SnapshotStore keeps the snapshot in memory. Used for paper runs without persistence and in tests.
type SnapshotStore struct {
	mu   sync.RWMutex
	snap *domain.Snapshot
}

// NewSnapshotStore creates an empty snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Save stores a copy of snap.
func (s *SnapshotStore) Save(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *snap
	s.snap = &copy
	return nil
}

// Load returns nil, nil when nothing was saved.
func (s *SnapshotStore) Load(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, nil
	}
	copy := *s.snap
	return &copy, nil
}

// Reset drops the snapshot.
func (s *SnapshotStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	return nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
