package memory

import (
	"context"
	"sort"
	"sync"

	"pump-trader/internal/storage"
)

// SeenMintStore is an in-memory implementation of storage.SeenMintStore.
type SeenMintStore struct {
	mu        sync.RWMutex
	seenMints map[string]bool
}

// NewSeenMintStore creates a new in-memory seen-mint store.
func NewSeenMintStore() *SeenMintStore {
	return &SeenMintStore{
		seenMints: make(map[string]bool),
	}
}

// IsMintSeen checks if a mint address has been processed.
func (s *SeenMintStore) IsMintSeen(_ context.Context, mint string) (bool, error) {
	if mint == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.seenMints[mint], nil
}

// MarkMintSeen records that a mint address has been processed.
func (s *SeenMintStore) MarkMintSeen(_ context.Context, mint string) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seenMints[mint] = true
	return nil
}

// LoadSeenMints returns all seen mints, sorted.
func (s *SeenMintStore) LoadSeenMints(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mints := make([]string, 0, len(s.seenMints))
	for mint := range s.seenMints {
		mints = append(mints, mint)
	}
	sort.Strings(mints)
	return mints, nil
}

var _ storage.SeenMintStore = (*SeenMintStore)(nil)
