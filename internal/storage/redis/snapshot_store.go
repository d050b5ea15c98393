package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pump-trader/internal/domain"
	"pump-trader/internal/storage"
)

// SnapshotStore keeps the snapshot as a JSON string under <prefix>:snapshot.
type SnapshotStore struct {
	rdb    *redis.Client
	prefix string
}

// NewSnapshotStore creates a snapshot store.
func NewSnapshotStore(rdb *redis.Client, prefix string) *SnapshotStore {
	return &SnapshotStore{rdb: rdb, prefix: prefix}
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Save overwrites the snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey(s.prefix), data, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns nil, nil when the key does not exist.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	data, err := s.rdb.Get(ctx, snapshotKey(s.prefix)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrCorruptSnapshot, snapshotKey(s.prefix), err)
	}
	return &snap, nil
}

// Reset deletes the snapshot key.
func (s *SnapshotStore) Reset(ctx context.Context) error {
	if err := s.rdb.Del(ctx, snapshotKey(s.prefix)).Err(); err != nil {
		return fmt.Errorf("reset snapshot: %w", err)
	}
	return nil
}
