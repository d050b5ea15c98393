package redis

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"

	"pump-trader/internal/storage"
)

// SeenMintStore keeps seen mints in the set <prefix>:seen_mints.
type SeenMintStore struct {
	rdb    *redis.Client
	prefix string
}

// NewSeenMintStore creates a seen-mint store.
func NewSeenMintStore(rdb *redis.Client, prefix string) *SeenMintStore {
	return &SeenMintStore{rdb: rdb, prefix: prefix}
}

var _ storage.SeenMintStore = (*SeenMintStore)(nil)

// IsMintSeen checks set membership.
func (s *SeenMintStore) IsMintSeen(ctx context.Context, mint string) (bool, error) {
	if mint == "" {
		return false, storage.ErrInvalidInput
	}
	return s.rdb.SIsMember(ctx, seenMintsKey(s.prefix), mint).Result()
}

// MarkMintSeen adds mint to the set.
func (s *SeenMintStore) MarkMintSeen(ctx context.Context, mint string) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}
	return s.rdb.SAdd(ctx, seenMintsKey(s.prefix), mint).Err()
}

// LoadSeenMints returns the set, sorted.
func (s *SeenMintStore) LoadSeenMints(ctx context.Context) ([]string, error) {
	mints, err := s.rdb.SMembers(ctx, seenMintsKey(s.prefix)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(mints)
	return mints, nil
}
