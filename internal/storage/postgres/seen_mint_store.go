package postgres

import (
	"context"

	"pump-trader/internal/storage"
)

// SeenMintStore is a PostgreSQL implementation of storage.SeenMintStore
// backed by the seen_mints table.
type SeenMintStore struct {
	pool *Pool
}

// NewSeenMintStore creates a new PostgreSQL seen-mint store.
func NewSeenMintStore(pool *Pool) *SeenMintStore {
	return &SeenMintStore{pool: pool}
}

var _ storage.SeenMintStore = (*SeenMintStore)(nil)

// IsMintSeen checks if a mint address has been processed.
func (s *SeenMintStore) IsMintSeen(ctx context.Context, mint string) (bool, error) {
	if mint == "" {
		return false, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM seen_mints WHERE mint = $1)
	`, mint)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// MarkMintSeen records that a mint address has been processed.
func (s *SeenMintStore) MarkMintSeen(ctx context.Context, mint string) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO seen_mints (mint, seen_at)
		VALUES ($1, NOW())
		ON CONFLICT (mint) DO NOTHING
	`, mint)
	return err
}

// LoadSeenMints returns all seen mints, sorted.
func (s *SeenMintStore) LoadSeenMints(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT mint FROM seen_mints ORDER BY mint
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mints []string
	for rows.Next() {
		var mint string
		if err := rows.Scan(&mint); err != nil {
			return nil, err
		}
		mints = append(mints, mint)
	}
	return mints, rows.Err()
}
