package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"pump-trader/internal/domain"
	"pump-trader/internal/storage"
)

// SnapshotStore keeps the engine snapshot as a JSONB document in a single-row table,
// keyed by bot name so several bots can share one database.
type SnapshotStore struct {
	pool *Pool
	bot  string
}

// NewSnapshotStore creates a snapshot store for bot.
func NewSnapshotStore(pool *Pool, bot string) *SnapshotStore {
	return &SnapshotStore{pool: pool, bot: bot}
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Save upserts the snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO bot_snapshots (bot, state, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (bot) DO UPDATE
		SET state = EXCLUDED.state,
		    updated_at = NOW()
	`, s.bot, doc)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns nil, nil when no row exists.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM bot_snapshots WHERE bot = $1`, s.bot).Scan(&doc)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return nil, fmt.Errorf("%w: bot %s: %v", storage.ErrCorruptSnapshot, s.bot, err)
	}
	return &snap, nil
}

// Reset deletes the bot's row.
func (s *SnapshotStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM bot_snapshots WHERE bot = $1`, s.bot); err != nil {
		return fmt.Errorf("reset snapshot: %w", err)
	}
	return nil
}
