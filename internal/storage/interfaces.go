package storage

import (
	"context"

	"pump-trader/internal/domain"
)

// SnapshotStore persists the engine's resumable state.
type SnapshotStore interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, s *domain.Snapshot) error

	// Load returns the stored snapshot, or nil, nil if none was saved.
	// Returns ErrCorruptSnapshot if the stored state cannot be decoded.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Reset discards the stored snapshot. Resetting an empty store is not an error.
	Reset(ctx context.Context) error
}

// TradeSink receives closed trades.
type TradeSink interface {
	// Append records a trade. Returns ErrDuplicateKey if trade_id was already recorded.
	Append(ctx context.Context, t *domain.ClosedTrade) error
}

// TradeStore is a queryable trade log.
type TradeStore interface {
	TradeSink

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.ClosedTrade, error)

	// List returns every trade ordered by exit time ASC, trade_id ASC.
	List(ctx context.Context) ([]*domain.ClosedTrade, error)
}

// SeenMintStore remembers mints already evaluated so a restart never trades the same launch twice.
type SeenMintStore interface {
	// IsMintSeen checks if a mint address has been processed.
	IsMintSeen(ctx context.Context, mint string) (bool, error)

	// MarkMintSeen records that a mint address has been processed. Idempotent.
	MarkMintSeen(ctx context.Context, mint string) error

	// LoadSeenMints returns all seen mints (for warming the in-memory cache).
	LoadSeenMints(ctx context.Context) ([]string, error)
}
