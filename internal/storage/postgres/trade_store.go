package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pump-trader/internal/domain"
	"pump-trader/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, mint, symbol, name, creator,
	entry_time, entry_price, entry_sol, entry_tokens, entry_signature,
	exit_time, exit_price, exit_sol, exit_signature, exit_reason, exit_detail,
	entry_fee_sol, exit_fee_sol, fees_paid_sol,
	pnl_sol, pnl_percent, outcome, hold_seconds, highest_price
`

// Append adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Append(ctx context.Context, t *domain.ClosedTrade) error {
	if err := storage.ValidateTrade(t); err != nil {
		return err
	}

	query := `
		INSERT INTO closed_trades (` + tradeColumns + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16,
			$17, $18, $19,
			$20, $21, $22, $23, $24
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.Mint, t.Symbol, t.Name, t.Creator,
		t.EntryTime, t.EntryPrice, t.EntrySOL, t.EntryTokens, t.EntrySignature,
		t.ExitTime, t.ExitPrice, t.ExitSOL, t.ExitSignature, t.ExitReason, t.ExitDetail,
		t.EntryFeeSOL, t.ExitFeeSOL, t.FeesPaidSOL,
		t.PnLSOL, t.PnLPercent, string(t.Outcome), t.HoldSeconds, t.HighestPrice,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert closed trade: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.ClosedTrade, error) {
	query := `SELECT ` + tradeColumns + ` FROM closed_trades WHERE trade_id = $1`

	t, err := scanTrade(s.pool.QueryRow(ctx, query, tradeID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get closed trade by id: %w", err)
	}
	return t, nil
}

// List retrieves all trades ordered by exit time.
func (s *TradeStore) List(ctx context.Context) ([]*domain.ClosedTrade, error) {
	query := `SELECT ` + tradeColumns + ` FROM closed_trades ORDER BY exit_time ASC, trade_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list closed trades: %w", err)
	}
	defer rows.Close()

	var trades []*domain.ClosedTrade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan closed trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closed trade rows: %w", err)
	}
	return trades, nil
}

// scanTrade scans a single row into a ClosedTrade.
func scanTrade(row pgx.Row) (*domain.ClosedTrade, error) {
	var t domain.ClosedTrade
	var outcome string

	err := row.Scan(
		&t.TradeID, &t.Mint, &t.Symbol, &t.Name, &t.Creator,
		&t.EntryTime, &t.EntryPrice, &t.EntrySOL, &t.EntryTokens, &t.EntrySignature,
		&t.ExitTime, &t.ExitPrice, &t.ExitSOL, &t.ExitSignature, &t.ExitReason, &t.ExitDetail,
		&t.EntryFeeSOL, &t.ExitFeeSOL, &t.FeesPaidSOL,
		&t.PnLSOL, &t.PnLPercent, &outcome, &t.HoldSeconds, &t.HighestPrice,
	)
	if err != nil {
		return nil, err
	}

	t.Outcome = domain.Outcome(outcome)
	t.EntryTime = t.EntryTime.UTC()
	t.ExitTime = t.ExitTime.UTC()
	return &t, nil
}
