package clickhouse

import (
	"context"
	"fmt"

	"pump-trader/internal/domain"
	"pump-trader/internal/storage"
)

// TradeStore implements storage.TradeStore using ClickHouse.
// ReplacingMergeTree does not reject duplicates, so Append checks trade_id first.
type TradeStore struct {
	conn *Conn
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
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

	exists, err := s.exists(ctx, t.TradeID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO closed_trades (`+tradeColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		t.TradeID, t.Mint, t.Symbol, t.Name, t.Creator,
		t.EntryTime.UTC(), t.EntryPrice, t.EntrySOL, t.EntryTokens, t.EntrySignature,
		t.ExitTime.UTC(), t.ExitPrice, t.ExitSOL, t.ExitSignature, t.ExitReason, t.ExitDetail,
		t.EntryFeeSOL, t.ExitFeeSOL, t.FeesPaidSOL,
		t.PnLSOL, t.PnLPercent, string(t.Outcome), t.HoldSeconds, t.HighestPrice,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.ClosedTrade, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+tradeColumns+` FROM closed_trades FINAL WHERE trade_id = ?`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("query by trade id: %w", err)
	}
	defer rows.Close()

	trades, err := scanTrades(rows)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, storage.ErrNotFound
	}
	return trades[0], nil
}

// List retrieves all trades ordered by exit time.
func (s *TradeStore) List(ctx context.Context) ([]*domain.ClosedTrade, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+tradeColumns+` FROM closed_trades FINAL ORDER BY exit_time ASC, trade_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *TradeStore) exists(ctx context.Context, tradeID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM closed_trades WHERE trade_id = ?`, tradeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanTrades(rows chRows) ([]*domain.ClosedTrade, error) {
	var trades []*domain.ClosedTrade

	for rows.Next() {
		var t domain.ClosedTrade
		var outcome string

		err := rows.Scan(
			&t.TradeID, &t.Mint, &t.Symbol, &t.Name, &t.Creator,
			&t.EntryTime, &t.EntryPrice, &t.EntrySOL, &t.EntryTokens, &t.EntrySignature,
			&t.ExitTime, &t.ExitPrice, &t.ExitSOL, &t.ExitSignature, &t.ExitReason, &t.ExitDetail,
			&t.EntryFeeSOL, &t.ExitFeeSOL, &t.FeesPaidSOL,
			&t.PnLSOL, &t.PnLPercent, &outcome, &t.HoldSeconds, &t.HighestPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("scan closed trade row: %w", err)
		}

		t.Outcome = domain.Outcome(outcome)
		t.EntryTime = t.EntryTime.UTC()
		t.ExitTime = t.ExitTime.UTC()
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closed trade rows: %w", err)
	}
	return trades, nil
}
