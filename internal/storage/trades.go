package storage

import (
	"context"
	"errors"
	"sort"

	"pump-trader/internal/domain"
)

// MultiSink appends each trade to every sink. All sinks are attempted;
// their errors are joined.
type MultiSink []TradeSink

// Append implements TradeSink.
func (m MultiSink) Append(ctx context.Context, t *domain.ClosedTrade) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ TradeSink = MultiSink(nil)

// ValidateTrade rejects trades that cannot be keyed.
func ValidateTrade(t *domain.ClosedTrade) error {
	if t == nil || t.TradeID == "" || t.Mint == "" {
		return ErrInvalidInput
	}
	return nil
}

// SortTrades orders trades by exit time ASC, trade_id ASC.
func SortTrades(trades []*domain.ClosedTrade) {
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].ExitTime.Equal(trades[j].ExitTime) {
			return trades[i].ExitTime.Before(trades[j].ExitTime)
		}
		return trades[i].TradeID < trades[j].TradeID
	})
}
