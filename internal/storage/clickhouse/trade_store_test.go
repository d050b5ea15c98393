package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-trader/internal/domain"
	"pump-trader/internal/storage"
)

func createTestTrade(id string, exit time.Time) *domain.ClosedTrade {
	return &domain.ClosedTrade{
		TradeID:        id,
		Mint:           "Mint" + id,
		Symbol:         "PUMP",
		Name:           "Pump Test",
		EntryTime:      exit.Add(-30 * time.Second),
		EntryPrice:     2.8e-8,
		EntrySOL:       0.1,
		EntryTokens:    3571428.57,
		EntrySignature: "entry-" + id,
		ExitTime:       exit,
		ExitPrice:      2.1e-8,
		ExitSOL:        0.0740625,
		ExitSignature:  "exit-" + id,
		ExitReason:     domain.ExitReasonStopLoss,
		ExitDetail:     "pnl -25.0% <= -25%",
		EntryFeeSOL:    0.00125,
		ExitFeeSOL:     0.0009375,
		FeesPaidSOL:    0.0021875,
		PnLSOL:         -0.0271875,
		PnLPercent:     -27.1875,
		Outcome:        domain.OutcomeLoss,
		HoldSeconds:    30,
		HighestPrice:   3e-8,
	}
}

func TestTradeStore_AppendAndGetByID(t *testing.T) {
	conn := setupTestDB(t)

	ctx := context.Background()
	store := NewTradeStore(conn)
	exit := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	trade := createTestTrade("ch-001", exit)
	require.NoError(t, store.Append(ctx, trade))

	got, err := store.GetByID(ctx, "ch-001")
	require.NoError(t, err)
	assert.Equal(t, trade.Mint, got.Mint)
	assert.Equal(t, trade.ExitReason, got.ExitReason)
	assert.Equal(t, trade.Outcome, got.Outcome)
	assert.True(t, trade.ExitTime.Equal(got.ExitTime))
	assert.InDelta(t, trade.PnLSOL, got.PnLSOL, 1e-12)
	assert.InDelta(t, trade.EntryPrice, got.EntryPrice, 1e-18)
}

func TestTradeStore_Duplicate(t *testing.T) {
	conn := setupTestDB(t)

	ctx := context.Background()
	store := NewTradeStore(conn)
	trade := createTestTrade("ch-dup", time.Now().UTC())

	require.NoError(t, store.Append(ctx, trade))
	assert.ErrorIs(t, store.Append(ctx, trade), storage.ErrDuplicateKey)
}

func TestTradeStore_ListAndNotFound(t *testing.T) {
	conn := setupTestDB(t)

	ctx := context.Background()
	store := NewTradeStore(conn)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, createTestTrade("b", base.Add(time.Hour))))
	require.NoError(t, store.Append(ctx, createTestTrade("a", base)))

	trades, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "a", trades[0].TradeID)
	assert.Equal(t, "b", trades[1].TradeID)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestParseDSN(t *testing.T) {
	opts, err := parseDSN("clickhouse://user:pw@db.local/pump")
	require.NoError(t, err)
	assert.Equal(t, []string{"db.local:9000"}, opts.Addr)
	assert.Equal(t, "user", opts.Auth.Username)
	assert.Equal(t, "pw", opts.Auth.Password)
	assert.Equal(t, "pump", opts.Auth.Database)
	require.NotNil(t, opts.Compression)
	assert.Equal(t, clickhouse.CompressionLZ4, opts.Compression.Method)

	opts, err = parseDSN("clickhouse://db.local:9440/pump")
	require.NoError(t, err)
	assert.Equal(t, []string{"db.local:9440"}, opts.Addr)
}
