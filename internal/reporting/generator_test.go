package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-trader/internal/domain"
	"pump-trader/internal/storage/memory"
)

var generatedAt = time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

func closedTrade(id, mint string, exit time.Time, hold, pnl, pct, fees float64, reason string) *domain.ClosedTrade {
	return &domain.ClosedTrade{
		TradeID:     id,
		Mint:        mint,
		Symbol:      strings.ToUpper(mint),
		EntryTime:   exit.Add(-time.Duration(hold * float64(time.Second))),
		ExitTime:    exit,
		ExitReason:  reason,
		FeesPaidSOL: fees,
		PnLSOL:      pnl,
		PnLPercent:  pct,
		Outcome:     domain.ClassifyOutcome(pnl),
		HoldSeconds: hold,
	}
}

func setupTestData(t *testing.T) *memory.TradeStore {
	t.Helper()
	ctx := context.Background()
	store := memory.NewTradeStore()

	day1 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	trades := []*domain.ClosedTrade{
		closedTrade("t1", "aaa", day1.Add(10*time.Hour), 30, 0.05, 25, 0.005, domain.ExitReasonTakeProfit),
		closedTrade("t2", "bbb", day1.Add(11*time.Hour), 12, -0.04, -20, 0.004, domain.ExitReasonStopLoss),
		closedTrade("t3", "ccc", day2.Add(9*time.Hour), 45, 0.10, 50, 0.006, domain.ExitReasonTakeProfit),
		closedTrade("t4", "ddd", day2.Add(10*time.Hour), 300, -0.01, -5, 0.002, domain.ExitReasonMaxHold),
	}
	for _, tr := range trades {
		require.NoError(t, store.Append(ctx, tr))
	}
	return store
}

func generate(t *testing.T, g *Generator) *Report {
	t.Helper()
	r, err := g.WithClock(func() time.Time { return generatedAt }).Generate(context.Background())
	require.NoError(t, err)
	return r
}

func TestGenerator_Summary(t *testing.T) {
	r := generate(t, NewGenerator(setupTestData(t), "trades.csv"))

	assert.Equal(t, generatedAt, r.GeneratedAt)
	assert.Equal(t, "trades.csv", r.Source)
	assert.Equal(t, 4, r.Summary.TotalTrades)
	assert.Equal(t, 2, r.Summary.Wins)
	assert.Equal(t, 2, r.Summary.Losses)
	assert.InDelta(t, 0.10, r.Summary.TotalPnLSOL, 1e-9)

	assert.Equal(t, time.Date(2025, 3, 10, 9, 59, 30, 0, time.UTC), r.PeriodStart)
	assert.Equal(t, time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC), r.PeriodEnd)
}

func TestGenerator_ExitReasons(t *testing.T) {
	r := generate(t, NewGenerator(setupTestData(t), ""))

	require.Len(t, r.ExitReasons, 3)
	assert.Equal(t, domain.ExitReasonTakeProfit, r.ExitReasons[0].Reason)
	assert.Equal(t, 2, r.ExitReasons[0].Trades)
	assert.InDelta(t, 50, r.ExitReasons[0].Share, 1e-9)
	assert.InDelta(t, 0.15, r.ExitReasons[0].TotalPnLSOL, 1e-9)

	// Ties ordered by reason
	assert.Equal(t, domain.ExitReasonMaxHold, r.ExitReasons[1].Reason)
	assert.Equal(t, domain.ExitReasonStopLoss, r.ExitReasons[2].Reason)
}

func TestGenerator_Daily(t *testing.T) {
	r := generate(t, NewGenerator(setupTestData(t), ""))

	require.Len(t, r.Daily, 2)
	d1, d2 := r.Daily[0], r.Daily[1]

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d1.Day)
	assert.Equal(t, 2, d1.Trades)
	assert.Equal(t, 1, d1.Wins)
	assert.InDelta(t, 50, d1.WinRate, 1e-9)
	assert.InDelta(t, 0.01, d1.TotalPnLSOL, 1e-9)
	assert.InDelta(t, 0.009, d1.FeesSOL, 1e-9)

	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), d2.Day)
	assert.InDelta(t, 0.09, d2.TotalPnLSOL, 1e-9)
}

func TestGenerator_DailyUsesLocation(t *testing.T) {
	store := memory.NewTradeStore()
	late := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	require.NoError(t, store.Append(context.Background(),
		closedTrade("t1", "aaa", late, 10, 0.01, 5, 0.001, domain.ExitReasonTakeProfit)))

	plus2 := time.FixedZone("UTC+2", 2*60*60)
	r := generate(t, NewGenerator(store, "").WithLocation(plus2))

	require.Len(t, r.Daily, 1)
	assert.Equal(t, "2025-03-11", r.Daily[0].Day.Format("2006-01-02"))
}

func TestGenerator_BestWorst(t *testing.T) {
	r := generate(t, NewGenerator(setupTestData(t), "").WithTopN(2))

	require.Len(t, r.Best, 2)
	require.Len(t, r.Worst, 2)
	assert.Equal(t, "t3", r.Best[0].TradeID)
	assert.Equal(t, "t1", r.Best[1].TradeID)
	assert.Equal(t, "t2", r.Worst[0].TradeID)
	assert.Equal(t, "t4", r.Worst[1].TradeID)
	assert.Equal(t, "CCC", r.Best[0].Symbol)
}

func TestGenerator_TopNLargerThanLog(t *testing.T) {
	r := generate(t, NewGenerator(setupTestData(t), ""))

	assert.Len(t, r.Best, 4)
	assert.Len(t, r.Worst, 4)
}

func TestGenerator_Empty(t *testing.T) {
	r := generate(t, NewGenerator(memory.NewTradeStore(), ""))

	assert.Equal(t, 0, r.Summary.TotalTrades)
	assert.Empty(t, r.ExitReasons)
	assert.Empty(t, r.Daily)
	assert.Empty(t, r.Best)
	assert.True(t, r.PeriodStart.IsZero())

	assert.Contains(t, RenderMarkdown(r), "No trades recorded.")
}

type failingStore struct {
	*memory.TradeStore
}

func (failingStore) List(context.Context) ([]*domain.ClosedTrade, error) {
	return nil, errors.New("disk gone")
}

func TestGenerator_StoreError(t *testing.T) {
	_, err := NewGenerator(failingStore{memory.NewTradeStore()}, "").Generate(context.Background())
	assert.EqualError(t, err, "disk gone")
}

func TestRenderMarkdown(t *testing.T) {
	r := generate(t, NewGenerator(setupTestData(t), "trades.csv"))
	md := RenderMarkdown(r)

	for _, want := range []string{
		"# Trading Report",
		"Generated: 2025-03-12T00:00:00Z",
		"Source: trades.csv",
		"| Trades | 4 |",
		"| Win Rate | 50.00% |",
		"| TAKE_PROFIT | 2 | 50.0% | 0.150000 |",
		"| 2025-03-10 | 2 | 1 | 50.0% | 0.010000 | 0.009000 |",
		"## Best Trades",
		"| CCC | ccc | 2025-03-11T09:00:00Z | TAKE_PROFIT | 0.100000 | 50.00 | 45 |",
		"## Worst Trades",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "No trades recorded.")
}

func TestRenderCSV(t *testing.T) {
	r := generate(t, NewGenerator(setupTestData(t), ""))

	want := "day,trades,wins,win_rate,total_pnl_sol,fees_sol\n" +
		"2025-03-10,2,1,50.000000,0.010000,0.009000\n" +
		"2025-03-11,2,1,50.000000,0.090000,0.008000\n"
	assert.Equal(t, want, RenderCSV(r.Daily))
}
