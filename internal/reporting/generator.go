package reporting

import (
	"context"
	"sort"
	"time"

	"pump-trader/internal/domain"
	"pump-trader/internal/metrics"
	"pump-trader/internal/storage"
)

// DefaultTopN is the size of the best and worst trade tables.
const DefaultTopN = 5

// Generator produces reports from a trade log.
type Generator struct {
	trades storage.TradeStore
	source string
	topN   int
	loc    *time.Location
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. source labels the report.
func NewGenerator(trades storage.TradeStore, source string) *Generator {
	return &Generator{
		trades: trades,
		source: source,
		topN:   DefaultTopN,
		loc:    time.UTC,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithLocation sets the calendar used for the daily breakdown.
func (g *Generator) WithLocation(loc *time.Location) *Generator {
	if loc != nil {
		g.loc = loc
	}
	return g
}

// WithTopN sets the size of the best and worst trade tables.
func (g *Generator) WithTopN(n int) *Generator {
	if n > 0 {
		g.topN = n
	}
	return g
}

// Generate reads the whole trade log and builds the report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	list, err := g.trades.List(ctx)
	if err != nil {
		return nil, err
	}
	trades := make([]domain.ClosedTrade, len(list))
	for i, t := range list {
		trades[i] = *t
	}
	return g.Build(trades), nil
}

// Build computes the report over trades.
func (g *Generator) Build(trades []domain.ClosedTrade) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		Source:      g.source,
		Summary:     metrics.Summarize(trades),
		ExitReasons: []ExitReasonRow{},
		Daily:       []DailyRow{},
		Best:        []TradeRow{},
		Worst:       []TradeRow{},
	}
	if len(trades) == 0 {
		return r
	}

	r.PeriodStart, r.PeriodEnd = trades[0].EntryTime, trades[0].ExitTime
	for _, t := range trades {
		if t.EntryTime.Before(r.PeriodStart) {
			r.PeriodStart = t.EntryTime
		}
		if t.ExitTime.After(r.PeriodEnd) {
			r.PeriodEnd = t.ExitTime
		}
	}

	r.ExitReasons = g.exitReasons(trades)
	r.Daily = g.daily(trades)
	r.Best, r.Worst = g.extremes(trades)
	return r
}

func (g *Generator) exitReasons(trades []domain.ClosedTrade) []ExitReasonRow {
	byReason := make(map[string]*ExitReasonRow)
	for _, t := range trades {
		row, ok := byReason[t.ExitReason]
		if !ok {
			row = &ExitReasonRow{Reason: t.ExitReason}
			byReason[t.ExitReason] = row
		}
		row.Trades++
		row.TotalPnLSOL += t.PnLSOL
	}

	rows := make([]ExitReasonRow, 0, len(byReason))
	for _, row := range byReason {
		row.Share = float64(row.Trades) / float64(len(trades)) * 100
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Trades != rows[j].Trades {
			return rows[i].Trades > rows[j].Trades
		}
		return rows[i].Reason < rows[j].Reason
	})
	return rows
}

func (g *Generator) daily(trades []domain.ClosedTrade) []DailyRow {
	byDay := make(map[time.Time]*DailyRow)
	for _, t := range trades {
		exit := t.ExitTime.In(g.loc)
		y, m, d := exit.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, g.loc)

		row, ok := byDay[day]
		if !ok {
			row = &DailyRow{Day: day}
			byDay[day] = row
		}
		row.Trades++
		if t.Outcome == domain.OutcomeProfit {
			row.Wins++
		}
		row.TotalPnLSOL += t.PnLSOL
		row.FeesSOL += t.FeesPaidSOL
	}

	rows := make([]DailyRow, 0, len(byDay))
	for _, row := range byDay {
		row.WinRate = float64(row.Wins) / float64(row.Trades) * 100
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Day.Before(rows[j].Day) })
	return rows
}

// extremes returns the topN best and worst trades by P&L, ties broken by trade ID.
func (g *Generator) extremes(trades []domain.ClosedTrade) (best, worst []TradeRow) {
	sorted := make([]domain.ClosedTrade, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].PnLSOL != sorted[j].PnLSOL {
			return sorted[i].PnLSOL > sorted[j].PnLSOL
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})

	n := g.topN
	if n > len(sorted) {
		n = len(sorted)
	}
	best = make([]TradeRow, 0, n)
	worst = make([]TradeRow, 0, n)
	for i := 0; i < n; i++ {
		best = append(best, tradeRow(sorted[i]))
		worst = append(worst, tradeRow(sorted[len(sorted)-1-i]))
	}
	return best, worst
}

func tradeRow(t domain.ClosedTrade) TradeRow {
	return TradeRow{
		TradeID:     t.TradeID,
		Mint:        t.Mint,
		Symbol:      t.Symbol,
		ExitTime:    t.ExitTime,
		ExitReason:  t.ExitReason,
		PnLSOL:      t.PnLSOL,
		PnLPercent:  t.PnLPercent,
		HoldSeconds: t.HoldSeconds,
	}
}
