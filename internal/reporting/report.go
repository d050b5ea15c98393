package reporting

import (
	"time"

	"pump-trader/internal/metrics"
)

// Report is the session report built from a trade log.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Source      string // where the trades were read from
	PeriodStart time.Time
	PeriodEnd   time.Time

	Summary metrics.Summary

	ExitReasons []ExitReasonRow // sorted by count DESC, reason ASC
	Daily       []DailyRow      // sorted by day ASC
	Best        []TradeRow      // highest P&L first
	Worst       []TradeRow      // lowest P&L first
}

// ExitReasonRow counts trades per exit reason.
type ExitReasonRow struct {
	Reason      string
	Trades      int
	Share       float64 // percent of all trades
	TotalPnLSOL float64
}

// DailyRow aggregates the trades closed on one calendar day.
type DailyRow struct {
	Day         time.Time
	Trades      int
	Wins        int
	WinRate     float64 // percent
	TotalPnLSOL float64
	FeesSOL     float64
}

// TradeRow is one trade in the best/worst tables.
type TradeRow struct {
	TradeID     string
	Mint        string
	Symbol      string
	ExitTime    time.Time
	ExitReason  string
	PnLSOL      float64
	PnLPercent  float64
	HoldSeconds float64
}
