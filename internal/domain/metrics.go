package domain

import "time"

// BotMetrics holds running performance counters for one engine run.
// Recomputed incrementally from each ClosedTrade and capital change.
type BotMetrics struct {
	StartTime time.Time

	// Capital
	InitialCapitalSOL  float64
	CurrentCapitalSOL  float64
	PeakCapitalSOL     float64
	MaxDrawdownSOL     float64
	MaxDrawdownPercent float64

	// Trade counts
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	BreakevenTrades int

	// P&L
	TotalPnLSOL      float64
	TotalFeesSOL     float64
	BestTradePnLSOL  float64
	WorstTradePnLSOL float64

	// Derived
	WinRate           float64 // percent
	AveragePnLSOL     float64
	AveragePnLPercent float64

	// Activity
	TokensEvaluated int
	TokensSkipped   int
	EntriesFailed   int
}

// ROIPercent returns the return on initial capital.
func (m BotMetrics) ROIPercent() float64 {
	if m.InitialCapitalSOL == 0 {
		return 0
	}
	return (m.CurrentCapitalSOL - m.InitialCapitalSOL) / m.InitialCapitalSOL * 100
}
