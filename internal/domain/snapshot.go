package domain

import "time"

// Snapshot is the persisted state used to resume capital and counters across restarts.
type Snapshot struct {
	CurrentCapital float64         `json:"current_capital"`
	InitialCapital float64         `json:"initial_capital"`
	TradeCount     int             `json:"trade_count"`
	Metrics        SnapshotMetrics `json:"metrics"`
	UpdatedAt      time.Time       `json:"last_updated"`
}

// SnapshotMetrics is the subset of BotMetrics that survives a restart.
type SnapshotMetrics struct {
	WinningTrades      int     `json:"winning_trades"`
	LosingTrades       int     `json:"losing_trades"`
	BreakevenTrades    int     `json:"breakeven_trades"`
	TotalPnLSOL        float64 `json:"total_pnl_sol"`
	TotalFeesSOL       float64 `json:"total_fees_paid_sol"`
	BestTradePnLSOL    float64 `json:"best_trade_pnl_sol"`
	WorstTradePnLSOL   float64 `json:"worst_trade_pnl_sol"`
	AveragePnLPercent  float64 `json:"average_pnl_percent"`
	PeakCapitalSOL     float64 `json:"peak_capital_sol"`
	MaxDrawdownSOL     float64 `json:"max_drawdown_sol"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
}
