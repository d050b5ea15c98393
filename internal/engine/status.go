package engine

import (
	"time"

	"pump-trader/internal/domain"
)

// PositionView is an open position with its live P&L.
type PositionView struct {
	Mint              string    `json:"mint"`
	Symbol            string    `json:"symbol"`
	Name              string    `json:"name"`
	Status            string    `json:"status"`
	EntryTime         time.Time `json:"entry_time"`
	EntryPrice        float64   `json:"entry_price"`
	EntrySOL          float64   `json:"entry_sol"`
	CurrentPrice      float64   `json:"current_price"`
	HighestPrice      float64   `json:"highest_price"`
	PnLSOL            float64   `json:"pnl_sol"`
	PnLPercent        float64   `json:"pnl_percent"`
	HoldSeconds       float64   `json:"hold_seconds"`
	StopLossPrice     float64   `json:"stop_loss_price"`
	TakeProfitPrice   float64   `json:"take_profit_price"`
	TrailingStopPrice float64   `json:"trailing_stop_price"`
	ExitAttempts      int       `json:"exit_attempts"`
}

// Status is a point-in-time view of the engine.
type Status struct {
	Mode      string    `json:"mode"`
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"started_at"`
	At        time.Time `json:"at"`

	InitialCapitalSOL  float64 `json:"initial_capital_sol"`
	AvailableSOL       float64 `json:"available_sol"`
	BookSOL            float64 `json:"book_sol"`
	PeakCapitalSOL     float64 `json:"peak_capital_sol"`
	ROIPercent         float64 `json:"roi_percent"`
	RealizedPnLSOL     float64 `json:"realized_pnl_sol"`
	UnrealizedPnLSOL   float64 `json:"unrealized_pnl_sol"`
	FeesPaidSOL        float64 `json:"fees_paid_sol"`
	DailyLossPercent   float64 `json:"daily_loss_percent"`
	MaxDrawdownSOL     float64 `json:"max_drawdown_sol"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`

	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	BreakevenTrades int     `json:"breakeven_trades"`
	WinRate         float64 `json:"win_rate"`
	TokensEvaluated int     `json:"tokens_evaluated"`
	TokensSkipped   int     `json:"tokens_skipped"`
	EntriesFailed   int     `json:"entries_failed"`

	Positions []PositionView `json:"positions"`
}

// Status returns capital, counters and open positions.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	book := e.bookLocked()
	m := e.tracker.Metrics()
	ddSOL, ddPct := e.ledger.MaxDrawdown()

	st := Status{
		Mode:               e.opts.Mode,
		Running:            e.running,
		StartedAt:          e.startedAt,
		At:                 now,
		InitialCapitalSOL:  e.ledger.Initial(),
		AvailableSOL:       e.ledger.Available(),
		BookSOL:            book,
		PeakCapitalSOL:     e.ledger.Peak(),
		RealizedPnLSOL:     m.TotalPnLSOL,
		FeesPaidSOL:        m.TotalFeesSOL,
		DailyLossPercent:   e.gate.DailyLossPercent(book, now),
		MaxDrawdownSOL:     ddSOL,
		MaxDrawdownPercent: ddPct,
		TotalTrades:        m.TotalTrades,
		WinningTrades:      m.WinningTrades,
		LosingTrades:       m.LosingTrades,
		BreakevenTrades:    m.BreakevenTrades,
		WinRate:            m.WinRate,
		TokensEvaluated:    m.TokensEvaluated,
		TokensSkipped:      m.TokensSkipped,
		EntriesFailed:      m.EntriesFailed,
		Positions:          []PositionView{},
	}
	if initial := e.ledger.Initial(); initial > 0 {
		st.ROIPercent = (book - initial) / initial * 100
	}

	for _, p := range e.positions.List() {
		st.UnrealizedPnLSOL += p.UnrealizedPnLSOL
		st.Positions = append(st.Positions, viewOf(p, now))
	}
	return st
}

func viewOf(p *domain.Position, now time.Time) PositionView {
	return PositionView{
		Mint:              p.Token.Mint,
		Symbol:            p.Token.Symbol,
		Name:              p.Token.Name,
		Status:            string(p.Status),
		EntryTime:         p.EntryTime,
		EntryPrice:        p.EntryPrice,
		EntrySOL:          p.EntrySOL,
		CurrentPrice:      p.CurrentPrice,
		HighestPrice:      p.HighestPrice,
		PnLSOL:            p.UnrealizedPnLSOL,
		PnLPercent:        p.UnrealizedPnLPercent,
		HoldSeconds:       p.HoldTime(now).Seconds(),
		StopLossPrice:     p.StopLossPrice,
		TakeProfitPrice:   p.TakeProfitPrice,
		TrailingStopPrice: p.TrailingStopPrice,
		ExitAttempts:      p.ExitAttempts,
	}
}

// Metrics returns a copy of the running performance counters.
func (e *Engine) Metrics() domain.BotMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Metrics()
}
