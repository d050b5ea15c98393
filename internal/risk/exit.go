package risk

import (
	"fmt"
	"time"

	"pump-trader/internal/domain"
)

// ProfitRung triggers a take-profit once unrealized P&L reaches MinPnLPercent
// and the position has been held at least MinHold.
type ProfitRung struct {
	MinPnLPercent float64
	MinHold       time.Duration
}

// ExitConfig holds exit thresholds. Percent fields are in percent units (25 = 25%).
type ExitConfig struct {
	StopLossPercent     float64
	TakeProfitPercent   float64
	TrailingStopPercent float64
	MinHold             time.Duration
	MaxHold             time.Duration
	MaxLossPerTradeSOL  float64

	// ProfitLadder is ordered by descending MinPnLPercent.
	ProfitLadder []ProfitRung
}

// DefaultProfitLadder exits big pumps immediately and makes smaller gains wait.
func DefaultProfitLadder() []ProfitRung {
	return []ProfitRung{
		{MinPnLPercent: 100, MinHold: 0},
		{MinPnLPercent: 50, MinHold: 10 * time.Second},
		{MinPnLPercent: 30, MinHold: 30 * time.Second},
		{MinPnLPercent: 20, MinHold: 60 * time.Second},
	}
}

// DefaultExitConfig returns the default exit thresholds.
func DefaultExitConfig() ExitConfig {
	return ExitConfig{
		StopLossPercent:     25,
		TakeProfitPercent:   50,
		TrailingStopPercent: 15,
		MinHold:             5 * time.Second,
		MaxHold:             300 * time.Second,
		MaxLossPerTradeSOL:  0.5,
		ProfitLadder:        DefaultProfitLadder(),
	}
}

// Validate checks exit thresholds.
func (c ExitConfig) Validate() error {
	if c.StopLossPercent <= 0 || c.StopLossPercent > 100 {
		return fmt.Errorf("stop loss %v%% outside (0, 100]", c.StopLossPercent)
	}
	if c.TakeProfitPercent <= 0 {
		return fmt.Errorf("take profit %v%% must be positive", c.TakeProfitPercent)
	}
	if c.TrailingStopPercent < 0 || c.TrailingStopPercent >= 100 {
		return fmt.Errorf("trailing stop %v%% outside [0, 100)", c.TrailingStopPercent)
	}
	if c.MinHold < 0 || c.MaxHold <= 0 || c.MinHold > c.MaxHold {
		return fmt.Errorf("hold range [%s, %s] invalid", c.MinHold, c.MaxHold)
	}
	if c.MaxLossPerTradeSOL <= 0 {
		return fmt.Errorf("max loss per trade must be positive")
	}
	for i := 1; i < len(c.ProfitLadder); i++ {
		if c.ProfitLadder[i].MinPnLPercent > c.ProfitLadder[i-1].MinPnLPercent {
			return fmt.Errorf("profit ladder must be ordered by descending pnl threshold")
		}
	}
	return nil
}

// ExitDecision is the exit policy verdict.
type ExitDecision struct {
	Exit   bool
	Reason string // one of domain.ExitReason*, empty when holding
	Detail string
}

// ExitPolicy decides when to close a position. It holds no mutable state.
type ExitPolicy struct {
	cfg ExitConfig
}

// NewExitPolicy creates an ExitPolicy.
func NewExitPolicy(cfg ExitConfig) *ExitPolicy {
	return &ExitPolicy{cfg: cfg}
}

// Config returns the policy thresholds.
func (e *ExitPolicy) Config() ExitConfig {
	return e.cfg
}

// Evaluate checks exit conditions in fixed precedence:
// min hold floor, profit ladder, stop loss, trailing stop, max hold, per-trade loss cap.
func (e *ExitPolicy) Evaluate(p domain.Position, now time.Time) ExitDecision {
	hold := p.HoldTime(now)
	if hold < e.cfg.MinHold {
		return ExitDecision{Detail: "min hold time not reached"}
	}

	pnl := p.UnrealizedPnLPercent
	for _, r := range e.cfg.ProfitLadder {
		if pnl >= r.MinPnLPercent && hold >= r.MinHold {
			return ExitDecision{
				Exit:   true,
				Reason: domain.ExitReasonTakeProfit,
				Detail: fmt.Sprintf("profit +%.1f%% >= %.0f%% after %.0fs", pnl, r.MinPnLPercent, hold.Seconds()),
			}
		}
	}

	if pnl <= -e.cfg.StopLossPercent {
		return ExitDecision{
			Exit:   true,
			Reason: domain.ExitReasonStopLoss,
			Detail: fmt.Sprintf("stop loss %.1f%%", pnl),
		}
	}

	if p.TrailingStopPrice > 0 && p.CurrentPrice <= p.TrailingStopPrice {
		return ExitDecision{
			Exit:   true,
			Reason: domain.ExitReasonTrailingStop,
			Detail: fmt.Sprintf("trailing stop %.10f hit (peak %.10f)", p.TrailingStopPrice, p.HighestPrice),
		}
	}

	if hold >= e.cfg.MaxHold {
		return ExitDecision{
			Exit:   true,
			Reason: domain.ExitReasonMaxHold,
			Detail: fmt.Sprintf("max hold time reached (%.0fs)", hold.Seconds()),
		}
	}

	if p.UnrealizedPnLSOL < 0 && -p.UnrealizedPnLSOL >= e.cfg.MaxLossPerTradeSOL {
		return ExitDecision{
			Exit:   true,
			Reason: domain.ExitReasonMaxLoss,
			Detail: fmt.Sprintf("max loss per trade reached (%.4f SOL)", p.UnrealizedPnLSOL),
		}
	}

	return ExitDecision{Detail: "no exit condition met"}
}

// UpdateRisk sets stop-loss and take-profit prices if unset and recomputes
// the trailing stop from the running high.
func (e *ExitPolicy) UpdateRisk(p *domain.Position) {
	if p.StopLossPrice == 0 {
		p.StopLossPrice = p.EntryPrice * (1 - e.cfg.StopLossPercent/100)
	}
	if p.TakeProfitPrice == 0 {
		p.TakeProfitPrice = p.EntryPrice * (1 + e.cfg.TakeProfitPercent/100)
	}
	if e.cfg.TrailingStopPercent > 0 && p.HighestPrice > 0 {
		p.TrailingStopPrice = p.HighestPrice * (1 - e.cfg.TrailingStopPercent/100)
	}
}
