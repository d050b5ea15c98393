package risk

import (
	"fmt"
	"time"
)

// GateConfig holds the can-open limits.
type GateConfig struct {
	MaxConcurrent         int
	MinReserveSOL         float64
	DailyLossLimitPercent float64
	Location              *time.Location // calendar day boundary, UTC if nil
}

// Gate decides whether a new position may be opened.
// Not safe for concurrent use; the engine serializes access.
type Gate struct {
	cfg GateConfig

	day      time.Time // start of the tracked calendar day
	dayStart float64   // capital at the first observation of the day
	tracking bool
}

// NewGate creates a Gate.
func NewGate(cfg GateConfig) *Gate {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Gate{cfg: cfg}
}

// Observe records capital at now, resetting the daily baseline on day rollover.
func (g *Gate) Observe(capitalSOL float64, now time.Time) {
	day := truncateDay(now, g.cfg.Location)
	if !g.tracking || !day.Equal(g.day) {
		g.day = day
		g.dayStart = capitalSOL
		g.tracking = true
	}
}

// DailyLossPercent returns the capital drop since the day's baseline, as a percent of it.
// It never moves the baseline; before the first observation of now's day it returns 0.
func (g *Gate) DailyLossPercent(capitalSOL float64, now time.Time) float64 {
	if !g.tracking || !truncateDay(now, g.cfg.Location).Equal(g.day) || g.dayStart <= 0 {
		return 0
	}
	return (g.dayStart - capitalSOL) / g.dayStart * 100
}

// DayStartCapital returns the current day's baseline.
func (g *Gate) DayStartCapital() float64 {
	return g.dayStart
}

// CanOpen reports whether another position may be opened.
// available is free capital; book is available plus capital locked in open positions.
func (g *Gate) CanOpen(open int, availableSOL, bookSOL float64, now time.Time) (bool, string) {
	if open >= g.cfg.MaxConcurrent {
		return false, fmt.Sprintf("max concurrent trades reached (%d)", g.cfg.MaxConcurrent)
	}
	if availableSOL <= g.cfg.MinReserveSOL {
		return false, fmt.Sprintf("available capital %.4f SOL at or below reserve %.4f", availableSOL, g.cfg.MinReserveSOL)
	}
	if g.cfg.DailyLossLimitPercent > 0 {
		g.Observe(bookSOL, now)
		loss := g.DailyLossPercent(bookSOL, now)
		if loss >= g.cfg.DailyLossLimitPercent {
			return false, fmt.Sprintf("daily loss %.1f%% reached limit %.1f%%", loss, g.cfg.DailyLossLimitPercent)
		}
	}
	return true, ""
}

func truncateDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
