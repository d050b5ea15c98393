package portfolio

import (
	"errors"
	"fmt"
)

// ErrInsufficientCapital is returned when a debit would take available capital below zero.
var ErrInsufficientCapital = errors.New("insufficient capital")

// Ledger tracks available SOL and its high-water mark.
// Not safe for concurrent use; the engine serializes access.
type Ledger struct {
	initial   float64
	available float64
	peak      float64

	maxDrawdownSOL     float64
	maxDrawdownPercent float64
}

// NewLedger creates a ledger starting at initialSOL.
func NewLedger(initialSOL float64) *Ledger {
	return &Ledger{initial: initialSOL, available: initialSOL, peak: initialSOL}
}

// Restore replaces the ledger state with persisted values.
// Assignment only, so restoring the same values twice is a no-op.
func (l *Ledger) Restore(initialSOL, availableSOL, peakSOL, maxDrawdownSOL, maxDrawdownPercent float64) {
	l.initial = initialSOL
	l.available = availableSOL
	l.peak = peakSOL
	if l.peak < availableSOL {
		l.peak = availableSOL
	}
	l.maxDrawdownSOL = maxDrawdownSOL
	l.maxDrawdownPercent = maxDrawdownPercent
}

// Debit removes amount from available capital.
func (l *Ledger) Debit(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("debit: negative amount %v", amount)
	}
	if amount > l.available {
		return fmt.Errorf("%w: need %.6f SOL, have %.6f", ErrInsufficientCapital, amount, l.available)
	}
	l.available -= amount
	l.track()
	return nil
}

// Credit adds amount to available capital.
func (l *Ledger) Credit(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("credit: negative amount %v", amount)
	}
	l.available += amount
	l.track()
	return nil
}

// track updates peak and drawdown after a capital change.
func (l *Ledger) track() {
	if l.available > l.peak {
		l.peak = l.available
	}
	dd := l.peak - l.available
	if dd > l.maxDrawdownSOL {
		l.maxDrawdownSOL = dd
	}
	if l.peak > 0 {
		if pct := dd / l.peak * 100; pct > l.maxDrawdownPercent {
			l.maxDrawdownPercent = pct
		}
	}
}

func (l *Ledger) Available() float64 { return l.available }
func (l *Ledger) Initial() float64   { return l.initial }
func (l *Ledger) Peak() float64      { return l.peak }

// MaxDrawdown returns the largest peak-to-trough drop seen, in SOL and percent of peak.
func (l *Ledger) MaxDrawdown() (sol, percent float64) {
	return l.maxDrawdownSOL, l.maxDrawdownPercent
}
