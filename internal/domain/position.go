package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrStatusRegression is returned when a lifecycle transition would move a position backwards.
var ErrStatusRegression = errors.New("status regression")

// Status is the lifecycle state of a trade attempt.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusHolding Status = "HOLDING"
	StatusClosing Status = "CLOSING"
	StatusClosed  Status = "CLOSED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// rank orders the forward path. Terminal side states share the top rank.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusHolding:
		return 1
	case StatusClosing:
		return 2
	case StatusClosed, StatusFailed, StatusSkipped:
		return 3
	default:
		return -1
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s.rank() == 3
}

// CanAdvanceTo reports whether moving from s to next keeps the lifecycle monotonic.
func (s Status) CanAdvanceTo(next Status) bool {
	if s.Terminal() || next.rank() < 0 {
		return false
	}
	switch next {
	case StatusFailed, StatusSkipped:
		// only a trade that never filled can fail or be skipped
		return s == StatusPending
	case StatusClosed:
		return s == StatusClosing
	}
	return next.rank() > s.rank()
}

// Position is an open holding in one mint.
// Entry fields are frozen at fill; the monitor loop owns every other field.
type Position struct {
	Token TokenCandidate

	EntryTime      time.Time
	EntryPrice     float64
	EntrySOL       float64
	EntryTokens    float64
	EntrySignature string

	CurrentPrice float64
	HighestPrice float64
	LowestPrice  float64

	UnrealizedPnLSOL     float64
	UnrealizedPnLPercent float64

	StopLossPrice     float64 // 0 until set
	TakeProfitPrice   float64 // 0 until set
	TrailingStopPrice float64 // 0 until set

	Status       Status
	ExitAttempts int
	LastUpdate   time.Time
}

// NewPosition builds a Holding position from a filled entry order.
func NewPosition(token TokenCandidate, fillPrice, solAmount float64, signature string, at time.Time) (*Position, error) {
	if fillPrice <= 0 {
		return nil, fmt.Errorf("position %s: invalid fill price %v", token.Mint, fillPrice)
	}
	if solAmount <= 0 {
		return nil, fmt.Errorf("position %s: invalid sol amount %v", token.Mint, solAmount)
	}
	p := &Position{
		Token:          token,
		EntryTime:      at,
		EntryPrice:     fillPrice,
		EntrySOL:       solAmount,
		EntryTokens:    solAmount / fillPrice,
		EntrySignature: signature,
		CurrentPrice:   fillPrice,
		HighestPrice:   fillPrice,
		LowestPrice:    fillPrice,
		Status:         StatusPending,
		LastUpdate:     at,
	}
	if err := p.Advance(StatusHolding); err != nil {
		return nil, err
	}
	return p, nil
}

// Advance moves the position to next, refusing any backwards transition.
func (p *Position) Advance(next Status) error {
	if !p.Status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: %s -> %s (%s)", ErrStatusRegression, p.Status, next, p.Token.Mint)
	}
	p.Status = next
	return nil
}

// UpdatePrice records a fresh price and recomputes the running extremes and unrealized P&L.
func (p *Position) UpdatePrice(price float64, at time.Time) {
	if price <= 0 {
		return
	}
	p.CurrentPrice = price
	p.LastUpdate = at

	if price > p.HighestPrice {
		p.HighestPrice = price
	}
	if p.LowestPrice == 0 || price < p.LowestPrice {
		p.LowestPrice = price
	}

	if p.EntryTokens > 0 {
		p.UnrealizedPnLSOL = p.CurrentPrice*p.EntryTokens - p.EntrySOL
		p.UnrealizedPnLPercent = (p.CurrentPrice/p.EntryPrice - 1) * 100
	}
}

// HoldTime returns how long the position has been open at now.
func (p *Position) HoldTime(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}

// MarketValue is the gross SOL value of the holding at the current price.
func (p *Position) MarketValue() float64 {
	return p.CurrentPrice * p.EntryTokens
}
