package domain

import (
	"fmt"
	"time"
)

// TokenCandidate is a freshly launched token detected on the bonding-curve program.
// It is created once by a launch feed and treated as read-only afterwards.
type TokenCandidate struct {
	Mint                   string // token mint address
	Creator                string // launch transaction fee payer
	Symbol                 string
	Name                   string
	BondingCurve           string // bonding curve account
	AssociatedBondingCurve string // curve's token account
	Signature              string // creation transaction signature
	Slot                   int64
	Source                 Source
	CreatedAt              time.Time
	InitialPrice           float64 // SOL per token at detection, 0 if unknown
	Suspicious             bool
	Graduated              bool // already migrated off the curve
}

// Validate checks the fields the engine cannot work without.
func (c TokenCandidate) Validate() error {
	if c.Mint == "" {
		return fmt.Errorf("candidate: missing mint")
	}
	if c.Signature == "" {
		return fmt.Errorf("candidate %s: missing signature", c.Mint)
	}
	if c.BondingCurve == "" {
		return fmt.Errorf("candidate %s: missing bonding curve", c.Mint)
	}
	return nil
}

// ShortMint returns the first 8 characters of the mint for log lines.
func (c TokenCandidate) ShortMint() string {
	if len(c.Mint) <= 8 {
		return c.Mint
	}
	return c.Mint[:8]
}

// ActivitySnapshot summarises trading on a candidate's curve over the observation window.
// Captured once per candidate and consumed immediately by the scorer.
type ActivitySnapshot struct {
	BuyCount             int
	SellCount            int
	UniqueBuyers         int
	VolumeSOL            float64
	PriceChangePercent   float64
	CurveProgressPercent float64 // 0..100, progress toward graduation
	WindowSeconds        float64
	CapturedAt           time.Time
}

// BuySellRatio returns buys / (buys + max(sells, 1)).
func (a ActivitySnapshot) BuySellRatio() float64 {
	sells := a.SellCount
	if sells < 1 {
		sells = 1
	}
	return float64(a.BuyCount) / float64(a.BuyCount+sells)
}
