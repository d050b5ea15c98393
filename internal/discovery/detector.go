package discovery

import (
	"sync"
	"time"

	"pump-trader/internal/domain"
	"pump-trader/internal/solana"
)

// Detector turns pump create events into candidates, once per mint.
// Safe for concurrent use.
type Detector struct {
	mu        sync.Mutex
	seenMints map[string]struct{}
}

// NewDetector creates a Detector.
func NewDetector() *Detector {
	return &Detector{seenMints: make(map[string]struct{})}
}

// Detect converts the create events of one transaction into new candidates.
// Mints already seen are dropped.
func (d *Detector) Detect(tx *solana.Transaction, logs []string, source domain.Source) []domain.TokenCandidate {
	creates, _ := ParseEvents(logs)
	if len(creates) == 0 {
		return nil
	}

	createdAt := time.Now().UTC()
	if tx != nil && tx.BlockTime > 0 {
		createdAt = time.Unix(tx.BlockTime, 0).UTC()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var out []domain.TokenCandidate
	for _, ev := range creates {
		if _, ok := d.seenMints[ev.Mint]; ok {
			continue
		}
		d.seenMints[ev.Mint] = struct{}{}

		c := domain.TokenCandidate{
			Mint:         ev.Mint,
			Creator:      ev.User,
			Name:         ev.Name,
			Symbol:       ev.Symbol,
			BondingCurve: ev.BondingCurve,
			Source:       source,
			CreatedAt:    createdAt,
			Suspicious:   suspicious(ev),
		}
		if tx != nil {
			c.Signature = tx.Signature
			c.Slot = tx.Slot
			if c.Creator == "" {
				c.Creator = tx.FeePayer()
			}
		}
		if c.BondingCurve == "" {
			c.BondingCurve, _ = solana.BondingCurveAddress(ev.Mint)
		}
		if c.BondingCurve != "" {
			c.AssociatedBondingCurve, _ = solana.AssociatedTokenAddress(c.BondingCurve, ev.Mint)
		}
		// launch price of a fresh curve
		c.InitialPrice = freshCurvePrice
		out = append(out, c)
	}
	return out
}

// Seen reports whether mint has already been detected.
func (d *Detector) Seen(mint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seenMints[mint]
	return ok
}

// Launch reserves of every pump curve.
const (
	freshVirtualSolReserves   = 30_000_000_000
	freshVirtualTokenReserves = 1_073_000_000_000_000
)

var freshCurvePrice = (&solana.BondingCurve{
	VirtualSolReserves:   freshVirtualSolReserves,
	VirtualTokenReserves: freshVirtualTokenReserves,
}).Price()

// suspicious flags launches without basic metadata.
func suspicious(ev CreateEvent) bool {
	return ev.Name == "" || ev.Symbol == "" || ev.URI == ""
}
