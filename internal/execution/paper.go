// Package execution places orders on behalf of the engine.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pump-trader/internal/domain"
	"pump-trader/internal/market"
)

// PaperGateway fills every order at the oracle's current price without touching the chain.
type PaperGateway struct {
	oracle market.PriceOracle
	now    func() time.Time
}

// NewPaperGateway creates a PaperGateway quoting from oracle.
func NewPaperGateway(oracle market.PriceOracle) *PaperGateway {
	return &PaperGateway{oracle: oracle, now: time.Now}
}

// Buy fills sol worth of c at the current price.
func (g *PaperGateway) Buy(ctx context.Context, c domain.TokenCandidate, sol float64) (market.Fill, error) {
	if sol <= 0 {
		return market.Fill{}, fmt.Errorf("paper buy %s: non-positive size %g", c.ShortMint(), sol)
	}
	return g.fill(ctx, c, "buy")
}

// Sell fills the whole position at the current price.
func (g *PaperGateway) Sell(ctx context.Context, p domain.Position) (market.Fill, error) {
	if p.EntryTokens <= 0 {
		return market.Fill{}, fmt.Errorf("paper sell %s: no tokens", p.Token.ShortMint())
	}
	return g.fill(ctx, p.Token, "sell")
}

func (g *PaperGateway) fill(ctx context.Context, c domain.TokenCandidate, side string) (market.Fill, error) {
	price, err := g.oracle.CurrentPrice(ctx, c)
	if err != nil {
		return market.Fill{}, fmt.Errorf("paper %s %s: quote: %w", side, c.ShortMint(), err)
	}
	if price <= 0 {
		return market.Fill{}, fmt.Errorf("paper %s %s: invalid price %g", side, c.ShortMint(), price)
	}
	return market.Fill{
		Signature: "paper-" + side + "-" + uuid.NewString(),
		Price:     price,
		At:        g.now(),
	}, nil
}

var _ market.ExecutionGateway = (*PaperGateway)(nil)
