// Package market defines the engine's external collaborators.
package market

import (
	"context"
	"time"

	"pump-trader/internal/domain"
)

// LaunchFeed delivers newly launched tokens. Delivery is at-least-once;
// the channel closes when ctx is done or the feed stops.
type LaunchFeed interface {
	Candidates(ctx context.Context) (<-chan domain.TokenCandidate, error)
}

// ActivitySampler observes trading on a candidate for window and summarises it.
// Blocks for the window duration.
type ActivitySampler interface {
	Sample(ctx context.Context, c domain.TokenCandidate, window time.Duration) (domain.ActivitySnapshot, error)
}

// PriceOracle returns the current SOL price per token.
type PriceOracle interface {
	CurrentPrice(ctx context.Context, c domain.TokenCandidate) (float64, error)
}

// Fill is a completed order.
type Fill struct {
	Signature string
	Price     float64 // SOL per token
	At        time.Time
}

// ExecutionGateway places orders.
type ExecutionGateway interface {
	Buy(ctx context.Context, c domain.TokenCandidate, sol float64) (Fill, error)
	Sell(ctx context.Context, p domain.Position) (Fill, error)
}

// CapitalOracle reads an account's SOL balance.
type CapitalOracle interface {
	Balance(ctx context.Context, account string) (float64, error)
}
