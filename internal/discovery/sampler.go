package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pump-trader/internal/domain"
	"pump-trader/internal/solana"
)

// RPCSampler measures early trading from the candidate's bonding curve account
// and the pump trade events in its transaction history.
type RPCSampler struct {
	rpc    solana.RPCClient
	curves *solana.CurveOracle
	maxTxs int
	log    zerolog.Logger
}

// NewRPCSampler creates a sampler that reads at most maxTxs transactions per sample.
func NewRPCSampler(rpc solana.RPCClient, maxTxs int, log zerolog.Logger) *RPCSampler {
	if maxTxs <= 0 {
		maxTxs = 100
	}
	return &RPCSampler{
		rpc:    rpc,
		curves: solana.NewCurveOracle(rpc),
		maxTxs: maxTxs,
		log:    log.With().Str("component", "sampler").Logger(),
	}
}

// Sample waits window, then summarises trades since launch and the curve's price move over the window.
func (s *RPCSampler) Sample(ctx context.Context, c domain.TokenCandidate, window time.Duration) (domain.ActivitySnapshot, error) {
	startPrice := c.InitialPrice
	if before, err := s.curves.Curve(ctx, c); err == nil {
		startPrice = before.Price()
	} else {
		s.log.Debug().Err(err).Str("mint", c.ShortMint()).Msg("curve not readable before window")
	}

	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return domain.ActivitySnapshot{}, ctx.Err()
	case <-timer.C:
	}

	after, err := s.curves.Curve(ctx, c)
	if err != nil {
		return domain.ActivitySnapshot{}, fmt.Errorf("read curve after window: %w", err)
	}

	a := domain.ActivitySnapshot{
		CurveProgressPercent: after.ProgressPercent(),
		WindowSeconds:        window.Seconds(),
		CapturedAt:           time.Now(),
	}
	if p := after.Price(); startPrice > 0 && p > 0 {
		a.PriceChangePercent = (p/startPrice - 1) * 100
	}

	if err := s.countTrades(ctx, c, &a); err != nil {
		return domain.ActivitySnapshot{}, err
	}
	return a, nil
}

func (s *RPCSampler) countTrades(ctx context.Context, c domain.TokenCandidate, a *domain.ActivitySnapshot) error {
	sigs, err := s.rpc.GetSignaturesForAddress(ctx, c.BondingCurve, &solana.SignaturesOpts{Until: c.Signature, Limit: s.maxTxs})
	if err != nil {
		return fmt.Errorf("list curve signatures: %w", err)
	}

	buyers := make(map[string]struct{})
	var lamports uint64
	for _, sig := range sigs {
		if sig.Err != nil {
			continue
		}
		tx, err := s.rpc.GetTransaction(ctx, sig.Signature)
		if err != nil {
			return fmt.Errorf("fetch trade %s: %w", sig.Signature, err)
		}
		if tx == nil || tx.Meta == nil {
			continue
		}
		_, trades := ParseEvents(tx.Meta.LogMessages)
		for _, t := range trades {
			if t.Mint != c.Mint {
				continue
			}
			lamports += t.SolAmount
			if t.IsBuy {
				a.BuyCount++
				buyers[t.User] = struct{}{}
			} else {
				a.SellCount++
			}
		}
	}
	a.UniqueBuyers = len(buyers)
	a.VolumeSOL = solana.LamportsToSOL(lamports).InexactFloat64()
	return nil
}
