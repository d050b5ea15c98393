package solana

import (
	"context"
	"fmt"

	"pump-trader/internal/domain"
)

// AccountReader is the part of RPCClient the oracles need.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// CurveOracle prices a candidate from its bonding curve account.
type CurveOracle struct {
	rpc AccountReader
}

// NewCurveOracle creates a CurveOracle.
func NewCurveOracle(rpc AccountReader) *CurveOracle {
	return &CurveOracle{rpc: rpc}
}

// Curve fetches and decodes the candidate's bonding curve.
func (o *CurveOracle) Curve(ctx context.Context, c domain.TokenCandidate) (*BondingCurve, error) {
	addr := c.BondingCurve
	if addr == "" {
		var err error
		if addr, err = BondingCurveAddress(c.Mint); err != nil {
			return nil, err
		}
	}
	info, err := o.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("fetch bonding curve %s: %w", addr, err)
	}
	if info == nil {
		return nil, fmt.Errorf("bonding curve %s not found", addr)
	}
	if info.Owner != "" && info.Owner != PumpProgramID {
		return nil, fmt.Errorf("bonding curve %s owned by %s", addr, info.Owner)
	}
	return DecodeBondingCurve(info.Data)
}

// CurrentPrice returns the curve spot price in SOL per token.
func (o *CurveOracle) CurrentPrice(ctx context.Context, c domain.TokenCandidate) (float64, error) {
	curve, err := o.Curve(ctx, c)
	if err != nil {
		return 0, err
	}
	price := curve.Price()
	if price <= 0 {
		return 0, fmt.Errorf("bonding curve for %s has no reserves", c.Mint)
	}
	return price, nil
}

// BalanceOracle reads wallet balances in SOL.
type BalanceOracle struct {
	rpc AccountReader
}

// NewBalanceOracle creates a BalanceOracle.
func NewBalanceOracle(rpc AccountReader) *BalanceOracle {
	return &BalanceOracle{rpc: rpc}
}

// Balance returns the account's SOL balance.
func (o *BalanceOracle) Balance(ctx context.Context, account string) (float64, error) {
	lamports, err := o.rpc.GetBalance(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("get balance %s: %w", account, err)
	}
	return LamportsToSOL(lamports).InexactFloat64(), nil
}
