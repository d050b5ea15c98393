package solana

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Token and SOL precision on the pump curve.
const (
	LamportsPerSOL = 1_000_000_000
	TokenDecimals  = 6

	// InitialRealTokenReserves is the curve's sellable supply at launch, in base units.
	InitialRealTokenReserves uint64 = 793_100_000_000_000
)

// bondingCurveLen is discriminator(8) + 5*u64 + bool.
const bondingCurveLen = 8 + 5*8 + 1

// BondingCurve is the decoded pump bonding curve account.
type BondingCurve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// DecodeBondingCurve parses raw account data.
func DecodeBondingCurve(data []byte) (*BondingCurve, error) {
	if len(data) < bondingCurveLen {
		return nil, fmt.Errorf("bonding curve: want at least %d bytes, got %d", bondingCurveLen, len(data))
	}
	le := binary.LittleEndian
	return &BondingCurve{
		VirtualTokenReserves: le.Uint64(data[8:16]),
		VirtualSolReserves:   le.Uint64(data[16:24]),
		RealTokenReserves:    le.Uint64(data[24:32]),
		RealSolReserves:      le.Uint64(data[32:40]),
		TokenTotalSupply:     le.Uint64(data[40:48]),
		Complete:             data[48] != 0,
	}, nil
}

// Price returns the spot price in SOL per whole token from the virtual reserves.
func (b *BondingCurve) Price() float64 {
	if b.VirtualTokenReserves == 0 {
		return 0
	}
	sol := LamportsToSOL(b.VirtualSolReserves)
	tokens := decimal.NewFromBigInt(new(big.Int).SetUint64(b.VirtualTokenReserves), -TokenDecimals)
	return sol.DivRound(tokens, 30).InexactFloat64()
}

// ProgressPercent is how far the curve has sold toward graduation, 0..100.
func (b *BondingCurve) ProgressPercent() float64 {
	if b.Complete {
		return 100
	}
	if b.RealTokenReserves >= InitialRealTokenReserves {
		return 0
	}
	sold := InitialRealTokenReserves - b.RealTokenReserves
	return float64(sold) / float64(InitialRealTokenReserves) * 100
}

// LamportsToSOL converts lamports to SOL without float rounding.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9)
}

// SOLToLamports converts SOL to lamports, truncating sub-lamport dust.
func SOLToLamports(sol float64) uint64 {
	d := decimal.NewFromFloat(sol).Shift(9).Truncate(0)
	if d.Sign() <= 0 {
		return 0
	}
	return d.BigInt().Uint64()
}
