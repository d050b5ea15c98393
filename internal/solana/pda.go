package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program ids.
const (
	PumpProgramID            = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

// DecodePubkey decodes a base58 public key and checks its length.
func DecodePubkey(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("pubkey %q: want 32 bytes, got %d", s, len(b))
	}
	return b, nil
}

// FindProgramAddress derives the canonical program address for seeds,
// searching bump seeds from 255 down for a hash that is off the ed25519 curve.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := DecodePubkey(programID)
	if err != nil {
		return "", 0, err
	}
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, s := range seeds {
			h.Write(s)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program)
		h.Write([]byte("ProgramDerivedAddress"))
		sum := h.Sum(nil)

		if !isOnCurve(sum) {
			return base58.Encode(sum), uint8(bump), nil
		}
	}
	return "", 0, fmt.Errorf("no viable bump for program %s", programID)
}

func isOnCurve(point []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// BondingCurveAddress derives the pump bonding curve account for mint.
func BondingCurveAddress(mint string) (string, error) {
	m, err := DecodePubkey(mint)
	if err != nil {
		return "", err
	}
	addr, _, err := FindProgramAddress([][]byte{[]byte("bonding-curve"), m}, PumpProgramID)
	return addr, err
}

// AssociatedTokenAddress derives the associated token account of owner for mint.
func AssociatedTokenAddress(owner, mint string) (string, error) {
	o, err := DecodePubkey(owner)
	if err != nil {
		return "", err
	}
	m, err := DecodePubkey(mint)
	if err != nil {
		return "", err
	}
	tp, err := DecodePubkey(TokenProgramID)
	if err != nil {
		return "", err
	}
	addr, _, err := FindProgramAddress([][]byte{o, tp, m}, AssociatedTokenProgramID)
	return addr, err
}
