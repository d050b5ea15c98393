package solana

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/mr-tron/base58"

	"pump-trader/internal/domain"
)

func encodeCurve(b BondingCurve) []byte {
	data := make([]byte, bondingCurveLen)
	copy(data[:8], []byte{0x17, 0xb7, 0xf8, 0x37, 0x60, 0xd8, 0xac, 0x60})
	le := binary.LittleEndian
	le.PutUint64(data[8:], b.VirtualTokenReserves)
	le.PutUint64(data[16:], b.VirtualSolReserves)
	le.PutUint64(data[24:], b.RealTokenReserves)
	le.PutUint64(data[32:], b.RealSolReserves)
	le.PutUint64(data[40:], b.TokenTotalSupply)
	if b.Complete {
		data[48] = 1
	}
	return data
}

// freshCurve is the state of a pump curve right after creation.
var freshCurve = BondingCurve{
	VirtualTokenReserves: 1_073_000_000_000_000,
	VirtualSolReserves:   30_000_000_000,
	RealTokenReserves:    793_100_000_000_000,
	RealSolReserves:      0,
	TokenTotalSupply:     1_000_000_000_000_000,
}

func TestDecodeBondingCurve(t *testing.T) {
	got, err := DecodeBondingCurve(encodeCurve(freshCurve))
	if err != nil {
		t.Fatalf("DecodeBondingCurve: %v", err)
	}
	if *got != freshCurve {
		t.Errorf("decoded %+v, want %+v", *got, freshCurve)
	}

	if _, err := DecodeBondingCurve(make([]byte, 20)); err == nil {
		t.Error("expected error for short data")
	}
}

func TestBondingCurve_PriceAndProgress(t *testing.T) {
	c := freshCurve
	// 30 SOL over 1.073B tokens
	if want := 30.0 / 1_073_000_000; math.Abs(c.Price()-want) > 1e-18 {
		t.Errorf("price = %v, want %v", c.Price(), want)
	}
	if c.ProgressPercent() != 0 {
		t.Errorf("fresh progress = %v", c.ProgressPercent())
	}

	c.RealTokenReserves = InitialRealTokenReserves * 9 / 10
	if math.Abs(c.ProgressPercent()-10) > 1e-9 {
		t.Errorf("progress = %v, want 10", c.ProgressPercent())
	}

	c.Complete = true
	if c.ProgressPercent() != 100 {
		t.Errorf("complete progress = %v", c.ProgressPercent())
	}

	if (&BondingCurve{}).Price() != 0 {
		t.Error("empty curve must price at 0")
	}
}

func TestLamportConversion(t *testing.T) {
	if got := LamportsToSOL(1_500_000_000).InexactFloat64(); got != 1.5 {
		t.Errorf("LamportsToSOL = %v", got)
	}
	if got := SOLToLamports(0.123456789123); got != 123_456_789 {
		t.Errorf("SOLToLamports = %d", got)
	}
	if got := SOLToLamports(-1); got != 0 {
		t.Errorf("negative SOL = %d", got)
	}
}

func TestFindProgramAddress(t *testing.T) {
	mint := base58.Encode(make([]byte, 32))

	a, err := BondingCurveAddress(mint)
	if err != nil {
		t.Fatalf("BondingCurveAddress: %v", err)
	}
	b, _ := BondingCurveAddress(mint)
	if a != b {
		t.Error("derivation must be deterministic")
	}
	raw, err := DecodePubkey(a)
	if err != nil {
		t.Fatalf("derived address not a pubkey: %v", err)
	}
	if isOnCurve(raw) {
		t.Error("program address must be off curve")
	}

	other := make([]byte, 32)
	other[0] = 1
	c, _ := BondingCurveAddress(base58.Encode(other))
	if c == a {
		t.Error("different mints must derive different curves")
	}

	ata, err := AssociatedTokenAddress(a, mint)
	if err != nil {
		t.Fatalf("AssociatedTokenAddress: %v", err)
	}
	if ata == a {
		t.Error("associated account must differ from owner")
	}

	if _, err := BondingCurveAddress("not-base58-0OIl"); err == nil {
		t.Error("expected error for invalid mint")
	}
}

type fakeAccounts struct {
	info    *AccountInfo
	balance uint64
}

func (f fakeAccounts) GetAccountInfo(context.Context, string) (*AccountInfo, error) {
	return f.info, nil
}

func (f fakeAccounts) GetBalance(context.Context, string) (uint64, error) {
	return f.balance, nil
}

func TestCurveOracle(t *testing.T) {
	c := freshCurve
	c.VirtualSolReserves = 60_000_000_000 // doubled price
	oracle := NewCurveOracle(fakeAccounts{info: &AccountInfo{Owner: PumpProgramID, Data: encodeCurve(c)}})

	price, err := oracle.CurrentPrice(context.Background(), domain.TokenCandidate{Mint: "m", BondingCurve: "curve"})
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if want := 60.0 / 1_073_000_000; math.Abs(price-want) > 1e-18 {
		t.Errorf("price = %v, want %v", price, want)
	}

	missing := NewCurveOracle(fakeAccounts{})
	if _, err := missing.CurrentPrice(context.Background(), domain.TokenCandidate{Mint: "m", BondingCurve: "curve"}); err == nil {
		t.Error("expected error for missing curve")
	}

	foreign := NewCurveOracle(fakeAccounts{info: &AccountInfo{Owner: TokenProgramID, Data: encodeCurve(c)}})
	if _, err := foreign.CurrentPrice(context.Background(), domain.TokenCandidate{Mint: "m", BondingCurve: "curve"}); err == nil {
		t.Error("expected error for curve owned by another program")
	}
}

func TestBalanceOracle(t *testing.T) {
	o := NewBalanceOracle(fakeAccounts{balance: 2_000_000_000})
	sol, err := o.Balance(context.Background(), "wallet")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if sol != 2 {
		t.Errorf("balance = %v", sol)
	}
}
