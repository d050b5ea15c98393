// Package verification audits a recorded trade log.
// Each stored trade is settled again from its entry and exit fields and the
// derived values are compared with what was recorded.
package verification

import (
	"context"
	"math"
	"time"

	"pump-trader/internal/domain"
	"pump-trader/internal/idhash"
	"pump-trader/internal/risk"
	"pump-trader/internal/storage"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between recorded and recomputed values.
type FieldDivergence struct {
	Field    string // field name
	Expected any    // recomputed value
	Actual   any    // recorded value
}

// Result contains the result of verifying a single trade.
type Result struct {
	TradeID     string
	Mint        string
	Match       bool              // true if all fields match
	Divergences []FieldDivergence // list of divergent fields
}

// Report contains results for batch verification.
type Report struct {
	TotalTrades     int
	MatchedTrades   int
	DivergentTrades int
	Results         []Result // divergent trades only
}

// Verifier recomputes trades with the fee model they were settled under.
type Verifier struct {
	trades storage.TradeStore
	fees   risk.FeeModel
}

// NewVerifier creates a verifier over trades using feePercent per side.
func NewVerifier(trades storage.TradeStore, feePercent float64) *Verifier {
	return &Verifier{trades: trades, fees: risk.NewFeeModel(feePercent)}
}

// VerifyTrade verifies a single trade by ID.
func (v *Verifier) VerifyTrade(ctx context.Context, tradeID string) (*Result, error) {
	t, err := v.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	r := v.Check(t)
	return &r, nil
}

// VerifyAll verifies every stored trade.
func (v *Verifier) VerifyAll(ctx context.Context) (*Report, error) {
	trades, err := v.trades.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{TotalTrades: len(trades), Results: []Result{}}
	for _, t := range trades {
		r := v.Check(t)
		if r.Match {
			report.MatchedTrades++
			continue
		}
		report.DivergentTrades++
		report.Results = append(report.Results, r)
	}
	return report, nil
}

// Check compares a recorded trade with its recomputed settlement.
func (v *Verifier) Check(t *domain.ClosedTrade) Result {
	want := v.Recompute(t)
	divs := CompareTrades(want, t)
	return Result{
		TradeID:     t.TradeID,
		Mint:        t.Mint,
		Match:       len(divs) == 0,
		Divergences: divs,
	}
}

// Recompute derives every computed field of t from its recorded entry and exit.
func (v *Verifier) Recompute(t *domain.ClosedTrade) *domain.ClosedTrade {
	out := *t
	s := v.fees.Settle(t.EntrySOL, t.EntryTokens, t.ExitPrice)

	out.TradeID = idhash.ComputeTradeID(t.Mint, t.EntrySignature, t.EntryTime)
	out.ExitSOL = s.NetExit
	out.EntryFeeSOL = s.EntryFeeSOL
	out.ExitFeeSOL = s.ExitFeeSOL
	out.FeesPaidSOL = s.EntryFeeSOL + s.ExitFeeSOL
	out.PnLSOL = s.PnLSOL
	out.PnLPercent = s.PnLPercent
	out.Outcome = domain.ClassifyOutcome(s.PnLSOL)
	out.HoldSeconds = t.ExitTime.Sub(t.EntryTime).Seconds()
	return &out
}

// CompareTrades returns the derived fields where recorded differs from want.
// Uses FloatTolerance for float64 comparisons.
func CompareTrades(want, recorded *domain.ClosedTrade) []FieldDivergence {
	var divs []FieldDivergence
	add := func(field string, expected, actual any) {
		divs = append(divs, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}
	floats := func(field string, expected, actual float64) {
		if !floatEquals(expected, actual) {
			add(field, expected, actual)
		}
	}

	// TradeID must match exactly
	if want.TradeID != recorded.TradeID {
		add("TradeID", want.TradeID, recorded.TradeID)
	}
	if recorded.ExitTime.Before(recorded.EntryTime) {
		add("ExitTime", "not before EntryTime", recorded.ExitTime.Format(time.RFC3339Nano))
	}

	// Settlement
	floats("ExitSOL", want.ExitSOL, recorded.ExitSOL)
	floats("EntryFeeSOL", want.EntryFeeSOL, recorded.EntryFeeSOL)
	floats("ExitFeeSOL", want.ExitFeeSOL, recorded.ExitFeeSOL)
	floats("FeesPaidSOL", want.FeesPaidSOL, recorded.FeesPaidSOL)
	floats("PnLSOL", want.PnLSOL, recorded.PnLSOL)
	floats("PnLPercent", want.PnLPercent, recorded.PnLPercent)

	if want.Outcome != recorded.Outcome {
		add("Outcome", want.Outcome, recorded.Outcome)
	}

	// Hold time is stored with millisecond precision by some backends.
	if math.Abs(want.HoldSeconds-recorded.HoldSeconds) > 1e-3 {
		add("HoldSeconds", want.HoldSeconds, recorded.HoldSeconds)
	}

	if recorded.HighestPrice+FloatTolerance < recorded.ExitPrice {
		add("HighestPrice", recorded.ExitPrice, recorded.HighestPrice)
	}
	return divs
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
