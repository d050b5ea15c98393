package domain

import "time"

// ClosedTrade is the immutable record of a completed round trip.
// One row per closed trade in the trade log.
type ClosedTrade struct {
	TradeID string // deterministic hash of mint, entry signature and entry time

	Mint    string
	Symbol  string
	Name    string
	Creator string

	// Entry
	EntryTime      time.Time
	EntryPrice     float64
	EntrySOL       float64
	EntryTokens    float64
	EntrySignature string

	// Exit
	ExitTime      time.Time
	ExitPrice     float64
	ExitSOL       float64 // net of exit fee
	ExitSignature string
	ExitReason    string // reason code, see ExitReason* constants
	ExitDetail    string // human-readable trigger description

	// Costs
	EntryFeeSOL float64
	ExitFeeSOL  float64
	FeesPaidSOL float64

	// Outcome
	PnLSOL       float64
	PnLPercent   float64 // PnLSOL as % of EntrySOL
	Outcome      Outcome
	HoldSeconds  float64
	HighestPrice float64
}

// Exit reason codes.
const (
	ExitReasonTakeProfit   = "TAKE_PROFIT"
	ExitReasonStopLoss     = "STOP_LOSS"
	ExitReasonTrailingStop = "TRAILING_STOP"
	ExitReasonMaxHold      = "MAX_HOLD"
	ExitReasonMaxLoss      = "MAX_LOSS"
	ExitReasonShutdown     = "SHUTDOWN"
)

// Outcome classifies a closed trade by realized P&L.
type Outcome string

const (
	OutcomeProfit    Outcome = "PROFIT"
	OutcomeLoss      Outcome = "LOSS"
	OutcomeBreakeven Outcome = "BREAKEVEN"
)

// OutcomeEpsilonSOL is the band around zero treated as breakeven.
const OutcomeEpsilonSOL = 0.001

// ClassifyOutcome maps realized P&L in SOL to an outcome class.
func ClassifyOutcome(pnlSOL float64) Outcome {
	switch {
	case pnlSOL > OutcomeEpsilonSOL:
		return OutcomeProfit
	case pnlSOL < -OutcomeEpsilonSOL:
		return OutcomeLoss
	default:
		return OutcomeBreakeven
	}
}
