package metrics

import (
	"math"
	"sort"

	"pump-trader/internal/domain"
)

// Summary is the distribution view of a trade log.
type Summary struct {
	TotalTrades int     `json:"total_trades"`
	TotalTokens int     `json:"total_tokens"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Breakeven   int     `json:"breakeven"`
	WinRate     float64 `json:"win_rate"` // percent

	TotalPnLSOL  float64 `json:"total_pnl_sol"`
	TotalFeesSOL float64 `json:"total_fees_sol"`

	// P&L percent distribution
	PnLMean   float64 `json:"pnl_mean"`
	PnLMedian float64 `json:"pnl_median"`
	PnLP10    float64 `json:"pnl_p10"`
	PnLP25    float64 `json:"pnl_p25"`
	PnLP75    float64 `json:"pnl_p75"`
	PnLP90    float64 `json:"pnl_p90"`
	PnLMin    float64 `json:"pnl_min"`
	PnLMax    float64 `json:"pnl_max"`
	PnLStddev float64 `json:"pnl_stddev"`

	AvgHoldSeconds       float64        `json:"avg_hold_seconds"`
	MaxDrawdownSOL       float64        `json:"max_drawdown_sol"`
	MaxConsecutiveLosses int            `json:"max_consecutive_losses"`
	ExitReasons          map[string]int `json:"exit_reasons"`
}

// Summarize computes statistics over trades.
// Trades are ordered by ExitTime then TradeID before order-dependent
// metrics (drawdown, loss streaks) are computed.
func Summarize(trades []domain.ClosedTrade) Summary {
	n := len(trades)
	s := Summary{TotalTrades: n, ExitReasons: make(map[string]int)}
	if n == 0 {
		return s
	}

	sorted := make([]domain.ClosedTrade, n)
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].ExitTime.Equal(sorted[j].ExitTime) {
			return sorted[i].ExitTime.Before(sorted[j].ExitTime)
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})

	pnlSOL := make([]float64, n)
	pnlPct := make([]float64, n)
	tokens := make(map[string]struct{})
	var holdTotal float64
	for i, t := range sorted {
		switch t.Outcome {
		case domain.OutcomeProfit:
			s.Wins++
		case domain.OutcomeLoss:
			s.Losses++
		default:
			s.Breakeven++
		}
		s.TotalPnLSOL += t.PnLSOL
		s.TotalFeesSOL += t.FeesPaidSOL
		s.ExitReasons[t.ExitReason]++
		holdTotal += t.HoldSeconds
		tokens[t.Mint] = struct{}{}
		pnlSOL[i] = t.PnLSOL
		pnlPct[i] = t.PnLPercent
	}

	ordered := make([]float64, n)
	copy(ordered, pnlPct)
	sort.Float64s(ordered)

	s.TotalTokens = len(tokens)
	s.WinRate = float64(s.Wins) / float64(n) * 100
	s.AvgHoldSeconds = holdTotal / float64(n)

	s.PnLMean = mean(pnlPct)
	s.PnLStddev = stddev(pnlPct, s.PnLMean)
	s.PnLMedian = percentile(ordered, 0.50)
	s.PnLP10 = percentile(ordered, 0.10)
	s.PnLP25 = percentile(ordered, 0.25)
	s.PnLP75 = percentile(ordered, 0.75)
	s.PnLP90 = percentile(ordered, 0.90)
	s.PnLMin = ordered[0]
	s.PnLMax = ordered[n-1]

	s.MaxDrawdownSOL = maxDrawdown(pnlSOL)
	s.MaxConsecutiveLosses = maxConsecutiveLosses(sorted)
	return s
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the sample standard deviation (n-1 denominator).
func stddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// percentile uses linear interpolation over an ascending slice.
// p is a fraction (0.10 = 10th percentile).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// maxDrawdown is the worst peak-to-trough on cumulative P&L, in chronological order.
func maxDrawdown(pnl []float64) float64 {
	cumulative, peak, worst := 0.0, 0.0, 0.0
	for _, v := range pnl {
		cumulative += v
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > worst {
			worst = dd
		}
	}
	return worst
}

// maxConsecutiveLosses finds the longest run of LOSS outcomes.
func maxConsecutiveLosses(trades []domain.ClosedTrade) int {
	best, run := 0, 0
	for _, t := range trades {
		if t.Outcome == domain.OutcomeLoss {
			run++
			if run > best {
				best = run
			}
			continue
		}
		run = 0
	}
	return best
}
