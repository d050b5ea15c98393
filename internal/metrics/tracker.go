package metrics

import (
	"time"

	"pump-trader/internal/domain"
)

// Tracker maintains BotMetrics incrementally from closed trades.
// Not safe for concurrent use; the engine serializes access.
type Tracker struct {
	m domain.BotMetrics
}

// NewTracker creates a tracker for a run starting at start.
func NewTracker(initialCapitalSOL float64, start time.Time) *Tracker {
	return &Tracker{m: domain.BotMetrics{
		StartTime:         start,
		InitialCapitalSOL: initialCapitalSOL,
		CurrentCapitalSOL: initialCapitalSOL,
		PeakCapitalSOL:    initialCapitalSOL,
	}}
}

// Record folds one closed trade into the counters.
func (t *Tracker) Record(tr domain.ClosedTrade) {
	m := &t.m
	first := m.TotalTrades == 0
	m.TotalTrades++

	switch tr.Outcome {
	case domain.OutcomeProfit:
		m.WinningTrades++
	case domain.OutcomeLoss:
		m.LosingTrades++
	default:
		m.BreakevenTrades++
	}

	m.TotalPnLSOL += tr.PnLSOL
	m.TotalFeesSOL += tr.FeesPaidSOL
	if first || tr.PnLSOL > m.BestTradePnLSOL {
		m.BestTradePnLSOL = tr.PnLSOL
	}
	if first || tr.PnLSOL < m.WorstTradePnLSOL {
		m.WorstTradePnLSOL = tr.PnLSOL
	}

	// running mean of per-trade percent
	m.AveragePnLPercent += (tr.PnLPercent - m.AveragePnLPercent) / float64(m.TotalTrades)
	m.AveragePnLSOL = m.TotalPnLSOL / float64(m.TotalTrades)
	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
}

// UpdateCapital copies the ledger view into the metrics.
func (t *Tracker) UpdateCapital(current, peak, maxDrawdownSOL, maxDrawdownPercent float64) {
	t.m.CurrentCapitalSOL = current
	t.m.PeakCapitalSOL = peak
	t.m.MaxDrawdownSOL = maxDrawdownSOL
	t.m.MaxDrawdownPercent = maxDrawdownPercent
}

// Evaluated counts a candidate that reached the scorer.
func (t *Tracker) Evaluated() { t.m.TokensEvaluated++ }

// Skipped counts a candidate rejected by filters, score or gate.
func (t *Tracker) Skipped() { t.m.TokensSkipped++ }

// EntryFailed counts an entry order that did not fill.
func (t *Tracker) EntryFailed() { t.m.EntriesFailed++ }

// Metrics returns a copy of the current metrics.
func (t *Tracker) Metrics() domain.BotMetrics {
	return t.m
}

// Restore loads persisted counters. Assignment only, so restoring twice is a no-op.
func (t *Tracker) Restore(s domain.Snapshot) {
	m := &t.m
	m.InitialCapitalSOL = s.InitialCapital
	m.CurrentCapitalSOL = s.CurrentCapital
	m.TotalTrades = s.TradeCount
	m.WinningTrades = s.Metrics.WinningTrades
	m.LosingTrades = s.Metrics.LosingTrades
	m.BreakevenTrades = s.Metrics.BreakevenTrades
	m.TotalPnLSOL = s.Metrics.TotalPnLSOL
	m.TotalFeesSOL = s.Metrics.TotalFeesSOL
	m.BestTradePnLSOL = s.Metrics.BestTradePnLSOL
	m.WorstTradePnLSOL = s.Metrics.WorstTradePnLSOL
	m.PeakCapitalSOL = s.Metrics.PeakCapitalSOL
	m.MaxDrawdownSOL = s.Metrics.MaxDrawdownSOL
	m.MaxDrawdownPercent = s.Metrics.MaxDrawdownPercent
	m.AveragePnLPercent = s.Metrics.AveragePnLPercent

	m.WinRate, m.AveragePnLSOL = 0, 0
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
		m.AveragePnLSOL = m.TotalPnLSOL / float64(m.TotalTrades)
	}
}

// Snapshot builds the persisted view of the metrics.
func (t *Tracker) Snapshot(now time.Time) domain.Snapshot {
	m := t.m
	return domain.Snapshot{
		CurrentCapital: m.CurrentCapitalSOL,
		InitialCapital: m.InitialCapitalSOL,
		TradeCount:     m.TotalTrades,
		Metrics: domain.SnapshotMetrics{
			WinningTrades:      m.WinningTrades,
			LosingTrades:       m.LosingTrades,
			BreakevenTrades:    m.BreakevenTrades,
			TotalPnLSOL:        m.TotalPnLSOL,
			TotalFeesSOL:       m.TotalFeesSOL,
			BestTradePnLSOL:    m.BestTradePnLSOL,
			WorstTradePnLSOL:   m.WorstTradePnLSOL,
			AveragePnLPercent:  m.AveragePnLPercent,
			PeakCapitalSOL:     m.PeakCapitalSOL,
			MaxDrawdownSOL:     m.MaxDrawdownSOL,
			MaxDrawdownPercent: m.MaxDrawdownPercent,
		},
		UpdatedAt: now,
	}
}
