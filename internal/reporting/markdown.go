package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	s := r.Summary

	// Header
	sb.WriteString("# Trading Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Source != "" {
		sb.WriteString(fmt.Sprintf("Source: %s\n\n", r.Source))
	}
	if s.TotalTrades > 0 {
		sb.WriteString(fmt.Sprintf("Period: %s to %s\n\n",
			r.PeriodStart.Format(time.RFC3339), r.PeriodEnd.Format(time.RFC3339)))
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Tokens | %d |\n", s.TotalTokens))
	sb.WriteString(fmt.Sprintf("| Wins / Losses / Breakeven | %d / %d / %d |\n", s.Wins, s.Losses, s.Breakeven))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", s.WinRate))
	sb.WriteString(fmt.Sprintf("| Net P&L | %.6f SOL |\n", s.TotalPnLSOL))
	sb.WriteString(fmt.Sprintf("| Fees Paid | %.6f SOL |\n", s.TotalFeesSOL))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.6f SOL |\n", s.MaxDrawdownSOL))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", s.MaxConsecutiveLosses))
	sb.WriteString(fmt.Sprintf("| Avg Hold | %.1f s |\n", s.AvgHoldSeconds))
	sb.WriteString("\n")

	if s.TotalTrades == 0 {
		sb.WriteString("No trades recorded.\n")
		return sb.String()
	}

	// P&L distribution
	sb.WriteString("## P&L Distribution (%)\n\n")
	sb.WriteString("| Mean | Stddev | Min | P10 | P25 | Median | P75 | P90 | Max |\n")
	sb.WriteString("|------|--------|-----|-----|-----|--------|-----|-----|-----|\n")
	sb.WriteString(fmt.Sprintf("| %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f |\n\n",
		s.PnLMean, s.PnLStddev, s.PnLMin, s.PnLP10, s.PnLP25, s.PnLMedian, s.PnLP75, s.PnLP90, s.PnLMax))

	// Exit reasons
	sb.WriteString("## Exit Reasons\n\n")
	sb.WriteString("| Reason | Trades | Share | Net P&L (SOL) |\n")
	sb.WriteString("|--------|--------|-------|---------------|\n")
	for _, e := range r.ExitReasons {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.1f%% | %.6f |\n", e.Reason, e.Trades, e.Share, e.TotalPnLSOL))
	}
	sb.WriteString("\n")

	// Daily
	sb.WriteString("## Daily\n\n")
	sb.WriteString("| Day | Trades | Wins | Win Rate | Net P&L (SOL) | Fees (SOL) |\n")
	sb.WriteString("|-----|--------|------|----------|---------------|------------|\n")
	for _, d := range r.Daily {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.1f%% | %.6f | %.6f |\n",
			d.Day.Format("2006-01-02"), d.Trades, d.Wins, d.WinRate, d.TotalPnLSOL, d.FeesSOL))
	}
	sb.WriteString("\n")

	writeTrades(&sb, "Best Trades", r.Best)
	writeTrades(&sb, "Worst Trades", r.Worst)
	return sb.String()
}

func writeTrades(sb *strings.Builder, title string, rows []TradeRow) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	sb.WriteString("| Symbol | Mint | Exit | Reason | P&L (SOL) | P&L % | Hold (s) |\n")
	sb.WriteString("|--------|------|------|--------|-----------|-------|----------|\n")
	for _, t := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.6f | %.2f | %.0f |\n",
			t.Symbol, t.Mint, t.ExitTime.Format(time.RFC3339), t.ExitReason, t.PnLSOL, t.PnLPercent, t.HoldSeconds))
	}
	sb.WriteString("\n")
}
