package risk

import (
	"testing"
	"time"

	"pump-trader/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openPosition(t *testing.T, entryPrice, sol float64) *domain.Position {
	t.Helper()
	p, err := domain.NewPosition(domain.TokenCandidate{Mint: "Mint111", Signature: "sig", BondingCurve: "curve"}, entryPrice, sol, "entry-sig", t0)
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	return p
}

func TestExitPolicy_Precedence(t *testing.T) {
	cfg := DefaultExitConfig()
	cfg.TrailingStopPercent = 0 // isolated below
	policy := NewExitPolicy(cfg)

	tests := []struct {
		name   string
		price  float64
		held   time.Duration
		exit   bool
		reason string
	}{
		{"min hold floor beats big loss", 0.00001, 2 * time.Second, false, ""},
		{"massive gain exits at min hold", 0.0002, 5 * time.Second, true, domain.ExitReasonTakeProfit},
		{"50 percent needs 10s", 0.00016, 6 * time.Second, false, ""},
		{"50 percent after 10s", 0.00016, 10 * time.Second, true, domain.ExitReasonTakeProfit},
		{"25 percent needs 60s", 0.000125, 40 * time.Second, false, ""},
		{"25 percent after 60s", 0.000125, 60 * time.Second, true, domain.ExitReasonTakeProfit},
		{"stop loss", 0.000075, 6 * time.Second, true, domain.ExitReasonStopLoss},
		{"profit beats max hold", 0.00016, 400 * time.Second, true, domain.ExitReasonTakeProfit},
		{"max hold", 0.0001, 300 * time.Second, true, domain.ExitReasonMaxHold},
		{"holding", 0.000105, 30 * time.Second, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := openPosition(t, 0.0001, 1.0)
			now := t0.Add(tt.held)
			p.UpdatePrice(tt.price, now)

			d := policy.Evaluate(*p, now)
			if d.Exit != tt.exit {
				t.Fatalf("exit = %v, want %v (%s)", d.Exit, tt.exit, d.Detail)
			}
			if d.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", d.Reason, tt.reason)
			}
		})
	}
}

func TestExitPolicy_TrailingStop(t *testing.T) {
	policy := NewExitPolicy(DefaultExitConfig())
	p := openPosition(t, 0.0001, 1.0)

	// run up to +40% then fall back to +15%, under the 15% trail from peak
	p.UpdatePrice(0.00014, t0.Add(8*time.Second))
	policy.UpdateRisk(p)
	if want := 0.00014 * 0.85; !approxEqual(p.TrailingStopPrice, want) {
		t.Fatalf("trailing stop = %v, want %v", p.TrailingStopPrice, want)
	}

	now := t0.Add(9 * time.Second)
	p.UpdatePrice(0.000115, now)
	policy.UpdateRisk(p)

	d := policy.Evaluate(*p, now)
	if !d.Exit || d.Reason != domain.ExitReasonTrailingStop {
		t.Errorf("expected trailing stop exit, got %+v", d)
	}
}

func TestExitPolicy_MaxLossCap(t *testing.T) {
	cfg := DefaultExitConfig()
	cfg.TrailingStopPercent = 0
	cfg.StopLossPercent = 90
	cfg.MaxLossPerTradeSOL = 0.3
	policy := NewExitPolicy(cfg)

	p := openPosition(t, 0.0001, 1.0)
	now := t0.Add(20 * time.Second)
	p.UpdatePrice(0.00006, now) // -0.4 SOL, -40%

	d := policy.Evaluate(*p, now)
	if !d.Exit || d.Reason != domain.ExitReasonMaxLoss {
		t.Errorf("expected max loss exit, got %+v", d)
	}

	// a gain of the same size must not trip the loss cap
	p2 := openPosition(t, 0.0001, 1.0)
	p2.UpdatePrice(0.000101, now)
	p2.UnrealizedPnLSOL = 0.4
	if d := policy.Evaluate(*p2, now); d.Exit {
		t.Errorf("unexpected exit on gain: %+v", d)
	}
}

func TestExitPolicy_UpdateRiskKeepsStops(t *testing.T) {
	policy := NewExitPolicy(DefaultExitConfig())
	p := openPosition(t, 0.0001, 1.0)

	policy.UpdateRisk(p)
	sl, tp := p.StopLossPrice, p.TakeProfitPrice
	if !approxEqual(sl, 0.000075) || !approxEqual(tp, 0.00015) {
		t.Fatalf("unexpected stops sl=%v tp=%v", sl, tp)
	}

	p.UpdatePrice(0.0003, t0.Add(time.Second))
	policy.UpdateRisk(p)
	if p.StopLossPrice != sl || p.TakeProfitPrice != tp {
		t.Error("stop loss and take profit must not move once set")
	}
	if !approxEqual(p.TrailingStopPrice, 0.0003*0.85) {
		t.Errorf("trailing stop not recomputed from high: %v", p.TrailingStopPrice)
	}
}

func TestExitConfig_Validate(t *testing.T) {
	if err := DefaultExitConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := DefaultExitConfig()
	bad.ProfitLadder = []ProfitRung{{MinPnLPercent: 20}, {MinPnLPercent: 50}}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for ascending ladder")
	}
	bad = DefaultExitConfig()
	bad.MinHold = time.Hour
	if err := bad.Validate(); err == nil {
		t.Error("expected error for min hold > max hold")
	}
}
