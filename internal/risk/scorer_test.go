package risk

import (
	"strings"
	"testing"

	"pump-trader/internal/domain"
)

func scenarioActivity() domain.ActivitySnapshot {
	return domain.ActivitySnapshot{
		BuyCount:             46,
		SellCount:            4, // ratio 0.92
		UniqueBuyers:         30,
		VolumeSOL:            6.0,
		PriceChangePercent:   90,
		CurveProgressPercent: 10,
		WindowSeconds:        3,
	}
}

func scenarioInput() EntryInput {
	return EntryInput{
		Candidate: domain.TokenCandidate{
			Mint:         "Mint111",
			Creator:      "Creator111",
			Name:         "Moon Cat",
			Symbol:       "MCAT",
			BondingCurve: "Curve111",
			Signature:    "sig1",
		},
		Activity:      scenarioActivity(),
		OpenPositions: 0,
		AvailableSOL:  2.0,
	}
}

func TestScorer_ScenarioAccepted(t *testing.T) {
	s := NewScorer(MomentumPolicy())
	d := s.Evaluate(scenarioInput())

	if !d.Enter {
		t.Fatalf("expected entry, got reject: %s", d.Reason)
	}
	// volume 24 + momentum 24 + ratio 16 + buyers 12
	if d.Score != 76 {
		t.Errorf("expected score 76, got %d", d.Score)
	}
	if d.Reason != "score 76 >= 35" {
		t.Errorf("unexpected reason %q", d.Reason)
	}
}

func TestScorer_BelowThreshold(t *testing.T) {
	s := NewScorer(MomentumPolicy())
	in := scenarioInput()
	in.Activity = domain.ActivitySnapshot{
		BuyCount:             3,
		SellCount:            3,
		UniqueBuyers:         3,
		VolumeSOL:            0.6,
		PriceChangePercent:   5,
		CurveProgressPercent: 6,
	}

	d := s.Evaluate(in)
	if d.Enter {
		t.Fatal("expected reject")
	}
	if d.Score != 4 {
		t.Errorf("expected score 4, got %d", d.Score)
	}
	if d.Reason != "score 4 < 35" {
		t.Errorf("unexpected reason %q", d.Reason)
	}
}

func TestScorer_HardFilters(t *testing.T) {
	policy := MomentumPolicy()
	policy.BlacklistCreators = []string{"BadDev"}
	policy.BlacklistKeywords = []string{"Rug", " scam "}
	s := NewScorer(policy)

	tests := []struct {
		name   string
		mutate func(*EntryInput)
		reason string
	}{
		{"max concurrent", func(in *EntryInput) { in.OpenPositions = 3 }, "max concurrent"},
		{"reserve", func(in *EntryInput) { in.AvailableSOL = 0.1 }, "insufficient capital"},
		{"suspicious", func(in *EntryInput) { in.Candidate.Suspicious = true }, "suspicious"},
		{"creator", func(in *EntryInput) { in.Candidate.Creator = "BadDev" }, "blacklisted creator"},
		{"keyword in name", func(in *EntryInput) { in.Candidate.Name = "RUGPULL inu" }, "blacklisted keyword: rug"},
		{"keyword in symbol", func(in *EntryInput) { in.Candidate.Symbol = "SCAM" }, "blacklisted keyword: scam"},
		{"graduated", func(in *EntryInput) { in.Candidate.Graduated = true }, "graduated"},
		{"progress low", func(in *EntryInput) { in.Activity.CurveProgressPercent = 4.9 }, "curve progress"},
		{"progress high", func(in *EntryInput) { in.Activity.CurveProgressPercent = 20.1 }, "curve progress"},
		{"volume", func(in *EntryInput) { in.Activity.VolumeSOL = 0.4 }, "volume"},
		{"negative momentum", func(in *EntryInput) { in.Activity.PriceChangePercent = -1 }, "price change"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scenarioInput()
			tt.mutate(&in)
			d := s.Evaluate(in)
			if d.Enter {
				t.Fatal("expected reject")
			}
			if d.Score != 0 {
				t.Errorf("hard filter should not score, got %d", d.Score)
			}
			if !strings.Contains(d.Reason, tt.reason) {
				t.Errorf("reason %q does not contain %q", d.Reason, tt.reason)
			}
		})
	}
}

func TestScorer_ProgressBoundsInclusive(t *testing.T) {
	s := NewScorer(MomentumPolicy())
	for _, progress := range []float64{5, 20} {
		in := scenarioInput()
		in.Activity.CurveProgressPercent = progress
		if d := s.Evaluate(in); !d.Enter {
			t.Errorf("progress %v: expected entry, got %s", progress, d.Reason)
		}
	}
}

func TestScorer_ScoreBoundedAndDeterministic(t *testing.T) {
	s := NewScorer(MomentumPolicy())
	activities := []domain.ActivitySnapshot{
		{},
		{BuyCount: 1000, UniqueBuyers: 1000, VolumeSOL: 1e6, PriceChangePercent: 1e6},
		{BuyCount: 0, SellCount: 100, VolumeSOL: -5, PriceChangePercent: -90},
		scenarioActivity(),
	}
	for i, a := range activities {
		first := s.Score(a)
		if first < 0 || first > 100 {
			t.Errorf("activity %d: score %d out of range", i, first)
		}
		for run := 0; run < 5; run++ {
			if got := s.Score(a); got != first {
				t.Errorf("activity %d: score not deterministic (%d vs %d)", i, got, first)
			}
		}
	}
}

func TestScorer_ClampsOversizedLadders(t *testing.T) {
	policy := MomentumPolicy()
	policy.VolumeLadder = []Rung{{0, 90}}
	policy.MomentumLadder = []Rung{{0, 90}}
	s := NewScorer(policy)
	if got := s.Score(scenarioActivity()); got != 100 {
		t.Errorf("expected clamp to 100, got %d", got)
	}
}

func TestScorer_Prefilter(t *testing.T) {
	policy := MomentumPolicy()
	policy.BlacklistKeywords = []string{"test"}
	s := NewScorer(policy)

	ok, _ := s.Prefilter(domain.TokenCandidate{Name: "Good", Symbol: "GOOD"})
	if !ok {
		t.Error("expected clean candidate to pass")
	}
	ok, reason := s.Prefilter(domain.TokenCandidate{Name: "Testing", Symbol: "TST"})
	if ok || reason != "blacklisted keyword: test" {
		t.Errorf("expected keyword reject, got ok=%v reason=%q", ok, reason)
	}
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{"", "momentum", "STRICT", "relaxed"} {
		p, err := PolicyByName(name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("%q: preset invalid: %v", name, err)
		}
	}
	if _, err := PolicyByName("yolo"); err == nil {
		t.Error("expected error for unknown preset")
	}

	strict, _ := PolicyByName(PresetStrict)
	d := NewScorer(strict).Evaluate(scenarioInput())
	if !d.Enter {
		t.Errorf("strict policy should accept scenario: %s", d.Reason)
	}
}
