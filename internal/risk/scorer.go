package risk

import (
	"fmt"
	"strings"

	"pump-trader/internal/domain"
)

// Rung is one step of a descending threshold ladder.
type Rung struct {
	Threshold float64
	Points    int
}

// ladderPoints returns the points of the first rung whose threshold value meets.
// Rungs must be ordered by descending threshold.
func ladderPoints(ladder []Rung, value float64) int {
	for _, r := range ladder {
		if value >= r.Threshold {
			return r.Points
		}
	}
	return 0
}

// ScoringPolicy holds entry filters and score ladders.
type ScoringPolicy struct {
	Name string

	MinCurveProgress      float64 // percent
	MaxCurveProgress      float64 // percent
	MinVolumeSOL          float64
	MinPriceChangePercent float64
	MinScore              int

	MaxConcurrent     int
	MinReserveSOL     float64
	BlacklistCreators []string
	BlacklistKeywords []string

	VolumeLadder       []Rung
	MomentumLadder     []Rung
	BuyRatioLadder     []Rung
	UniqueBuyersLadder []Rung
}

// Preset names.
const (
	PresetMomentum = "momentum"
	PresetStrict   = "strict"
	PresetRelaxed  = "relaxed"
)

// MomentumPolicy is the default policy.
func MomentumPolicy() ScoringPolicy {
	return ScoringPolicy{
		Name:                  PresetMomentum,
		MinCurveProgress:      5,
		MaxCurveProgress:      20,
		MinVolumeSOL:          0.5,
		MinPriceChangePercent: 0,
		MinScore:              35,
		MaxConcurrent:         3,
		MinReserveSOL:         0.1,
		VolumeLadder: []Rung{
			{10, 30}, {5, 24}, {3, 18}, {1.5, 10}, {0.5, 4},
		},
		MomentumLadder: []Rung{
			{150, 35}, {100, 30}, {60, 24}, {30, 16}, {10, 8},
		},
		BuyRatioLadder: []Rung{
			{0.95, 20}, {0.85, 16}, {0.75, 12}, {0.60, 6},
		},
		UniqueBuyersLadder: []Rung{
			{50, 15}, {30, 12}, {20, 9}, {10, 5}, {5, 2},
		},
	}
}

// StrictPolicy requires positive momentum and a higher score.
func StrictPolicy() ScoringPolicy {
	p := MomentumPolicy()
	p.Name = PresetStrict
	p.MinCurveProgress = 8
	p.MaxCurveProgress = 15
	p.MinVolumeSOL = 1.0
	p.MinPriceChangePercent = 20
	p.MinScore = 55
	return p
}

// RelaxedPolicy widens the curve window and lowers the entry score.
func RelaxedPolicy() ScoringPolicy {
	p := MomentumPolicy()
	p.Name = PresetRelaxed
	p.MinCurveProgress = 2
	p.MaxCurveProgress = 35
	p.MinVolumeSOL = 0.2
	p.MinScore = 25
	return p
}

// PolicyByName returns a named preset.
func PolicyByName(name string) (ScoringPolicy, error) {
	switch strings.ToLower(name) {
	case "", PresetMomentum:
		return MomentumPolicy(), nil
	case PresetStrict:
		return StrictPolicy(), nil
	case PresetRelaxed:
		return RelaxedPolicy(), nil
	default:
		return ScoringPolicy{}, fmt.Errorf("unknown scoring preset: %s", name)
	}
}

// Validate checks policy bounds.
func (p ScoringPolicy) Validate() error {
	if p.MinCurveProgress < 0 || p.MaxCurveProgress > 100 || p.MinCurveProgress > p.MaxCurveProgress {
		return fmt.Errorf("curve progress range [%v, %v] invalid", p.MinCurveProgress, p.MaxCurveProgress)
	}
	if p.MinScore < 0 || p.MinScore > 100 {
		return fmt.Errorf("min score %d outside [0, 100]", p.MinScore)
	}
	if p.MinVolumeSOL < 0 {
		return fmt.Errorf("min volume %v is negative", p.MinVolumeSOL)
	}
	if p.MaxConcurrent <= 0 {
		return fmt.Errorf("max concurrent trades must be positive")
	}
	if p.MinReserveSOL < 0 {
		return fmt.Errorf("min reserve %v is negative", p.MinReserveSOL)
	}
	return nil
}

// EntryInput is everything the scorer looks at for one candidate.
type EntryInput struct {
	Candidate     domain.TokenCandidate
	Activity      domain.ActivitySnapshot
	OpenPositions int
	AvailableSOL  float64
}

// EntryDecision is the scorer verdict.
type EntryDecision struct {
	Enter  bool
	Reason string
	Score  int
}

// Scorer evaluates candidates against a ScoringPolicy. It holds no mutable state.
type Scorer struct {
	policy            ScoringPolicy
	blacklistCreators map[string]struct{}
	blacklistKeywords []string
}

// NewScorer creates a Scorer for the given policy.
func NewScorer(policy ScoringPolicy) *Scorer {
	creators := make(map[string]struct{}, len(policy.BlacklistCreators))
	for _, c := range policy.BlacklistCreators {
		creators[c] = struct{}{}
	}
	keywords := make([]string, 0, len(policy.BlacklistKeywords))
	for _, k := range policy.BlacklistKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	return &Scorer{policy: policy, blacklistCreators: creators, blacklistKeywords: keywords}
}

// Policy returns the scorer's policy.
func (s *Scorer) Policy() ScoringPolicy {
	return s.policy
}

// Prefilter applies the candidate-only filters so a candidate can be dropped before sampling.
// Returns ok=false and the reason when the candidate is rejected.
func (s *Scorer) Prefilter(c domain.TokenCandidate) (bool, string) {
	if c.Suspicious {
		return false, "suspicious token"
	}
	if _, ok := s.blacklistCreators[c.Creator]; ok && c.Creator != "" {
		return false, "blacklisted creator"
	}
	text := strings.ToLower(c.Name + " " + c.Symbol)
	for _, k := range s.blacklistKeywords {
		if strings.Contains(text, k) {
			return false, fmt.Sprintf("blacklisted keyword: %s", k)
		}
	}
	if c.Graduated {
		return false, "already graduated"
	}
	return true, ""
}

// Evaluate runs the hard filters then the score ladders.
func (s *Scorer) Evaluate(in EntryInput) EntryDecision {
	p := s.policy
	if in.OpenPositions >= p.MaxConcurrent {
		return EntryDecision{Reason: fmt.Sprintf("max concurrent trades reached (%d)", p.MaxConcurrent)}
	}
	if in.AvailableSOL <= p.MinReserveSOL {
		return EntryDecision{Reason: fmt.Sprintf("insufficient capital (%.4f SOL)", in.AvailableSOL)}
	}
	if ok, reason := s.Prefilter(in.Candidate); !ok {
		return EntryDecision{Reason: reason}
	}

	a := in.Activity
	if a.CurveProgressPercent < p.MinCurveProgress || a.CurveProgressPercent > p.MaxCurveProgress {
		return EntryDecision{Reason: fmt.Sprintf("curve progress %.1f%% outside [%.0f, %.0f]",
			a.CurveProgressPercent, p.MinCurveProgress, p.MaxCurveProgress)}
	}
	if a.VolumeSOL < p.MinVolumeSOL {
		return EntryDecision{Reason: fmt.Sprintf("volume %.2f SOL below %.2f", a.VolumeSOL, p.MinVolumeSOL)}
	}
	if a.PriceChangePercent < p.MinPriceChangePercent {
		return EntryDecision{Reason: fmt.Sprintf("price change %.1f%% below %.1f%%", a.PriceChangePercent, p.MinPriceChangePercent)}
	}

	score := s.Score(a)
	if score < p.MinScore {
		return EntryDecision{Reason: fmt.Sprintf("score %d < %d", score, p.MinScore), Score: score}
	}
	return EntryDecision{Enter: true, Reason: fmt.Sprintf("score %d >= %d", score, p.MinScore), Score: score}
}

// Score sums the four ladders, clamped to [0, 100].
func (s *Scorer) Score(a domain.ActivitySnapshot) int {
	score := ladderPoints(s.policy.VolumeLadder, a.VolumeSOL) +
		ladderPoints(s.policy.MomentumLadder, a.PriceChangePercent) +
		ladderPoints(s.policy.BuyRatioLadder, a.BuySellRatio()) +
		ladderPoints(s.policy.UniqueBuyersLadder, float64(a.UniqueBuyers))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
