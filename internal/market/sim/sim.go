// Package sim provides a seeded, deterministic market for dry runs and tests.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mr-tron/base58"

	"pump-trader/internal/domain"
)

// Quality is the hidden class of a simulated launch.
type Quality string

const (
	QualityDud      Quality = "dud"
	QualityModerate Quality = "moderate"
	QualityMoon     Quality = "moon"
)

// Config controls the simulated market.
type Config struct {
	Seed          int64
	LaunchEvery   time.Duration // interval between launches
	MaxLaunches   int           // 0 = unlimited
	NoSampleDelay bool          // return samples immediately instead of waiting the window
}

var (
	names    = []string{"Doge", "Pepe", "Shiba", "Moon", "Rocket", "Diamond", "Ape", "Cat", "Frog", "Wolf", "Whale", "Panda"}
	suffixes = []string{"Coin", "Inu", "Floki", "Mars", "Baby", "Mini", "Max", "Giga", "Alpha", "Omega"}
)

type token struct {
	quality Quality
	price   float64
}

// Market implements LaunchFeed, ActivitySampler and PriceOracle over one seeded source.
// Safe for concurrent use.
type Market struct {
	cfg Config

	mu     sync.Mutex
	rand   *rand.Rand
	tokens map[string]*token
	seq    int
}

// New creates a simulated market.
func New(cfg Config) *Market {
	if cfg.LaunchEvery <= 0 {
		cfg.LaunchEvery = 5 * time.Second
	}
	return &Market{
		cfg:    cfg,
		rand:   rand.New(rand.NewSource(cfg.Seed)),
		tokens: make(map[string]*token),
	}
}

// Candidates emits launches every LaunchEvery until ctx is done or MaxLaunches is reached.
func (m *Market) Candidates(ctx context.Context) (<-chan domain.TokenCandidate, error) {
	out := make(chan domain.TokenCandidate)
	go func() {
		defer close(out)
		ticker := time.NewTicker(m.cfg.LaunchEvery)
		defer ticker.Stop()

		for emitted := 0; m.cfg.MaxLaunches == 0 || emitted < m.cfg.MaxLaunches; emitted++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			c := m.Launch(time.Now())
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Launch creates the next simulated token.
// Half are duds, 30% moderate pumpers, 20% moon shots.
func (m *Market) Launch(at time.Time) domain.TokenCandidate {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	quality := QualityMoon
	switch roll := m.rand.Float64(); {
	case roll < 0.50:
		quality = QualityDud
	case roll < 0.80:
		quality = QualityModerate
	}

	name := names[m.rand.Intn(len(names))] + suffixes[m.rand.Intn(len(suffixes))]
	price := m.uniform(0.000001, 0.00001)

	mint := m.address()
	m.tokens[mint] = &token{quality: quality, price: price}

	return domain.TokenCandidate{
		Mint:                   mint,
		Creator:                m.address(),
		Name:                   name,
		Symbol:                 fmt.Sprintf("%.3s%d", name, m.seq),
		BondingCurve:           m.address(),
		AssociatedBondingCurve: m.address(),
		Signature:              m.signature(),
		Slot:                   int64(300_000_000 + m.seq),
		Source:                 domain.SourceSimulated,
		CreatedAt:              at,
		InitialPrice:           price,
	}
}

// Sample returns activity shaped by the token's hidden quality.
func (m *Market) Sample(ctx context.Context, c domain.TokenCandidate, window time.Duration) (domain.ActivitySnapshot, error) {
	if !m.cfg.NoSampleDelay && window > 0 {
		timer := time.NewTimer(window)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.ActivitySnapshot{}, ctx.Err()
		case <-timer.C:
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[c.Mint]
	if !ok {
		return domain.ActivitySnapshot{}, fmt.Errorf("sim: unknown mint %s", c.Mint)
	}

	var a domain.ActivitySnapshot
	switch t.quality {
	case QualityMoon:
		a = domain.ActivitySnapshot{
			BuyCount:             m.intn(40, 90),
			SellCount:            m.intn(0, 2),
			UniqueBuyers:         m.intn(35, 70),
			VolumeSOL:            m.uniform(5, 15),
			PriceChangePercent:   m.uniform(80, 200),
			CurveProgressPercent: m.uniform(12, 30),
		}
	case QualityModerate:
		a = domain.ActivitySnapshot{
			BuyCount:             m.intn(25, 50),
			SellCount:            m.intn(1, 5),
			UniqueBuyers:         m.intn(18, 40),
			VolumeSOL:            m.uniform(2.5, 8),
			PriceChangePercent:   m.uniform(30, 90),
			CurveProgressPercent: m.uniform(8, 18),
		}
	default:
		a = domain.ActivitySnapshot{
			BuyCount:             m.intn(5, 20),
			SellCount:            m.intn(2, 10),
			UniqueBuyers:         m.intn(3, 15),
			VolumeSOL:            m.uniform(0.3, 2),
			PriceChangePercent:   m.uniform(-10, 35),
			CurveProgressPercent: m.uniform(2, 8),
		}
	}
	// price has moved during the window
	t.price *= 1 + a.PriceChangePercent/100
	a.WindowSeconds = window.Seconds()
	a.CapturedAt = time.Now()
	return a, nil
}

// CurrentPrice advances the token's random walk by one step and returns the new price.
func (m *Market) CurrentPrice(_ context.Context, c domain.TokenCandidate) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[c.Mint]
	if !ok {
		return 0, fmt.Errorf("sim: unknown mint %s", c.Mint)
	}
	var step float64
	switch t.quality {
	case QualityMoon:
		step = m.uniform(-0.05, 0.15)
	case QualityModerate:
		step = m.uniform(-0.07, 0.09)
	default:
		step = m.uniform(-0.12, 0.05)
	}
	t.price *= 1 + step
	return t.price, nil
}

// SetPrice pins a token's price.
func (m *Market) SetPrice(mint string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[mint]; ok {
		t.price = price
	}
}

// Price returns the token's last price without advancing the walk.
func (m *Market) Price(mint string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[mint]
	if !ok {
		return 0, false
	}
	return t.price, true
}

// QualityOf exposes a token's hidden class.
func (m *Market) QualityOf(mint string) Quality {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[mint]; ok {
		return t.quality
	}
	return ""
}

func (m *Market) uniform(lo, hi float64) float64 {
	return lo + m.rand.Float64()*(hi-lo)
}

// intn returns an int in [lo, hi].
func (m *Market) intn(lo, hi int) int {
	return lo + m.rand.Intn(hi-lo+1)
}

func (m *Market) address() string {
	b := make([]byte, 32)
	m.rand.Read(b)
	return base58.Encode(b)
}

func (m *Market) signature() string {
	b := make([]byte, 64)
	m.rand.Read(b)
	return base58.Encode(b)
}
