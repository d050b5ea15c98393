package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-trader/internal/domain"
)

func TestMarket_Deterministic(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := New(Config{Seed: 42, NoSampleDelay: true})
	b := New(Config{Seed: 42, NoSampleDelay: true})

	for i := 0; i < 10; i++ {
		ca, cb := a.Launch(at), b.Launch(at)
		require.Equal(t, ca, cb)
		require.NoError(t, ca.Validate())

		sa, err := a.Sample(context.Background(), ca, time.Second)
		require.NoError(t, err)
		sb, err := b.Sample(context.Background(), cb, time.Second)
		require.NoError(t, err)
		sa.CapturedAt, sb.CapturedAt = time.Time{}, time.Time{}
		assert.Equal(t, sa, sb)

		pa, _ := a.CurrentPrice(context.Background(), ca)
		pb, _ := b.CurrentPrice(context.Background(), cb)
		assert.Equal(t, pa, pb)
	}
}

func TestMarket_QualityShapesActivity(t *testing.T) {
	m := New(Config{Seed: 7, NoSampleDelay: true})
	seen := map[Quality]int{}
	for i := 0; i < 200; i++ {
		c := m.Launch(time.Now())
		q := m.QualityOf(c.Mint)
		seen[q]++

		a, err := m.Sample(context.Background(), c, 3*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 3.0, a.WindowSeconds)
		switch q {
		case QualityMoon:
			assert.GreaterOrEqual(t, a.VolumeSOL, 5.0)
			assert.LessOrEqual(t, a.SellCount, 2)
		case QualityDud:
			assert.Less(t, a.VolumeSOL, 2.0)
		}
	}
	assert.Len(t, seen, 3, "all quality classes should appear")
	assert.Greater(t, seen[QualityDud], seen[QualityMoon])
}

func TestMarket_UnknownMint(t *testing.T) {
	m := New(Config{Seed: 1, NoSampleDelay: true})
	_, err := m.CurrentPrice(context.Background(), domain.TokenCandidate{Mint: "nope"})
	assert.Error(t, err)
	_, err = m.Sample(context.Background(), domain.TokenCandidate{Mint: "nope"}, 0)
	assert.Error(t, err)
}

func TestMarket_FeedStopsAtMax(t *testing.T) {
	m := New(Config{Seed: 1, LaunchEvery: time.Millisecond, MaxLaunches: 3})
	ch, err := m.Candidates(context.Background())
	require.NoError(t, err)

	var got []domain.TokenCandidate
	for c := range ch {
		got = append(got, c)
	}
	assert.Len(t, got, 3)
	assert.Equal(t, domain.SourceSimulated, got[0].Source)
}

func TestMarket_SampleHonoursContext(t *testing.T) {
	m := New(Config{Seed: 1})
	c := m.Launch(time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Sample(ctx, c, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
