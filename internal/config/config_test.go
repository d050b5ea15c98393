package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-trader/internal/risk"
	"pump-trader/internal/solana"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ModeDryRun, cfg.Mode)
	assert.Equal(t, FeedSim, cfg.Solana.Feed)
	assert.Equal(t, 2.0, cfg.Strategy.InitialCapitalSOL)
	assert.Equal(t, 3*time.Second, cfg.Strategy.EvaluationWindow)
}

func TestDefault_MatchesRiskDefaults(t *testing.T) {
	cfg := Default()

	exit, err := cfg.BuildExitConfig()
	require.NoError(t, err)
	assert.Equal(t, risk.DefaultExitConfig(), exit)

	policy, err := cfg.BuildScoringPolicy()
	require.NoError(t, err)
	assert.Equal(t, risk.MomentumPolicy().MinScore, policy.MinScore)
	assert.Equal(t, cfg.Strategy.MaxConcurrentTrades, policy.MaxConcurrent)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, envMap(map[string]string{
		"TRADING_MODE":             "LIVE",
		"POSITION_SIZE_PERCENT":    "15",
		"MAX_CONCURRENT_TRADES":    "5",
		"EVALUATION_WINDOW":        "4",
		"MAX_HOLD":                 "2m",
		"SCORING_PRESET":           "strict",
		"MIN_ENTRY_SCORE":          "40",
		"MIN_PRICE_CHANGE_PERCENT": "-5",
		"BLACKLIST_KEYWORDS":       "rug, scam ,,",
		"TRADE_SINKS":              "csv,kafka",
		"KAFKA_BROKERS":            "k1:9092,k2:9092",
		"LOG_LEVEL":                "",
	}))
	require.NoError(t, err)

	assert.Equal(t, ModeLive, cfg.Mode)
	assert.Equal(t, 15.0, cfg.Strategy.PositionSizePercent)
	assert.Equal(t, 5, cfg.Strategy.MaxConcurrentTrades)
	assert.Equal(t, 4*time.Second, cfg.Strategy.EvaluationWindow)
	assert.Equal(t, 2*time.Minute, cfg.Exit.MaxHold)
	assert.Equal(t, []string{"rug", "scam"}, cfg.Scoring.BlacklistKeywords)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "info", cfg.Log.Level, "empty variable keeps default")

	policy, err := cfg.BuildScoringPolicy()
	require.NoError(t, err)
	assert.Equal(t, risk.PresetStrict, policy.Name)
	assert.Equal(t, 40, policy.MinScore, "override beats preset")
	assert.Equal(t, -5.0, policy.MinPriceChangePercent)
	assert.Equal(t, risk.StrictPolicy().MinVolumeSOL, policy.MinVolumeSOL, "preset kept where not overridden")
	assert.Equal(t, 5, policy.MaxConcurrent)
}

func TestApplyEnv_ParseErrors(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, envMap(map[string]string{
		"POSITION_SIZE_PERCENT": "ten",
		"MAX_HOLD":              "forever",
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "POSITION_SIZE_PERCENT")
	assert.Contains(t, err.Error(), "MAX_HOLD")
	assert.Equal(t, 10.0, cfg.Strategy.PositionSizePercent)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Mode = "paper" }, "mode"},
		{"position size zero", func(c *Config) { c.Strategy.PositionSizePercent = 0 }, "position size"},
		{"position size over 100", func(c *Config) { c.Strategy.PositionSizePercent = 120 }, "position size"},
		{"min above max progress", func(c *Config) {
			lo, hi := 30.0, 10.0
			c.Scoring.MinCurveProgress, c.Scoring.MaxCurveProgress = &lo, &hi
		}, "curve progress"},
		{"unknown preset", func(c *Config) { c.Scoring.Preset = "yolo" }, "unknown scoring preset"},
		{"bad ladder", func(c *Config) { c.Exit.ProfitLadder = "100" }, "profit ladder"},
		{"min hold above max", func(c *Config) { c.Exit.MinHold = time.Hour }, "hold range"},
		{"unknown feed", func(c *Config) { c.Solana.Feed = "carrier-pigeon" }, "launch feed"},
		{"bad timezone", func(c *Config) { c.Strategy.Timezone = "Mars/Olympus" }, "timezone"},
		{"redis without addr", func(c *Config) { c.Storage.SnapshotBackend = BackendRedis }, "redis"},
		{"kafka without brokers", func(c *Config) { c.Storage.TradeSinks = []string{BackendKafka} }, "kafka"},
		{"unknown sink", func(c *Config) { c.Storage.TradeSinks = []string{"s3"} }, "trade sink"},
		{"live without wallet", func(c *Config) {
			c.Mode = ModeLive
			c.Solana.Feed = FeedWS
			c.Execution.PortalAPIKey = "key"
		}, "wallet public key"},
		{"live with bad wallet", func(c *Config) {
			c.Mode = ModeLive
			c.Solana.Feed = FeedWS
			c.Solana.WalletPublicKey = "not-base58-0OIl"
			c.Execution.PortalAPIKey = "key"
		}, "wallet"},
		{"live on sim feed", func(c *Config) {
			c.Mode = ModeLive
			c.Solana.WalletPublicKey = solana.PumpProgramID
			c.Execution.PortalAPIKey = "key"
		}, "simulated feed"},
		{"live without api key", func(c *Config) {
			c.Mode = ModeLive
			c.Solana.Feed = FeedPoll
			c.Solana.WalletPublicKey = solana.PumpProgramID
		}, "API key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_LiveOK(t *testing.T) {
	cfg := Default()
	cfg.Mode = ModeLive
	cfg.Solana.Feed = FeedWS
	cfg.Solana.WalletPublicKey = solana.PumpProgramID
	cfg.Execution.PortalAPIKey = "key"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsLive())
}

func TestParseProfitLadder(t *testing.T) {
	rungs, err := ParseProfitLadder("30@30s, 100@0, 50%@10s")
	require.NoError(t, err)
	assert.Equal(t, []risk.ProfitRung{
		{MinPnLPercent: 100, MinHold: 0},
		{MinPnLPercent: 50, MinHold: 10 * time.Second},
		{MinPnLPercent: 30, MinHold: 30 * time.Second},
	}, rungs)

	empty, err := ParseProfitLadder("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, bad := range []string{"abc@1s", "10@later", "-5@1s", "10"} {
		_, err := ParseProfitLadder(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatProfitLadder_ParsesBack(t *testing.T) {
	ladder := risk.DefaultProfitLadder()
	got, err := ParseProfitLadder(FormatProfitLadder(ladder))
	require.NoError(t, err)
	assert.Equal(t, ladder, got)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: dry_run
strategy:
  position_size_percent: 5
  evaluation_window: 2s
scoring:
  preset: relaxed
  min_score: 30
exit:
  profit_ladder: "80@0s,40@20s"
storage:
  trade_sinks: [csv, memory]
`), 0o644))

	cfg := Default()
	require.NoError(t, LoadFile(path, &cfg))

	assert.Equal(t, 5.0, cfg.Strategy.PositionSizePercent)
	assert.Equal(t, 2*time.Second, cfg.Strategy.EvaluationWindow)
	assert.Equal(t, 2.0, cfg.Strategy.InitialCapitalSOL, "absent keys keep defaults")
	require.NotNil(t, cfg.Scoring.MinScore)
	assert.Equal(t, 30, *cfg.Scoring.MinScore)
	assert.Equal(t, []string{"csv", "memory"}, cfg.Storage.TradeSinks)
	assert.True(t, cfg.HasTradeSink("CSV"))
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := Default()
	err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
	assert.True(t, errors.Is(err, ErrConfiguration))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy: [unclosed"), 0o644))
	err = LoadFile(path, &cfg)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestBuildGateConfig(t *testing.T) {
	cfg := Default()
	cfg.Strategy.Timezone = "America/New_York"
	g, err := cfg.BuildGateConfig()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", g.Location.String())
	assert.Equal(t, 20.0, g.DailyLossLimitPercent)
}
