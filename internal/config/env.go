package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"pump-trader/internal/risk"
)

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables onto cfg. Unset or empty variables keep the current value.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	r := envReader{lookup: lookup}

	if v, ok := r.get("TRADING_MODE"); ok {
		cfg.Mode = Mode(strings.ToLower(v))
	}

	st := &cfg.Strategy
	r.float("INITIAL_CAPITAL_SOL", &st.InitialCapitalSOL)
	r.float("POSITION_SIZE_PERCENT", &st.PositionSizePercent)
	r.int("MAX_CONCURRENT_TRADES", &st.MaxConcurrentTrades)
	r.float("MIN_RESERVE_SOL", &st.MinReserveSOL)
	r.float("TRADING_FEE_PERCENT", &st.TradingFeePercent)
	r.float("DAILY_LOSS_LIMIT_PERCENT", &st.DailyLossLimitPercent)
	r.duration("EVALUATION_WINDOW", &st.EvaluationWindow)
	r.duration("MONITOR_INTERVAL", &st.MonitorInterval)
	r.str("TIMEZONE", &st.Timezone)

	sc := &cfg.Scoring
	r.str("SCORING_PRESET", &sc.Preset)
	r.optInt("MIN_ENTRY_SCORE", &sc.MinScore)
	r.optFloat("MIN_CURVE_PROGRESS", &sc.MinCurveProgress)
	r.optFloat("MAX_CURVE_PROGRESS", &sc.MaxCurveProgress)
	r.optFloat("MIN_VOLUME_SOL", &sc.MinVolumeSOL)
	r.optFloat("MIN_PRICE_CHANGE_PERCENT", &sc.MinPriceChangePercent)
	r.list("BLACKLIST_CREATORS", &sc.BlacklistCreators)
	r.list("BLACKLIST_KEYWORDS", &sc.BlacklistKeywords)

	ex := &cfg.Exit
	r.float("STOP_LOSS_PERCENT", &ex.StopLossPercent)
	r.float("TAKE_PROFIT_PERCENT", &ex.TakeProfitPercent)
	r.float("TRAILING_STOP_PERCENT", &ex.TrailingStopPercent)
	r.duration("MIN_HOLD", &ex.MinHold)
	r.duration("MAX_HOLD", &ex.MaxHold)
	r.float("MAX_LOSS_PER_TRADE_SOL", &ex.MaxLossPerTradeSOL)
	r.str("PROFIT_LADDER", &ex.ProfitLadder)

	so := &cfg.Solana
	r.str("SOLANA_RPC_ENDPOINT", &so.RPCEndpoint)
	r.str("SOLANA_WS_ENDPOINT", &so.WSEndpoint)
	r.str("LAUNCH_FEED", &so.Feed)
	r.duration("POLL_INTERVAL", &so.PollInterval)
	r.int("SAMPLE_MAX_TXS", &so.SampleMaxTxs)
	r.str("WALLET_PUBLIC_KEY", &so.WalletPublicKey)
	r.int64("SIM_SEED", &so.SimSeed)
	r.duration("SIM_LAUNCH_EVERY", &so.SimLaunchEvery)

	exe := &cfg.Execution
	r.str("PUMPPORTAL_ENDPOINT", &exe.PortalEndpoint)
	r.str("PUMPPORTAL_API_KEY", &exe.PortalAPIKey)
	r.float("SLIPPAGE_PERCENT", &exe.SlippagePercent)
	r.float("PRIORITY_FEE_SOL", &exe.PriorityFeeSOL)

	s := &cfg.Storage
	r.str("SNAPSHOT_BACKEND", &s.SnapshotBackend)
	r.str("SNAPSHOT_PATH", &s.SnapshotPath)
	r.list("TRADE_SINKS", &s.TradeSinks)
	r.str("TRADE_LOG_PATH", &s.TradeLogPath)
	r.str("POSTGRES_DSN", &s.PostgresDSN)
	r.str("CLICKHOUSE_DSN", &s.ClickhouseDSN)
	r.str("REDIS_ADDR", &s.RedisAddr)
	r.str("REDIS_PASSWORD", &s.RedisPassword)
	r.int("REDIS_DB", &s.RedisDB)
	r.str("STORAGE_KEY_PREFIX", &s.KeyPrefix)

	r.list("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	r.str("KAFKA_TOPIC", &cfg.Kafka.Topic)

	r.str("HTTP_ADDR", &cfg.Server.HTTPAddr)
	r.str("LOG_LEVEL", &cfg.Log.Level)
	r.str("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(r.errs...)
}

// envReader parses typed variables and collects parse errors.
type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (r *envReader) get(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *envReader) fail(key, v string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: %v", ErrConfiguration, key, v, err))
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *envReader) float(key string, dst *float64) {
	if v, ok := r.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (r *envReader) optFloat(key string, dst **float64) {
	if v, ok := r.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = &f
	}
}

func (r *envReader) int(key string, dst *int) {
	if v, ok := r.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) optInt(key string, dst **int) {
	if v, ok := r.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = &n
	}
}

func (r *envReader) int64(key string, dst *int64) {
	if v, ok := r.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = n
	}
}

// duration accepts Go durations ("90s") or plain seconds ("90").
func (r *envReader) duration(key string, dst *time.Duration) {
	if v, ok := r.get(key); ok {
		d, err := parseDuration(v)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = d
	}
}

func (r *envReader) list(key string, dst *[]string) {
	if v, ok := r.get(key); ok {
		*dst = splitList(v)
	}
}

func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseProfitLadder parses "pnl@hold" pairs such as "100@0s,50@10s,30@30s".
// The result is ordered by descending pnl threshold. An empty string yields no ladder.
func ParseProfitLadder(s string) ([]risk.ProfitRung, error) {
	var rungs []risk.ProfitRung
	for _, part := range splitList(s) {
		pnl, hold, ok := strings.Cut(part, "@")
		if !ok {
			return nil, fmt.Errorf("%w: profit ladder rung %q: want pnl@hold", ErrConfiguration, part)
		}
		p, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(pnl), "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: profit ladder rung %q: %v", ErrConfiguration, part, err)
		}
		d, err := parseDuration(strings.TrimSpace(hold))
		if err != nil {
			return nil, fmt.Errorf("%w: profit ladder rung %q: %v", ErrConfiguration, part, err)
		}
		if p <= 0 || d < 0 {
			return nil, fmt.Errorf("%w: profit ladder rung %q out of range", ErrConfiguration, part)
		}
		rungs = append(rungs, risk.ProfitRung{MinPnLPercent: p, MinHold: d})
	}
	sort.SliceStable(rungs, func(i, j int) bool {
		return rungs[i].MinPnLPercent > rungs[j].MinPnLPercent
	})
	return rungs, nil
}

// FormatProfitLadder is the inverse of ParseProfitLadder.
func FormatProfitLadder(rungs []risk.ProfitRung) string {
	parts := make([]string, len(rungs))
	for i, r := range rungs {
		parts[i] = strconv.FormatFloat(r.MinPnLPercent, 'f', -1, 64) + "@" + r.MinHold.String()
	}
	return strings.Join(parts, ",")
}
