// Package config loads the bot configuration from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pump-trader/internal/risk"
	"pump-trader/internal/solana"
)

// ErrConfiguration marks every error caused by invalid settings.
var ErrConfiguration = errors.New("configuration error")

// Mode selects paper or real order execution.
type Mode string

const (
	ModeDryRun Mode = "dry_run"
	ModeLive   Mode = "live"
)

// Launch feed kinds.
const (
	FeedSim  = "sim"
	FeedWS   = "ws"
	FeedPoll = "poll"
)

// Storage backend names.
const (
	BackendMemory     = "memory"
	BackendFile       = "file"
	BackendRedis      = "redis"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
	BackendKafka      = "kafka"
	BackendCSV        = "csv"
)

// Config is the full bot configuration.
type Config struct {
	Mode      Mode            `yaml:"mode"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Exit      ExitConfig      `yaml:"exit"`
	Solana    SolanaConfig    `yaml:"solana"`
	Execution ExecutionConfig `yaml:"execution"`
	Storage   StorageConfig   `yaml:"storage"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// StrategyConfig holds sizing, capital and timing settings.
type StrategyConfig struct {
	InitialCapitalSOL     float64       `yaml:"initial_capital_sol"`
	PositionSizePercent   float64       `yaml:"position_size_percent"`
	MaxConcurrentTrades   int           `yaml:"max_concurrent_trades"`
	MinReserveSOL         float64       `yaml:"min_reserve_sol"`
	TradingFeePercent     float64       `yaml:"trading_fee_percent"`
	DailyLossLimitPercent float64       `yaml:"daily_loss_limit_percent"`
	EvaluationWindow      time.Duration `yaml:"evaluation_window"`
	MonitorInterval       time.Duration `yaml:"monitor_interval"`
	Timezone              string        `yaml:"timezone"` // daily loss reset boundary
}

// ScoringConfig selects a scoring preset. Non-nil fields override the preset.
type ScoringConfig struct {
	Preset                string   `yaml:"preset"`
	MinScore              *int     `yaml:"min_score"`
	MinCurveProgress      *float64 `yaml:"min_curve_progress"`
	MaxCurveProgress      *float64 `yaml:"max_curve_progress"`
	MinVolumeSOL          *float64 `yaml:"min_volume_sol"`
	MinPriceChangePercent *float64 `yaml:"min_price_change_percent"`
	BlacklistCreators     []string `yaml:"blacklist_creators"`
	BlacklistKeywords     []string `yaml:"blacklist_keywords"`
}

// ExitConfig holds exit thresholds in percent units.
type ExitConfig struct {
	StopLossPercent     float64       `yaml:"stop_loss_percent"`
	TakeProfitPercent   float64       `yaml:"take_profit_percent"`
	TrailingStopPercent float64       `yaml:"trailing_stop_percent"`
	MinHold             time.Duration `yaml:"min_hold"`
	MaxHold             time.Duration `yaml:"max_hold"`
	MaxLossPerTradeSOL  float64       `yaml:"max_loss_per_trade_sol"`
	ProfitLadder        string        `yaml:"profit_ladder"` // "100@0s,50@10s"
}

// SolanaConfig holds chain endpoints and the launch feed selection.
type SolanaConfig struct {
	RPCEndpoint     string        `yaml:"rpc_endpoint"`
	WSEndpoint      string        `yaml:"ws_endpoint"`
	Feed            string        `yaml:"feed"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	SampleMaxTxs    int           `yaml:"sample_max_txs"`
	WalletPublicKey string        `yaml:"wallet_public_key"`
	SimSeed         int64         `yaml:"sim_seed"`
	SimLaunchEvery  time.Duration `yaml:"sim_launch_every"`
}

// ExecutionConfig holds the live trade API settings.
type ExecutionConfig struct {
	PortalEndpoint  string  `yaml:"portal_endpoint"`
	PortalAPIKey    string  `yaml:"-"`
	SlippagePercent float64 `yaml:"slippage_percent"`
	PriorityFeeSOL  float64 `yaml:"priority_fee_sol"`
}

// StorageConfig selects persistence backends.
type StorageConfig struct {
	SnapshotBackend string   `yaml:"snapshot_backend"`
	SnapshotPath    string   `yaml:"snapshot_path"`
	TradeSinks      []string `yaml:"trade_sinks"`
	TradeLogPath    string   `yaml:"trade_log_path"`
	PostgresDSN     string   `yaml:"postgres_dsn"`
	ClickhouseDSN   string   `yaml:"clickhouse_dsn"`
	RedisAddr       string   `yaml:"redis_addr"`
	RedisPassword   string   `yaml:"-"`
	RedisDB         int      `yaml:"redis_db"`
	KeyPrefix       string   `yaml:"key_prefix"` // redis key prefix and postgres bot name
}

// KafkaConfig holds the trade event stream settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ServerConfig holds the status API settings. An empty address disables the server.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration: dry run on the simulated market.
func Default() Config {
	exit := risk.DefaultExitConfig()
	policy := risk.MomentumPolicy()
	return Config{
		Mode: ModeDryRun,
		Strategy: StrategyConfig{
			InitialCapitalSOL:     2.0,
			PositionSizePercent:   10,
			MaxConcurrentTrades:   policy.MaxConcurrent,
			MinReserveSOL:         policy.MinReserveSOL,
			TradingFeePercent:     1.25,
			DailyLossLimitPercent: 20,
			EvaluationWindow:      3 * time.Second,
			MonitorInterval:       time.Second,
			Timezone:              "UTC",
		},
		Scoring: ScoringConfig{
			Preset: risk.PresetMomentum,
		},
		Exit: ExitConfig{
			StopLossPercent:     exit.StopLossPercent,
			TakeProfitPercent:   exit.TakeProfitPercent,
			TrailingStopPercent: exit.TrailingStopPercent,
			MinHold:             exit.MinHold,
			MaxHold:             exit.MaxHold,
			MaxLossPerTradeSOL:  exit.MaxLossPerTradeSOL,
			ProfitLadder:        FormatProfitLadder(exit.ProfitLadder),
		},
		Solana: SolanaConfig{
			RPCEndpoint:    "https://api.mainnet-beta.solana.com",
			WSEndpoint:     "wss://api.mainnet-beta.solana.com",
			Feed:           FeedSim,
			PollInterval:   2 * time.Second,
			SampleMaxTxs:   100,
			SimSeed:        1,
			SimLaunchEvery: 5 * time.Second,
		},
		Execution: ExecutionConfig{
			PortalEndpoint:  "https://pumpportal.fun/api/trade",
			SlippagePercent: 10,
			PriorityFeeSOL:  0.00005,
		},
		Storage: StorageConfig{
			SnapshotBackend: BackendFile,
			SnapshotPath:    "data/bot_state.json",
			TradeSinks:      []string{BackendCSV},
			TradeLogPath:    "data/trades.csv",
			KeyPrefix:       "pump-trader",
		},
		Kafka: KafkaConfig{
			Topic: "pump-trader.trades",
		},
		Server: ServerConfig{
			HTTPAddr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if any),
// then .env, then environment variables. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: load .env: %v", ErrConfiguration, err)
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv is Load without a YAML file.
func FromEnv() (Config, error) {
	return Load("")
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the file keep their value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrConfiguration, path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrConfiguration, path, err)
	}
	return nil
}

// IsLive reports whether orders go to the real trade API.
func (c Config) IsLive() bool {
	return c.Mode == ModeLive
}

// Location returns the time zone used for the daily loss reset.
func (c Config) Location() (*time.Location, error) {
	if c.Strategy.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Strategy.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrConfiguration, c.Strategy.Timezone, err)
	}
	return loc, nil
}

// BuildScoringPolicy resolves the preset and applies the overrides.
func (c Config) BuildScoringPolicy() (risk.ScoringPolicy, error) {
	p, err := risk.PolicyByName(c.Scoring.Preset)
	if err != nil {
		return risk.ScoringPolicy{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	s := c.Scoring
	if s.MinScore != nil {
		p.MinScore = *s.MinScore
	}
	if s.MinCurveProgress != nil {
		p.MinCurveProgress = *s.MinCurveProgress
	}
	if s.MaxCurveProgress != nil {
		p.MaxCurveProgress = *s.MaxCurveProgress
	}
	if s.MinVolumeSOL != nil {
		p.MinVolumeSOL = *s.MinVolumeSOL
	}
	if s.MinPriceChangePercent != nil {
		p.MinPriceChangePercent = *s.MinPriceChangePercent
	}
	p.MaxConcurrent = c.Strategy.MaxConcurrentTrades
	p.MinReserveSOL = c.Strategy.MinReserveSOL
	p.BlacklistCreators = append([]string(nil), s.BlacklistCreators...)
	p.BlacklistKeywords = append([]string(nil), s.BlacklistKeywords...)
	return p, nil
}

// BuildExitConfig converts the exit section into risk thresholds.
func (c Config) BuildExitConfig() (risk.ExitConfig, error) {
	ladder, err := ParseProfitLadder(c.Exit.ProfitLadder)
	if err != nil {
		return risk.ExitConfig{}, err
	}
	return risk.ExitConfig{
		StopLossPercent:     c.Exit.StopLossPercent,
		TakeProfitPercent:   c.Exit.TakeProfitPercent,
		TrailingStopPercent: c.Exit.TrailingStopPercent,
		MinHold:             c.Exit.MinHold,
		MaxHold:             c.Exit.MaxHold,
		MaxLossPerTradeSOL:  c.Exit.MaxLossPerTradeSOL,
		ProfitLadder:        ladder,
	}, nil
}

// BuildGateConfig returns the can-open limits.
func (c Config) BuildGateConfig() (risk.GateConfig, error) {
	loc, err := c.Location()
	if err != nil {
		return risk.GateConfig{}, err
	}
	return risk.GateConfig{
		MaxConcurrent:         c.Strategy.MaxConcurrentTrades,
		MinReserveSOL:         c.Strategy.MinReserveSOL,
		DailyLossLimitPercent: c.Strategy.DailyLossLimitPercent,
		Location:              loc,
	}, nil
}

// HasTradeSink reports whether name is among the configured trade sinks.
func (c Config) HasTradeSink(name string) bool {
	for _, s := range c.Storage.TradeSinks {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// Validate checks every setting and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...)))
	}

	if c.Mode != ModeDryRun && c.Mode != ModeLive {
		bad("mode must be %q or %q, got %q", ModeDryRun, ModeLive, c.Mode)
	}

	st := c.Strategy
	if st.InitialCapitalSOL <= 0 {
		bad("initial capital must be positive")
	}
	if st.PositionSizePercent <= 0 || st.PositionSizePercent > 100 {
		bad("position size %v%% outside (0, 100]", st.PositionSizePercent)
	}
	if st.TradingFeePercent < 0 || st.TradingFeePercent >= 100 {
		bad("trading fee %v%% outside [0, 100)", st.TradingFeePercent)
	}
	if st.DailyLossLimitPercent < 0 || st.DailyLossLimitPercent > 100 {
		bad("daily loss limit %v%% outside [0, 100]", st.DailyLossLimitPercent)
	}
	if st.EvaluationWindow <= 0 {
		bad("evaluation window must be positive")
	}
	if st.MonitorInterval <= 0 {
		bad("monitor interval must be positive")
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	if p, err := c.BuildScoringPolicy(); err != nil {
		errs = append(errs, err)
	} else if err := p.Validate(); err != nil {
		bad("scoring: %v", err)
	}
	if e, err := c.BuildExitConfig(); err != nil {
		errs = append(errs, err)
	} else if err := e.Validate(); err != nil {
		bad("exit: %v", err)
	}

	switch c.Solana.Feed {
	case FeedSim:
	case FeedWS:
		if c.Solana.WSEndpoint == "" {
			bad("ws feed requires a websocket endpoint")
		}
	case FeedPoll:
		if c.Solana.PollInterval <= 0 {
			bad("poll interval must be positive")
		}
	default:
		bad("unknown launch feed %q", c.Solana.Feed)
	}
	if c.Solana.Feed != FeedSim && c.Solana.RPCEndpoint == "" {
		bad("rpc endpoint required for the %s feed", c.Solana.Feed)
	}

	if c.IsLive() {
		if c.Solana.Feed == FeedSim {
			bad("live mode cannot trade the simulated feed")
		}
		if c.Solana.WalletPublicKey == "" {
			bad("live mode requires a wallet public key")
		} else if _, err := solana.DecodePubkey(c.Solana.WalletPublicKey); err != nil {
			bad("wallet: %v", err)
		}
		if c.Execution.PortalAPIKey == "" {
			bad("live mode requires a trade API key")
		}
	}

	errs = append(errs, c.validateStorage()...)

	return errors.Join(errs...)
}

func (c Config) validateStorage() []error {
	var errs []error
	bad := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...)))
	}
	s := c.Storage

	switch s.SnapshotBackend {
	case BackendMemory:
	case BackendFile:
		if s.SnapshotPath == "" {
			bad("file snapshot backend requires a path")
		}
	case BackendRedis:
		if s.RedisAddr == "" {
			bad("redis snapshot backend requires an address")
		}
	case BackendPostgres:
		if s.PostgresDSN == "" {
			bad("postgres snapshot backend requires a DSN")
		}
	default:
		bad("unknown snapshot backend %q", s.SnapshotBackend)
	}

	for _, sink := range s.TradeSinks {
		switch strings.ToLower(sink) {
		case BackendMemory:
		case BackendCSV:
			if s.TradeLogPath == "" {
				bad("csv trade sink requires a path")
			}
		case BackendPostgres:
			if s.PostgresDSN == "" {
				bad("postgres trade sink requires a DSN")
			}
		case BackendClickhouse:
			if s.ClickhouseDSN == "" {
				bad("clickhouse trade sink requires a DSN")
			}
		case BackendKafka:
			if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
				bad("kafka trade sink requires brokers and a topic")
			}
		default:
			bad("unknown trade sink %q", sink)
		}
	}
	return errs
}
