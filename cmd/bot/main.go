// Package main runs the launch trading bot: detection, scoring, execution and
// position monitoring, with the status API alongside.
//
// Configuration comes from defaults, an optional YAML file, .env and the
// environment; command-line flags override all of them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"pump-trader/internal/api"
	"pump-trader/internal/config"
	"pump-trader/internal/discovery"
	"pump-trader/internal/engine"
	"pump-trader/internal/execution"
	"pump-trader/internal/logging"
	"pump-trader/internal/market"
	"pump-trader/internal/market/sim"
	"pump-trader/internal/observability"
	"pump-trader/internal/solana"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to a YAML config file")
	mode := flag.String("mode", "", "Trading mode: dry_run or live")
	feed := flag.String("feed", "", "Launch feed: sim, ws or poll")
	httpAddr := flag.String("http-addr", "", "Status API address (empty keeps the configured one)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	resetState := flag.Bool("reset-state", false, "Discard the saved snapshot before starting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *mode != "" {
		cfg.Mode = config.Mode(*mode)
	}
	if *feed != "" {
		cfg.Solana.Feed = *feed
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop() // a second signal kills the process
	}()

	if err := run(ctx, cfg, *resetState, log); err != nil {
		log.Error().Err(err).Msg("bot exited with error")
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, resetState bool, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := observability.NewMetrics("", reg)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if resetState {
		if err := st.snapshots.Reset(ctx); err != nil {
			st.close()
			return fmt.Errorf("reset state: %w", err)
		}
		log.Warn().Msg("saved state discarded")
	}

	c, err := buildCollaborators(ctx, cfg, m, log)
	if err != nil {
		st.close()
		return err
	}

	opts, err := engineOptions(cfg, m, log)
	if err != nil {
		st.close()
		c.close()
		return err
	}
	opts.Feed = c.feed
	opts.Sampler = c.sampler
	opts.Oracle = c.oracle
	opts.Gateway = c.gateway
	opts.CapitalOracle = c.capital
	opts.Wallet = cfg.Solana.WalletPublicKey
	opts.Snapshots = st.snapshots
	opts.Trades = st.sink
	opts.SeenMints = st.seenMints
	if st.publisher != nil {
		opts.Events = st.publisher
	}
	opts.Closers = append(c.closers, st.closers...)

	eng, err := engine.New(opts)
	if err != nil {
		st.close()
		c.close()
		return err
	}

	log.Info().
		Str("mode", string(cfg.Mode)).
		Str("feed", cfg.Solana.Feed).
		Str("scoring", cfg.Scoring.Preset).
		Str("snapshot_backend", cfg.Storage.SnapshotBackend).
		Strs("trade_sinks", cfg.Storage.TradeSinks).
		Msg("starting bot")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		// the API goes down with the engine, even when the feed ends on its own
		defer cancel()
		return eng.Run(gctx, shutdownTimeout)
	})
	if cfg.Server.HTTPAddr != "" {
		srv := api.New(api.Options{
			Addr:     cfg.Server.HTTPAddr,
			Engine:   eng,
			Trades:   st.query,
			Gatherer: reg,
			Logger:   log,
		})
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func engineOptions(cfg config.Config, m *observability.Metrics, log zerolog.Logger) (engine.Options, error) {
	policy, err := cfg.BuildScoringPolicy()
	if err != nil {
		return engine.Options{}, err
	}
	exit, err := cfg.BuildExitConfig()
	if err != nil {
		return engine.Options{}, err
	}
	gate, err := cfg.BuildGateConfig()
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		Mode:                string(cfg.Mode),
		Scoring:             policy,
		Exit:                exit,
		Gate:                gate,
		PositionSizePercent: cfg.Strategy.PositionSizePercent,
		FeePercent:          cfg.Strategy.TradingFeePercent,
		InitialCapitalSOL:   cfg.Strategy.InitialCapitalSOL,
		EvaluationWindow:    cfg.Strategy.EvaluationWindow,
		MonitorInterval:     cfg.Strategy.MonitorInterval,
		Metrics:             m,
		Logger:              log,
	}, nil
}

// collaborators are the market-facing dependencies of the engine.
type collaborators struct {
	feed    market.LaunchFeed
	sampler market.ActivitySampler
	oracle  market.PriceOracle
	gateway market.ExecutionGateway
	capital market.CapitalOracle
	closers []io.Closer
}

func (c *collaborators) close() {
	for _, cl := range c.closers {
		_ = cl.Close()
	}
}

func buildCollaborators(ctx context.Context, cfg config.Config, m *observability.Metrics, log zerolog.Logger) (*collaborators, error) {
	c := &collaborators{}

	if cfg.Solana.Feed == config.FeedSim {
		mkt := sim.New(sim.Config{Seed: cfg.Solana.SimSeed, LaunchEvery: cfg.Solana.SimLaunchEvery})
		c.feed, c.sampler, c.oracle = mkt, mkt, mkt
		c.gateway = execution.NewPaperGateway(mkt)
		log.Info().Int64("seed", cfg.Solana.SimSeed).Msg("using simulated market")
		return c, nil
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint,
		solana.WithLogger(logging.Component(log, "rpc")),
		solana.WithObserver(m.ObserveRPC),
	)
	c.sampler = discovery.NewRPCSampler(rpc, cfg.Solana.SampleMaxTxs, logging.Component(log, "sampler"))
	c.oracle = solana.NewCurveOracle(rpc)

	switch cfg.Solana.Feed {
	case config.FeedWS:
		ws, err := solana.NewWSClient(ctx, cfg.Solana.WSEndpoint, nil, logging.Component(log, "ws"))
		if err != nil {
			return nil, fmt.Errorf("%w: websocket: %w", engine.ErrInitialization, err)
		}
		c.closers = append(c.closers, ws)
		c.feed = discovery.NewWSFeed(ws, rpc, logging.Component(log, "feed"))
	case config.FeedPoll:
		pc := discovery.DefaultPollConfig()
		pc.Interval = cfg.Solana.PollInterval
		c.feed = discovery.NewPollFeed(rpc, pc, logging.Component(log, "feed"))
	}

	if !cfg.IsLive() {
		c.gateway = execution.NewPaperGateway(c.oracle)
		return c, nil
	}

	pc := execution.DefaultPortalConfig()
	pc.Endpoint = cfg.Execution.PortalEndpoint
	pc.APIKey = cfg.Execution.PortalAPIKey
	pc.SlippagePercent = cfg.Execution.SlippagePercent
	pc.PriorityFeeSOL = cfg.Execution.PriorityFeeSOL
	gw, err := execution.NewPortalGateway(pc, c.oracle, logging.Component(log, "gateway"))
	if err != nil {
		c.close()
		return nil, fmt.Errorf("%w: %w", engine.ErrInitialization, err)
	}
	c.gateway = gw
	c.capital = solana.NewBalanceOracle(rpc)
	return c, nil
}
