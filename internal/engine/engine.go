// Package engine runs the trading loop: it turns launch candidates into
// positions and closes them under the exit policy.
//
// Two goroutines share one mutex-guarded state (ledger, positions, tracker, gate):
//   - the detection consumer reads candidates one at a time and runs
//     prefilter → sample → score → gate → buy → insert;
//   - the monitor loop refreshes prices on every tick and sells positions
//     the exit policy releases.
//
// Network calls are never made while holding the mutex.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"pump-trader/internal/domain"
	"pump-trader/internal/idhash"
	"pump-trader/internal/market"
	"pump-trader/internal/metrics"
	"pump-trader/internal/observability"
	"pump-trader/internal/portfolio"
	"pump-trader/internal/risk"
	"pump-trader/internal/storage"
	"pump-trader/internal/storage/memory"
)

// maxShutdownSellAttempts bounds the sell retries for each position on shutdown.
const maxShutdownSellAttempts = 3

// OpenPublisher announces newly opened positions.
type OpenPublisher interface {
	PublishOpened(ctx context.Context, pos domain.Position, score int) error
}

// Options configures an Engine. Feed, Sampler, Oracle and Gateway are required.
type Options struct {
	Mode string // label for logs, status and events

	// Collaborators
	Feed          market.LaunchFeed
	Sampler       market.ActivitySampler
	Oracle        market.PriceOracle
	Gateway       market.ExecutionGateway
	CapitalOracle market.CapitalOracle // live mode only; nil uses InitialCapitalSOL
	Wallet        string               // account read through CapitalOracle

	// Persistence. Nil stores default to in-memory ones.
	Snapshots storage.SnapshotStore
	Trades    storage.TradeSink
	SeenMints storage.SeenMintStore
	Events    OpenPublisher // optional
	Closers   []io.Closer   // closed last on shutdown

	// Policy
	Scoring             risk.ScoringPolicy
	Exit                risk.ExitConfig
	Gate                risk.GateConfig
	PositionSizePercent float64
	FeePercent          float64
	InitialCapitalSOL   float64
	EvaluationWindow    time.Duration
	MonitorInterval     time.Duration

	Metrics *observability.Metrics // nil creates an unregistered set
	Logger  zerolog.Logger
	Now     func() time.Time // nil uses time.Now
}

// Engine is the trading engine. Create with New, run with Start or Run, stop with Shutdown.
type Engine struct {
	opts    Options
	scorer  *risk.Scorer
	exit    *risk.ExitPolicy
	fees    risk.FeeModel
	metrics *observability.Metrics
	log     zerolog.Logger
	now     func() time.Time

	// guarded by mu
	mu        sync.Mutex
	ledger    *portfolio.Ledger
	positions *portfolio.PositionStore
	tracker   *metrics.Tracker
	gate      *risk.Gate
	seenMints map[string]struct{}
	seenSigs  map[string]struct{}
	restored  bool
	running   bool
	startedAt time.Time

	cancel       context.CancelFunc
	group        *errgroup.Group
	startOnce    sync.Once
	startErr     error
	shutdownOnce sync.Once
	shutdownErr  error
}

// New validates opts and builds an Engine. No I/O happens until Start.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Feed == nil:
		return nil, fmt.Errorf("%w: launch feed required", ErrInitialization)
	case opts.Sampler == nil:
		return nil, fmt.Errorf("%w: activity sampler required", ErrInitialization)
	case opts.Oracle == nil:
		return nil, fmt.Errorf("%w: price oracle required", ErrInitialization)
	case opts.Gateway == nil:
		return nil, fmt.Errorf("%w: execution gateway required", ErrInitialization)
	case opts.CapitalOracle != nil && opts.Wallet == "":
		return nil, fmt.Errorf("%w: capital oracle needs a wallet", ErrInitialization)
	}

	if err := opts.Scoring.Validate(); err != nil {
		return nil, fmt.Errorf("%w: scoring: %v", ErrConfiguration, err)
	}
	// zero gate limits take the scoring policy's values; they must agree
	if opts.Gate.MaxConcurrent == 0 {
		opts.Gate.MaxConcurrent = opts.Scoring.MaxConcurrent
	}
	if opts.Gate.MinReserveSOL == 0 {
		opts.Gate.MinReserveSOL = opts.Scoring.MinReserveSOL
	}
	if opts.Gate.MaxConcurrent != opts.Scoring.MaxConcurrent || opts.Gate.MinReserveSOL != opts.Scoring.MinReserveSOL {
		return nil, fmt.Errorf("%w: gate limits (max %d, reserve %v SOL) differ from scoring policy (max %d, reserve %v SOL)",
			ErrConfiguration, opts.Gate.MaxConcurrent, opts.Gate.MinReserveSOL, opts.Scoring.MaxConcurrent, opts.Scoring.MinReserveSOL)
	}
	if err := opts.Exit.Validate(); err != nil {
		return nil, fmt.Errorf("%w: exit: %v", ErrConfiguration, err)
	}
	if opts.PositionSizePercent <= 0 || opts.PositionSizePercent > 100 {
		return nil, fmt.Errorf("%w: position size %v%% outside (0, 100]", ErrConfiguration, opts.PositionSizePercent)
	}
	if opts.FeePercent < 0 || opts.FeePercent >= 100 {
		return nil, fmt.Errorf("%w: fee %v%% outside [0, 100)", ErrConfiguration, opts.FeePercent)
	}
	if opts.InitialCapitalSOL <= 0 && opts.CapitalOracle == nil {
		return nil, fmt.Errorf("%w: initial capital must be positive", ErrConfiguration)
	}
	if opts.EvaluationWindow <= 0 || opts.MonitorInterval <= 0 {
		return nil, fmt.Errorf("%w: evaluation window and monitor interval must be positive", ErrConfiguration)
	}

	if opts.Snapshots == nil {
		opts.Snapshots = memory.NewSnapshotStore()
	}
	if opts.Trades == nil {
		opts.Trades = memory.NewTradeStore()
	}
	if opts.SeenMints == nil {
		opts.SeenMints = memory.NewSeenMintStore()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics("", nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Mode == "" {
		opts.Mode = "dry_run"
	}

	now := opts.Now()
	return &Engine{
		opts:      opts,
		scorer:    risk.NewScorer(opts.Scoring),
		exit:      risk.NewExitPolicy(opts.Exit),
		fees:      risk.NewFeeModel(opts.FeePercent),
		metrics:   opts.Metrics,
		log:       opts.Logger.With().Str("component", "engine").Str("mode", opts.Mode).Logger(),
		now:       opts.Now,
		ledger:    portfolio.NewLedger(opts.InitialCapitalSOL),
		positions: portfolio.NewPositionStore(),
		tracker:   metrics.NewTracker(opts.InitialCapitalSOL, now),
		gate:      risk.NewGate(opts.Gate),
		seenMints: make(map[string]struct{}),
		seenSigs:  make(map[string]struct{}),
	}, nil
}

// Run starts the engine, blocks until ctx is done or a loop fails, then shuts down.
func (e *Engine) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	if err := e.Start(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- e.group.Wait() }()

	var loopErr error
	select {
	case <-ctx.Done():
	case loopErr = <-done:
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(loopErr, e.Shutdown(sctx))
}

// Start restores persisted state and launches the detection and monitor loops.
// Calling Start again returns the first result.
func (e *Engine) Start(ctx context.Context) error {
	e.startOnce.Do(func() {
		e.startErr = e.start(ctx)
	})
	return e.startErr
}

func (e *Engine) start(ctx context.Context) error {
	if err := e.initCapital(ctx); err != nil {
		return err
	}
	e.LoadSnapshot(ctx)
	e.loadSeenMints(ctx)

	loopCtx, cancel := context.WithCancel(ctx)
	candidates, err := e.opts.Feed.Candidates(loopCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: start launch feed: %w", ErrInitialization, err)
	}

	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error { return e.consume(gctx, candidates) })
	g.Go(func() error { return e.monitor(gctx) })

	e.mu.Lock()
	e.cancel = cancel
	e.group = g
	e.running = true
	e.startedAt = e.now()
	e.mu.Unlock()

	e.logRiskSummary("engine started")
	return nil
}

// initCapital reads the wallet balance when a capital oracle is configured.
func (e *Engine) initCapital(ctx context.Context) error {
	if e.opts.CapitalOracle == nil {
		return nil
	}
	balance, err := e.opts.CapitalOracle.Balance(ctx, e.opts.Wallet)
	if err != nil {
		return fmt.Errorf("%w: read wallet balance: %w", ErrInitialization, err)
	}
	if balance <= 0 {
		return fmt.Errorf("%w: wallet %s has no SOL", ErrInitialization, e.opts.Wallet)
	}

	e.mu.Lock()
	e.ledger = portfolio.NewLedger(balance)
	e.tracker = metrics.NewTracker(balance, e.now())
	e.mu.Unlock()

	e.log.Info().Str("wallet", e.opts.Wallet).Float64("balance_sol", balance).Msg("wallet balance loaded")
	return nil
}

// LoadSnapshot restores capital and counters from the snapshot store.
// A missing snapshot keeps the defaults; a corrupt or unreadable one is logged and ignored.
// Only the first call has an effect.
func (e *Engine) LoadSnapshot(ctx context.Context) {
	e.mu.Lock()
	if e.restored {
		e.mu.Unlock()
		return
	}
	e.restored = true
	e.mu.Unlock()

	snap, err := e.opts.Snapshots.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrCorruptSnapshot):
		e.log.Warn().Err(err).Msg("snapshot corrupt, starting from defaults")
		return
	case err != nil:
		e.persistFailed("load_snapshot", err)
		return
	case snap == nil:
		e.log.Info().Msg("no snapshot, starting from defaults")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	available := snap.CurrentCapital
	if e.opts.CapitalOracle != nil {
		// the wallet is authoritative for capital in live mode
		available = e.ledger.Available()
	}
	initial := snap.InitialCapital
	if initial <= 0 {
		initial = e.ledger.Initial()
	}
	m := snap.Metrics
	e.ledger.Restore(initial, available, m.PeakCapitalSOL, m.MaxDrawdownSOL, m.MaxDrawdownPercent)
	e.tracker.Restore(*snap)
	e.syncCapitalLocked()

	e.log.Info().
		Float64("capital_sol", available).
		Int("trades", snap.TradeCount).
		Time("saved_at", snap.UpdatedAt).
		Msg("snapshot restored")
}

func (e *Engine) loadSeenMints(ctx context.Context) {
	mints, err := e.opts.SeenMints.LoadSeenMints(ctx)
	if err != nil {
		e.persistFailed("load_seen_mints", err)
		return
	}
	e.mu.Lock()
	for _, m := range mints {
		e.seenMints[m] = struct{}{}
	}
	e.mu.Unlock()
	if len(mints) > 0 {
		e.log.Info().Int("mints", len(mints)).Msg("seen mints restored")
	}
}

// Shutdown stops both loops, closes every open position with reason SHUTDOWN,
// saves the snapshot and closes I/O. It is idempotent.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.shutdownOnce.Do(func() {
		e.shutdownErr = e.shutdown(ctx)
	})
	return e.shutdownErr
}

func (e *Engine) shutdown(ctx context.Context) error {
	e.mu.Lock()
	cancel, group := e.cancel, e.group
	e.running = false
	e.mu.Unlock()

	var errs []error
	if cancel != nil {
		cancel()
		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}

	e.mu.Lock()
	open := e.positions.Snapshot()
	e.mu.Unlock()

	if len(open) > 0 {
		e.log.Info().Int("positions", len(open)).Msg("closing open positions")
	}
	for _, p := range open {
		decision := risk.ExitDecision{Exit: true, Reason: domain.ExitReasonShutdown, Detail: "engine shutdown"}
		var err error
		for attempt := 0; attempt < maxShutdownSellAttempts; attempt++ {
			if err = e.closePosition(ctx, p.Token.Mint, decision); err == nil || ctx.Err() != nil {
				break
			}
		}
		if err != nil {
			e.log.Error().Err(err).Str("mint", p.Token.Mint).Msg("position left open on shutdown")
			errs = append(errs, err)
		}
	}

	e.saveSnapshot(ctx)
	e.logRiskSummary("engine stopped")
	e.logMetricsSummary()

	for _, c := range e.opts.Closers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%w: close: %w", ErrPersistence, err))
		}
	}
	return errors.Join(errs...)
}

// consume runs the detection consumer until ctx is done or the feed closes.
func (e *Engine) consume(ctx context.Context, candidates <-chan domain.TokenCandidate) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-candidates:
			if !ok {
				e.log.Info().Msg("launch feed closed")
				return nil
			}
			e.handleCandidate(ctx, c)
		}
	}
}

// monitor runs the position monitor until ctx is done.
func (e *Engine) monitor(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// persistFailed logs a non-fatal storage error.
func (e *Engine) persistFailed(op string, err error) {
	e.metrics.PersistenceErrors.WithLabelValues(op).Inc()
	e.log.Error().Err(fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)).Str("op", op).Msg("persistence failed")
}

// saveSnapshot writes the resumable state. Capital is saved at book value so
// capital locked in open positions survives a crash.
func (e *Engine) saveSnapshot(ctx context.Context) {
	e.mu.Lock()
	snap := e.tracker.Snapshot(e.now())
	snap.CurrentCapital = e.bookLocked()
	e.mu.Unlock()

	if err := e.opts.Snapshots.Save(ctx, &snap); err != nil {
		e.persistFailed("save_snapshot", err)
	}
}

// bookLocked is available capital plus the cost of open positions. Caller holds mu.
func (e *Engine) bookLocked() float64 {
	return e.ledger.Available() + e.positions.LockedSOL()*(1+e.fees.Rate)
}

// syncCapitalLocked pushes ledger state into the tracker and gauges. Caller holds mu.
func (e *Engine) syncCapitalLocked() {
	ddSOL, ddPct := e.ledger.MaxDrawdown()
	e.tracker.UpdateCapital(e.ledger.Available(), e.ledger.Peak(), ddSOL, ddPct)

	book := e.bookLocked()
	m := e.tracker.Metrics()
	e.metrics.SetPortfolio(observability.PortfolioState{
		OpenPositions:    e.positions.Len(),
		Available:        e.ledger.Available(),
		Book:             book,
		RealizedPnL:      m.TotalPnLSOL,
		DailyLossPercent: e.gate.DailyLossPercent(book, e.now()),
		DrawdownPercent:  ddPct,
	})
}

func (e *Engine) logRiskSummary(msg string) {
	e.mu.Lock()
	book := e.bookLocked()
	ddSOL, ddPct := e.ledger.MaxDrawdown()
	ev := e.log.Info().
		Float64("available_sol", e.ledger.Available()).
		Float64("book_sol", book).
		Float64("peak_sol", e.ledger.Peak()).
		Float64("max_drawdown_sol", ddSOL).
		Float64("max_drawdown_pct", ddPct).
		Float64("daily_loss_pct", e.gate.DailyLossPercent(book, e.now())).
		Float64("daily_loss_limit_pct", e.opts.Gate.DailyLossLimitPercent).
		Int("open_positions", e.positions.Len()).
		Int("max_concurrent", e.opts.Gate.MaxConcurrent).
		Float64("position_size_pct", e.opts.PositionSizePercent).
		Str("scoring", e.opts.Scoring.Name)
	e.mu.Unlock()
	ev.Msg(msg)
}

func (e *Engine) logMetricsSummary() {
	e.mu.Lock()
	m := e.tracker.Metrics()
	e.mu.Unlock()

	e.log.Info().
		Int("trades", m.TotalTrades).
		Int("wins", m.WinningTrades).
		Int("losses", m.LosingTrades).
		Int("breakeven", m.BreakevenTrades).
		Float64("win_rate_pct", m.WinRate).
		Float64("net_pnl_sol", m.TotalPnLSOL).
		Float64("fees_sol", m.TotalFeesSOL).
		Float64("best_trade_sol", m.BestTradePnLSOL).
		Float64("worst_trade_sol", m.WorstTradePnLSOL).
		Float64("roi_pct", m.ROIPercent()).
		Int("tokens_evaluated", m.TokensEvaluated).
		Int("tokens_skipped", m.TokensSkipped).
		Int("entries_failed", m.EntriesFailed).
		Msg("session summary")
}

// tradeID is the deterministic identifier of a round trip.
func tradeID(p *domain.Position) string {
	return idhash.ComputeTradeID(p.Token.Mint, p.EntrySignature, p.EntryTime)
}
