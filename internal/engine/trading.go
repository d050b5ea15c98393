package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"pump-trader/internal/domain"
	"pump-trader/internal/risk"
)

// Skip reasons used as metric labels.
const (
	skipInvalid   = "invalid"
	skipPrefilter = "prefilter"
	skipGate      = "gate"
	skipSample    = "sample_error"
	skipScore     = "score"
	skipSize      = "size"
)

// minEntrySOL is the smallest position worth opening.
const minEntrySOL = 0.001

// handleCandidate runs one candidate to completion: entry or skip.
func (e *Engine) handleCandidate(ctx context.Context, c domain.TokenCandidate) {
	e.metrics.CandidatesReceived.WithLabelValues(c.Source.String()).Inc()
	e.metrics.LastCandidate.Set(float64(e.now().Unix()))
	log := e.log.With().Str("mint", c.Mint).Str("symbol", c.Symbol).Logger()

	if err := c.Validate(); err != nil {
		log.Warn().Err(fmt.Errorf("%w: %w", ErrValidation, err)).Msg("candidate rejected")
		e.metrics.CandidatesSkipped.WithLabelValues(skipInvalid).Inc()
		return
	}

	if !e.markSeen(c) {
		e.metrics.CandidatesDuplicate.Inc()
		log.Debug().Str("signature", c.Signature).Msg("duplicate candidate")
		return
	}
	if err := e.opts.SeenMints.MarkMintSeen(ctx, c.Mint); err != nil {
		e.persistFailed("mark_seen", err)
	}

	e.mu.Lock()
	e.tracker.Evaluated()
	e.mu.Unlock()

	if ok, reason := e.scorer.Prefilter(c); !ok {
		e.skip(log, skipPrefilter, reason)
		return
	}
	if ok, reason := e.canOpen(); !ok {
		e.skip(log, skipGate, reason)
		return
	}

	start := time.Now()
	activity, err := e.opts.Sampler.Sample(ctx, c, e.opts.EvaluationWindow)
	e.metrics.SampleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(fmt.Errorf("%w: sample: %w", ErrTransport, err)).Msg("candidate skipped")
		e.skip(log, skipSample, err.Error())
		return
	}

	e.mu.Lock()
	decision := e.scorer.Evaluate(risk.EntryInput{
		Candidate:     c,
		Activity:      activity,
		OpenPositions: e.positions.Len(),
		AvailableSOL:  e.ledger.Available(),
	})
	e.mu.Unlock()

	e.metrics.EntryScore.Observe(float64(decision.Score))
	log.Info().
		Int("score", decision.Score).
		Float64("volume_sol", activity.VolumeSOL).
		Float64("price_change_pct", activity.PriceChangePercent).
		Float64("curve_progress_pct", activity.CurveProgressPercent).
		Int("buys", activity.BuyCount).
		Int("sells", activity.SellCount).
		Int("unique_buyers", activity.UniqueBuyers).
		Bool("enter", decision.Enter).
		Str("reason", decision.Reason).
		Msg("candidate scored")
	if !decision.Enter {
		e.skip(log, skipScore, decision.Reason)
		return
	}

	e.enter(ctx, c, decision)
}

// markSeen records the candidate's signature and mint. It returns false when
// either was already seen or the mint already has a position.
func (e *Engine) markSeen(c domain.TokenCandidate) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, sigSeen := e.seenSigs[c.Signature]
	_, mintSeen := e.seenMints[c.Mint]
	if sigSeen || mintSeen || e.positions.Has(c.Mint) {
		return false
	}
	e.seenSigs[c.Signature] = struct{}{}
	e.seenMints[c.Mint] = struct{}{}
	return true
}

func (e *Engine) canOpen() (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.CanOpen(e.positions.Len(), e.ledger.Available(), e.bookLocked(), e.now())
}

func (e *Engine) skip(log zerolog.Logger, label, reason string) {
	e.mu.Lock()
	e.tracker.Skipped()
	e.mu.Unlock()
	e.metrics.CandidatesSkipped.WithLabelValues(label).Inc()
	log.Info().Str("reason", reason).Msg("candidate skipped")
}

// enter re-checks the gate, sizes the position, buys and records it.
func (e *Engine) enter(ctx context.Context, c domain.TokenCandidate, decision risk.EntryDecision) {
	log := e.log.With().Str("mint", c.Mint).Str("symbol", c.Symbol).Logger()

	e.mu.Lock()
	ok, reason := e.gate.CanOpen(e.positions.Len(), e.ledger.Available(), e.bookLocked(), e.now())
	available := e.ledger.Available()
	size := risk.SizePosition(available, e.opts.Gate.MinReserveSOL, e.opts.PositionSizePercent, c.InitialPrice)
	e.mu.Unlock()
	if !ok {
		e.skip(log, skipGate, reason)
		return
	}

	// the entry fee is debited with the position, so both must fit in available capital
	sol := size.SOL
	if limit := available / (1 + e.fees.Rate); sol > limit {
		sol = limit
	}
	if sol < minEntrySOL {
		e.skip(log, skipSize, fmt.Sprintf("no tradeable capital (available %.4f SOL)", available))
		return
	}

	start := time.Now()
	fill, err := e.opts.Gateway.Buy(ctx, c, sol)
	e.metrics.ObserveOrder("buy", time.Since(start))
	if err != nil {
		e.entryFailed(log, fmt.Errorf("%w: buy: %w", ErrExecution, err))
		return
	}
	at := fill.At
	if at.IsZero() {
		at = e.now()
	}
	pos, err := domain.NewPosition(c, fill.Price, sol, fill.Signature, at)
	if err != nil {
		e.entryFailed(log, fmt.Errorf("%w: fill: %w", ErrValidation, err))
		return
	}

	e.mu.Lock()
	cost := math.Min(sol*(1+e.fees.Rate), e.ledger.Available())
	entryFee := cost - sol
	if err := e.ledger.Debit(cost); err != nil {
		e.mu.Unlock()
		e.entryFailed(log, fmt.Errorf("%w: debit: %w", ErrExecution, err))
		return
	}
	if err := e.positions.Insert(pos); err != nil {
		_ = e.ledger.Credit(cost)
		e.mu.Unlock()
		e.entryFailed(log, fmt.Errorf("%w: %w", ErrValidation, err))
		return
	}
	e.exit.UpdateRisk(pos)
	opened := *pos
	e.syncCapitalLocked()
	e.mu.Unlock()

	e.metrics.EntriesFilled.Inc()
	est := e.fees.ExpectedProfit(fill.Price, fill.Price*(1+e.opts.Exit.TakeProfitPercent/100), sol)
	log.Info().
		Float64("entry_price", fill.Price).
		Float64("entry_sol", sol).
		Float64("entry_fee_sol", entryFee).
		Float64("tokens", opened.EntryTokens).
		Str("signature", fill.Signature).
		Float64("stop_loss_price", opened.StopLossPrice).
		Float64("take_profit_price", opened.TakeProfitPrice).
		Float64("expected_net_profit_sol", est.NetProfitSOL).
		Float64("breakeven_price", est.BreakevenPrice).
		Int("score", decision.Score).
		Msg("position opened")

	if e.opts.Events != nil {
		if err := e.opts.Events.PublishOpened(ctx, opened, decision.Score); err != nil {
			e.persistFailed("publish_opened", err)
		}
	}
}

func (e *Engine) entryFailed(log zerolog.Logger, err error) {
	e.mu.Lock()
	e.tracker.EntryFailed()
	e.mu.Unlock()
	e.metrics.EntriesFailed.Inc()
	log.Error().Err(err).Str("status", string(domain.StatusFailed)).Msg("entry failed")
}

// tick refreshes every open position and closes those the exit policy releases.
func (e *Engine) tick(ctx context.Context) {
	now := e.now()
	e.metrics.LastMonitorTick.Set(float64(now.Unix()))

	e.mu.Lock()
	open := e.positions.Snapshot()
	e.gate.Observe(e.bookLocked(), now)
	e.mu.Unlock()

	for _, snap := range open {
		if ctx.Err() != nil {
			return
		}
		mint := snap.Token.Mint

		price, err := e.opts.Oracle.CurrentPrice(ctx, snap.Token)
		if err != nil {
			if ctx.Err() == nil {
				e.log.Warn().Err(fmt.Errorf("%w: price: %w", ErrTransport, err)).Str("mint", mint).Msg("price refresh failed")
			}
			continue
		}

		e.mu.Lock()
		pos, ok := e.positions.Get(mint)
		if !ok {
			e.mu.Unlock()
			continue
		}
		pos.UpdatePrice(price, now)
		e.exit.UpdateRisk(pos)
		decision := e.exit.Evaluate(*pos, now)
		e.mu.Unlock()

		if !decision.Exit {
			continue
		}
		if err := e.closePosition(ctx, mint, decision); err != nil {
			e.log.Warn().Err(err).Str("mint", mint).Msg("exit failed, retrying next tick")
		}
	}

	e.mu.Lock()
	e.syncCapitalLocked()
	e.mu.Unlock()
}

// closePosition sells the position for mint and records the closed trade.
// On a failed sell the position stays Holding; the next tick evaluates it afresh.
func (e *Engine) closePosition(ctx context.Context, mint string, d risk.ExitDecision) error {
	e.mu.Lock()
	pos, ok := e.positions.Get(mint)
	if !ok {
		e.mu.Unlock()
		return nil
	}
	selling := *pos
	e.mu.Unlock()

	start := time.Now()
	fill, err := e.opts.Gateway.Sell(ctx, selling)
	e.metrics.ObserveOrder("sell", time.Since(start))
	if err != nil {
		e.mu.Lock()
		pos.ExitAttempts++
		attempts := pos.ExitAttempts
		e.mu.Unlock()
		e.metrics.ExitFailures.Inc()
		return fmt.Errorf("%w: sell %s (%s, attempt %d): %w", ErrExecution, selling.Token.ShortMint(), d.Reason, attempts, err)
	}

	trade, err := e.settle(mint, d, fill.Price, fill.Signature, fill.At)
	if err != nil {
		return err
	}

	e.metrics.ExitsTotal.WithLabelValues(trade.ExitReason).Inc()
	e.metrics.TradesClosed.WithLabelValues(string(trade.Outcome)).Inc()
	e.log.Info().
		Str("mint", trade.Mint).
		Str("symbol", trade.Symbol).
		Str("reason", trade.ExitReason).
		Str("detail", trade.ExitDetail).
		Float64("exit_price", trade.ExitPrice).
		Float64("pnl_sol", trade.PnLSOL).
		Float64("pnl_pct", trade.PnLPercent).
		Float64("fees_sol", trade.FeesPaidSOL).
		Float64("hold_s", trade.HoldSeconds).
		Str("outcome", string(trade.Outcome)).
		Str("signature", trade.ExitSignature).
		Msg("position closed")

	if err := e.opts.Trades.Append(ctx, &trade); err != nil {
		e.persistFailed("append_trade", err)
	}
	e.saveSnapshot(ctx)
	return nil
}

// settle removes the sold position, credits net proceeds and records the trade.
func (e *Engine) settle(mint string, d risk.ExitDecision, price float64, signature string, at time.Time) (domain.ClosedTrade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if at.IsZero() {
		at = e.now()
	}
	pos, ok := e.positions.Get(mint)
	if !ok {
		return domain.ClosedTrade{}, fmt.Errorf("%w: position %s vanished during exit", ErrValidation, mint)
	}
	for _, next := range []domain.Status{domain.StatusClosing, domain.StatusClosed} {
		if err := pos.Advance(next); err != nil {
			return domain.ClosedTrade{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	e.positions.Remove(mint)
	if price <= 0 {
		price = pos.CurrentPrice
	}

	s := e.fees.Settle(pos.EntrySOL, pos.EntryTokens, price)
	if err := e.ledger.Credit(s.NetExit); err != nil {
		return domain.ClosedTrade{}, fmt.Errorf("%w: credit: %w", ErrValidation, err)
	}

	trade := domain.ClosedTrade{
		TradeID:        tradeID(pos),
		Mint:           pos.Token.Mint,
		Symbol:         pos.Token.Symbol,
		Name:           pos.Token.Name,
		Creator:        pos.Token.Creator,
		EntryTime:      pos.EntryTime,
		EntryPrice:     pos.EntryPrice,
		EntrySOL:       pos.EntrySOL,
		EntryTokens:    pos.EntryTokens,
		EntrySignature: pos.EntrySignature,
		ExitTime:       at,
		ExitPrice:      price,
		ExitSOL:        s.NetExit,
		ExitSignature:  signature,
		ExitReason:     d.Reason,
		ExitDetail:     d.Detail,
		EntryFeeSOL:    s.EntryFeeSOL,
		ExitFeeSOL:     s.ExitFeeSOL,
		FeesPaidSOL:    s.EntryFeeSOL + s.ExitFeeSOL,
		PnLSOL:         s.PnLSOL,
		PnLPercent:     s.PnLPercent,
		Outcome:        domain.ClassifyOutcome(s.PnLSOL),
		HoldSeconds:    at.Sub(pos.EntryTime).Seconds(),
		HighestPrice:   pos.HighestPrice,
	}
	if price > trade.HighestPrice {
		trade.HighestPrice = price
	}

	e.tracker.Record(trade)
	e.syncCapitalLocked()
	return trade, nil
}
