package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pump-trader/internal/domain"
	"pump-trader/internal/solana"
)

// WSFeed streams launches from a logsSubscribe on the pump program.
type WSFeed struct {
	ws       solana.WSClient
	rpc      solana.RPCClient // fetches full logs when a notification was truncated; optional
	detector *Detector
	log      zerolog.Logger
}

// NewWSFeed creates a WSFeed.
func NewWSFeed(ws solana.WSClient, rpc solana.RPCClient, log zerolog.Logger) *WSFeed {
	return &WSFeed{
		ws:       ws,
		rpc:      rpc,
		detector: NewDetector(),
		log:      log.With().Str("component", "ws_feed").Logger(),
	}
}

// Candidates subscribes and forwards every new launch.
func (f *WSFeed) Candidates(ctx context.Context) (<-chan domain.TokenCandidate, error) {
	notifs, err := f.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{solana.PumpProgramID}})
	if err != nil {
		return nil, fmt.Errorf("subscribe pump logs: %w", err)
	}

	out := make(chan domain.TokenCandidate, 64)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-notifs:
				if !ok {
					f.log.Warn().Msg("log subscription closed")
					return
				}
				for _, c := range f.handle(ctx, n) {
					select {
					case out <- c:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

func (f *WSFeed) handle(ctx context.Context, n solana.LogNotification) []domain.TokenCandidate {
	if n.Err != nil || !HasCreateInstruction(n.Logs) {
		return nil
	}

	tx := &solana.Transaction{Signature: n.Signature, Slot: n.Slot}
	logs := n.Logs
	if creates, _ := ParseEvents(logs); len(creates) == 0 && f.rpc != nil {
		full, err := f.rpc.GetTransaction(ctx, n.Signature)
		if err != nil {
			f.log.Warn().Err(err).Str("signature", n.Signature).Msg("fetch launch transaction")
			return nil
		}
		if full == nil || full.Meta == nil {
			return nil
		}
		tx, logs = full, full.Meta.LogMessages
	}
	return f.detector.Detect(tx, logs, domain.SourceStream)
}

// PollConfig configures PollFeed.
type PollConfig struct {
	Interval    time.Duration // between polls
	BackoffBase time.Duration // first rate-limit backoff, doubled per consecutive failure
	MaxBackoff  time.Duration
	Limit       int // signatures per poll
}

// DefaultPollConfig returns the default polling settings.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    2 * time.Second,
		BackoffBase: time.Second,
		MaxBackoff:  60 * time.Second,
		Limit:       50,
	}
}

// PollFeed detects launches by polling the pump program's signature history.
type PollFeed struct {
	rpc      solana.RPCClient
	cfg      PollConfig
	detector *Detector
	log      zerolog.Logger
}

// NewPollFeed creates a PollFeed.
func NewPollFeed(rpc solana.RPCClient, cfg PollConfig, log zerolog.Logger) *PollFeed {
	return &PollFeed{
		rpc:      rpc,
		cfg:      cfg,
		detector: NewDetector(),
		log:      log.With().Str("component", "poll_feed").Logger(),
	}
}

// Backoff returns base * 2^failures, capped at max.
func Backoff(failures int, base, max time.Duration) time.Duration {
	d := base
	for i := 0; i < failures && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return d
}

// Candidates polls until ctx is done. History before the first poll is skipped.
func (f *PollFeed) Candidates(ctx context.Context) (<-chan domain.TokenCandidate, error) {
	out := make(chan domain.TokenCandidate, 64)
	go func() {
		defer close(out)
		var cursor string
		primed := false
		failures := 0

		for {
			wait := f.cfg.Interval
			found, newest, err := f.poll(ctx, cursor, primed)
			switch {
			case ctx.Err() != nil:
				return
			case errors.Is(err, solana.ErrRateLimited):
				failures++
				wait = Backoff(failures, f.cfg.BackoffBase, f.cfg.MaxBackoff)
				f.log.Warn().Int("failures", failures).Dur("backoff", wait).Msg("rate limited")
			case err != nil:
				f.log.Warn().Err(err).Msg("poll failed")
			default:
				failures = 0
				// an empty history leaves nothing to anchor on; stay unprimed
				if newest != "" {
					cursor = newest
					primed = true
				}
				for _, c := range found {
					select {
					case out <- c:
					case <-ctx.Done():
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()
	return out, nil
}

// poll returns launches since cursor (oldest first) and the newest signature seen.
func (f *PollFeed) poll(ctx context.Context, cursor string, primed bool) ([]domain.TokenCandidate, string, error) {
	sigs, err := f.rpc.GetSignaturesForAddress(ctx, solana.PumpProgramID, &solana.SignaturesOpts{Until: cursor, Limit: f.cfg.Limit})
	if err != nil {
		return nil, "", err
	}
	if len(sigs) == 0 {
		return nil, "", nil
	}
	newest := sigs[0].Signature
	if !primed {
		return nil, newest, nil
	}

	var found []domain.TokenCandidate
	for i := len(sigs) - 1; i >= 0; i-- {
		if sigs[i].Err != nil {
			continue
		}
		tx, err := f.rpc.GetTransaction(ctx, sigs[i].Signature)
		if err != nil {
			return found, "", err
		}
		if tx == nil || tx.Meta == nil || !HasCreateInstruction(tx.Meta.LogMessages) {
			continue
		}
		found = append(found, f.detector.Detect(tx, tx.Meta.LogMessages, domain.SourcePoll)...)
	}
	return found, newest, nil
}
