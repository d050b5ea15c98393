package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pump-trader/internal/domain"
	"pump-trader/internal/market"
	"pump-trader/internal/solana"
)

// ErrOrderRejected is returned when the trade API refuses an order.
var ErrOrderRejected = errors.New("order rejected")

// PortalConfig configures PortalGateway.
type PortalConfig struct {
	Endpoint        string // trade API URL
	APIKey          string
	SlippagePercent float64
	PriorityFeeSOL  float64
	Pool            string
	Timeout         time.Duration
}

// DefaultPortalConfig returns the default trade API settings.
func DefaultPortalConfig() PortalConfig {
	return PortalConfig{
		Endpoint:        "https://pumpportal.fun/api/trade",
		SlippagePercent: 10,
		PriorityFeeSOL:  0.00005,
		Pool:            "pump",
		Timeout:         15 * time.Second,
	}
}

// PortalGateway places orders through an HTTP trade API that signs with the
// provider-held wallet. Orders are sent once; the engine decides about retries.
type PortalGateway struct {
	cfg    PortalConfig
	client *http.Client
	oracle market.PriceOracle
	now    func() time.Time
	log    zerolog.Logger
}

// NewPortalGateway creates a gateway. oracle prices the fill after the order lands.
func NewPortalGateway(cfg PortalConfig, oracle market.PriceOracle, log zerolog.Logger) (*PortalGateway, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("portal gateway: endpoint required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("portal gateway: api key required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPortalConfig().Timeout
	}
	return &PortalGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		oracle: oracle,
		now:    time.Now,
		log:    log.With().Str("component", "portal").Logger(),
	}, nil
}

type tradeRequest struct {
	Action           string          `json:"action"`
	Mint             string          `json:"mint"`
	Amount           decimal.Decimal `json:"amount"`
	DenominatedInSol string          `json:"denominatedInSol"`
	Slippage         float64         `json:"slippage"`
	PriorityFee      decimal.Decimal `json:"priorityFee"`
	Pool             string          `json:"pool"`
}

type tradeResponse struct {
	Signature string   `json:"signature"`
	Errors    []string `json:"errors"`
}

// Buy spends sol on c.
func (g *PortalGateway) Buy(ctx context.Context, c domain.TokenCandidate, sol float64) (market.Fill, error) {
	if sol <= 0 {
		return market.Fill{}, fmt.Errorf("buy %s: non-positive size %g", c.ShortMint(), sol)
	}
	sig, err := g.trade(ctx, tradeRequest{
		Action:           "buy",
		Mint:             c.Mint,
		Amount:           solana.LamportsToSOL(solana.SOLToLamports(sol)),
		DenominatedInSol: "true",
	})
	if err != nil {
		return market.Fill{}, fmt.Errorf("buy %s: %w", c.ShortMint(), err)
	}
	return market.Fill{Signature: sig, Price: g.fillPrice(ctx, c, c.InitialPrice), At: g.now()}, nil
}

// Sell sells the position's whole token amount.
func (g *PortalGateway) Sell(ctx context.Context, p domain.Position) (market.Fill, error) {
	if p.EntryTokens <= 0 {
		return market.Fill{}, fmt.Errorf("sell %s: no tokens", p.Token.ShortMint())
	}
	sig, err := g.trade(ctx, tradeRequest{
		Action:           "sell",
		Mint:             p.Token.Mint,
		Amount:           decimal.NewFromFloat(p.EntryTokens).Truncate(solana.TokenDecimals),
		DenominatedInSol: "false",
	})
	if err != nil {
		return market.Fill{}, fmt.Errorf("sell %s: %w", p.Token.ShortMint(), err)
	}
	return market.Fill{Signature: sig, Price: g.fillPrice(ctx, p.Token, p.CurrentPrice), At: g.now()}, nil
}

// fillPrice reads the curve after the order; the API does not report the execution price.
func (g *PortalGateway) fillPrice(ctx context.Context, c domain.TokenCandidate, fallback float64) float64 {
	if g.oracle == nil {
		return fallback
	}
	price, err := g.oracle.CurrentPrice(ctx, c)
	if err != nil || price <= 0 {
		g.log.Warn().Err(err).Str("mint", c.ShortMint()).Float64("fallback", fallback).Msg("fill price unavailable")
		return fallback
	}
	return price
}

func (g *PortalGateway) trade(ctx context.Context, req tradeRequest) (string, error) {
	req.Slippage = g.cfg.SlippagePercent
	req.PriorityFee = decimal.NewFromFloat(g.cfg.PriorityFeeSOL)
	req.Pool = g.cfg.Pool

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	q := httpReq.URL.Query()
	q.Set("api-key", g.cfg.APIKey)
	httpReq.URL.RawQuery = q.Encode()

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send order: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", solana.ErrRateLimited
	}

	var out tradeResponse
	if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Errors) > 0 {
		return "", fmt.Errorf("%w: %v", ErrOrderRejected, out.Errors)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: http %d: %s", ErrOrderRejected, resp.StatusCode, bytes.TrimSpace(raw))
	}
	if out.Signature == "" {
		return "", fmt.Errorf("%w: empty signature", ErrOrderRejected)
	}

	g.log.Info().
		Str("action", req.Action).
		Str("mint", req.Mint).
		Str("amount", req.Amount.String()).
		Str("signature", out.Signature).
		Dur("latency", time.Since(start)).
		Msg("order sent")
	return out.Signature, nil
}

var _ market.ExecutionGateway = (*PortalGateway)(nil)
