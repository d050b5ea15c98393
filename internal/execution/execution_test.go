package execution

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-trader/internal/domain"
	"pump-trader/internal/solana"
)

type fixedOracle struct {
	price float64
	err   error
}

func (o fixedOracle) CurrentPrice(context.Context, domain.TokenCandidate) (float64, error) {
	return o.price, o.err
}

func candidate() domain.TokenCandidate {
	return domain.TokenCandidate{Mint: "MintAAAAAAAAAAAA", Signature: "sig", BondingCurve: "curve", InitialPrice: 2.8e-8}
}

func TestPaperGateway(t *testing.T) {
	g := NewPaperGateway(fixedOracle{price: 3e-8})

	buy, err := g.Buy(context.Background(), candidate(), 0.1)
	require.NoError(t, err)
	assert.Equal(t, 3e-8, buy.Price)
	assert.True(t, strings.HasPrefix(buy.Signature, "paper-buy-"))
	assert.False(t, buy.At.IsZero())

	p, err := domain.NewPosition(candidate(), buy.Price, 0.1, buy.Signature, buy.At)
	require.NoError(t, err)
	sell, err := g.Sell(context.Background(), *p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sell.Signature, "paper-sell-"))
	assert.NotEqual(t, buy.Signature, sell.Signature)
}

func TestPaperGateway_Errors(t *testing.T) {
	_, err := NewPaperGateway(fixedOracle{price: 1}).Buy(context.Background(), candidate(), 0)
	assert.Error(t, err)

	quoteErr := errors.New("no curve")
	_, err = NewPaperGateway(fixedOracle{err: quoteErr}).Buy(context.Background(), candidate(), 0.1)
	assert.ErrorIs(t, err, quoteErr)

	_, err = NewPaperGateway(fixedOracle{price: 0}).Buy(context.Background(), candidate(), 0.1)
	assert.Error(t, err)

	_, err = NewPaperGateway(fixedOracle{price: 1}).Sell(context.Background(), domain.Position{Token: candidate()})
	assert.Error(t, err)
}

type portalServer struct {
	mu       sync.Mutex
	requests []map[string]interface{}
	apiKeys  []string
	status   int
	body     string
}

func (s *portalServer) handler(w http.ResponseWriter, r *http.Request) {
	var req map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.apiKeys = append(s.apiKeys, r.URL.Query().Get("api-key"))
	status, body := s.status, s.body
	s.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newPortal(t *testing.T, s *portalServer, oracle fixedOracle) *PortalGateway {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(s.handler))
	t.Cleanup(srv.Close)

	cfg := DefaultPortalConfig()
	cfg.Endpoint = srv.URL
	cfg.APIKey = "secret"
	g, err := NewPortalGateway(cfg, oracle, zerolog.Nop())
	require.NoError(t, err)
	return g
}

func TestPortalGateway_Buy(t *testing.T) {
	s := &portalServer{body: `{"signature":"5xSig","errors":[]}`}
	g := newPortal(t, s, fixedOracle{price: 3.1e-8})

	fill, err := g.Buy(context.Background(), candidate(), 0.25)
	require.NoError(t, err)
	assert.Equal(t, "5xSig", fill.Signature)
	assert.Equal(t, 3.1e-8, fill.Price)

	require.Len(t, s.requests, 1)
	req := s.requests[0]
	assert.Equal(t, "buy", req["action"])
	assert.Equal(t, "MintAAAAAAAAAAAA", req["mint"])
	assert.Equal(t, "0.25", req["amount"])
	assert.Equal(t, "true", req["denominatedInSol"])
	assert.Equal(t, "pump", req["pool"])
	assert.Equal(t, float64(10), req["slippage"])
	assert.Equal(t, "secret", s.apiKeys[0])
}

func TestPortalGateway_SellUsesTokenAmount(t *testing.T) {
	s := &portalServer{body: `{"signature":"sellSig"}`}
	g := newPortal(t, s, fixedOracle{err: errors.New("curve closed")})

	p, err := domain.NewPosition(candidate(), 2e-8, 0.1, "entry", time.Now())
	require.NoError(t, err)
	p.UpdatePrice(4e-8, time.Now())

	fill, err := g.Sell(context.Background(), *p)
	require.NoError(t, err)
	assert.Equal(t, "sellSig", fill.Signature)
	assert.Equal(t, 4e-8, fill.Price, "falls back to the last observed price")

	req := s.requests[0]
	assert.Equal(t, "sell", req["action"])
	assert.Equal(t, "false", req["denominatedInSol"])
	assert.Equal(t, "5000000", req["amount"])
}

func TestPortalGateway_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"api errors", http.StatusOK, `{"errors":["insufficient balance"]}`, ErrOrderRejected},
		{"http error", http.StatusBadRequest, `bad mint`, ErrOrderRejected},
		{"empty signature", http.StatusOK, `{}`, ErrOrderRejected},
		{"rate limited", http.StatusTooManyRequests, ``, solana.ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &portalServer{status: tt.status, body: tt.body}
			g := newPortal(t, s, fixedOracle{price: 1})
			_, err := g.Buy(context.Background(), candidate(), 0.1)
			assert.ErrorIs(t, err, tt.want)
			assert.Len(t, s.requests, 1, "orders are never retried")
		})
	}
}

func TestNewPortalGateway_RequiresCredentials(t *testing.T) {
	_, err := NewPortalGateway(PortalConfig{Endpoint: "http://x"}, nil, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewPortalGateway(PortalConfig{APIKey: "k"}, nil, zerolog.Nop())
	assert.Error(t, err)
}
