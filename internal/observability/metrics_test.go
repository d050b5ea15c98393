package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestMetrics_RegisteredUnderNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("", reg)

	m.CandidatesReceived.WithLabelValues("ws").Inc()
	m.CandidatesSkipped.WithLabelValues("score").Add(2)
	m.TradesClosed.WithLabelValues("PROFIT").Inc()

	assert.Equal(t, 1.0, gatherValue(t, reg, "pump_trader_discovery_candidates_total", map[string]string{"source": "ws"}))
	assert.Equal(t, 2.0, gatherValue(t, reg, "pump_trader_discovery_skipped_total", map[string]string{"reason": "score"}))
	assert.Equal(t, 1.0, gatherValue(t, reg, "pump_trader_portfolio_trades_closed_total", map[string]string{"outcome": "PROFIT"}))
}

func TestMetrics_ObserveRPC(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.ObserveRPC("getBalance", 20*time.Millisecond, nil)
	m.ObserveRPC("getBalance", 30*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, gatherValue(t, reg, "test_solana_rpc_call_latency_seconds", map[string]string{"method": "getBalance"}))
	assert.Equal(t, 1.0, gatherValue(t, reg, "test_solana_rpc_call_errors_total", map[string]string{"method": "getBalance"}))
}

func TestMetrics_SetPortfolio(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.SetPortfolio(PortfolioState{
		OpenPositions:    2,
		Available:        1.5,
		Book:             2.1,
		RealizedPnL:      0.1,
		DailyLossPercent: 3,
		DrawdownPercent:  4.5,
	})

	assert.Equal(t, 2.0, gatherValue(t, reg, "test_portfolio_open_positions", nil))
	assert.Equal(t, 1.5, gatherValue(t, reg, "test_portfolio_available_capital_sol", nil))
	assert.Equal(t, 4.5, gatherValue(t, reg, "test_portfolio_max_drawdown_percent", nil))
}

func TestMetrics_NilRegistererIsolated(t *testing.T) {
	// Two instances with the same namespace must not collide.
	a := NewMetrics("dup", nil)
	b := NewMetrics("dup", nil)
	a.EntriesFilled.Inc()
	b.EntriesFilled.Inc()
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.EntriesFilled.Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(string(body), "test_execution_entries_filled_total 1"))
}
