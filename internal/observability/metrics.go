// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric when no namespace is given.
const DefaultNamespace = "pump_trader"

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	// Discovery metrics
	CandidatesReceived  *prometheus.CounterVec
	CandidatesDuplicate prometheus.Counter
	CandidatesSkipped   *prometheus.CounterVec
	EntryScore          prometheus.Histogram
	SampleDuration      prometheus.Histogram

	// Execution metrics
	EntriesFilled  prometheus.Counter
	EntriesFailed  prometheus.Counter
	ExitsTotal     *prometheus.CounterVec
	ExitFailures   prometheus.Counter
	OrderLatency   *prometheus.HistogramVec
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Portfolio metrics
	TradesClosed     *prometheus.CounterVec
	OpenPositions    prometheus.Gauge
	AvailableCapital prometheus.Gauge
	BookCapital      prometheus.Gauge
	RealizedPnL      prometheus.Gauge
	DailyLossPercent prometheus.Gauge
	DrawdownPercent  prometheus.Gauge

	// Persistence metrics
	PersistenceErrors *prometheus.CounterVec

	// Health metrics
	LastMonitorTick prometheus.Gauge
	LastCandidate   prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg registers nothing, which keeps tests independent of each other.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)

	return &Metrics{
		CandidatesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_total",
			Help:      "Launch candidates received from the feed",
		}, []string{"source"}),
		CandidatesDuplicate: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "duplicates_total",
			Help:      "Candidates dropped as already seen",
		}),
		CandidatesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "skipped_total",
			Help:      "Candidates rejected before entry",
		}, []string{"reason"}),
		EntryScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "entry_score",
			Help:      "Distribution of candidate scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		SampleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "sample_duration_seconds",
			Help:      "Time spent observing a candidate before scoring",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 30},
		}),

		EntriesFilled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "entries_filled_total",
			Help:      "Buy orders filled",
		}),
		EntriesFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "entries_failed_total",
			Help:      "Buy orders that failed",
		}),
		ExitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "exits_total",
			Help:      "Sell orders filled by exit reason",
		}, []string{"reason"}),
		ExitFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "exit_failures_total",
			Help:      "Sell orders that failed and will be retried",
		}),
		OrderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "order_latency_seconds",
			Help:      "Order round-trip latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"side"}),
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "RPC calls that returned an error",
		}, []string{"method"}),

		TradesClosed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "trades_closed_total",
			Help:      "Closed trades by outcome",
		}, []string{"outcome"}),
		OpenPositions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "open_positions",
			Help:      "Positions currently held",
		}),
		AvailableCapital: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "available_capital_sol",
			Help:      "Uncommitted capital in SOL",
		}),
		BookCapital: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "book_capital_sol",
			Help:      "Available capital plus entry cost of open positions",
		}),
		RealizedPnL: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "realized_pnl_sol",
			Help:      "Net realized profit and loss in SOL",
		}),
		DailyLossPercent: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "daily_loss_percent",
			Help:      "Loss against the start-of-day baseline",
		}),
		DrawdownPercent: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "max_drawdown_percent",
			Help:      "Maximum drawdown from peak capital",
		}),

		PersistenceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Failed persistence operations",
		}, []string{"operation"}),

		LastMonitorTick: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_monitor_tick_timestamp",
			Help:      "Unix timestamp of the last monitor tick",
		}),
		LastCandidate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_candidate_timestamp",
			Help:      "Unix timestamp of the last candidate received",
		}),
	}
}

// ObserveRPC records one RPC call. Its signature matches solana.WithObserver.
func (m *Metrics) ObserveRPC(method string, d time.Duration, err error) {
	m.RPCCallLatency.WithLabelValues(method).Observe(d.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// ObserveOrder records an order round-trip.
func (m *Metrics) ObserveOrder(side string, d time.Duration) {
	m.OrderLatency.WithLabelValues(side).Observe(d.Seconds())
}

// PortfolioState is the capital view pushed to the portfolio gauges.
type PortfolioState struct {
	OpenPositions    int
	Available        float64
	Book             float64
	RealizedPnL      float64
	DailyLossPercent float64
	DrawdownPercent  float64
}

// SetPortfolio updates the portfolio gauges in one call.
func (m *Metrics) SetPortfolio(s PortfolioState) {
	m.OpenPositions.Set(float64(s.OpenPositions))
	m.AvailableCapital.Set(s.Available)
	m.BookCapital.Set(s.Book)
	m.RealizedPnL.Set(s.RealizedPnL)
	m.DailyLossPercent.Set(s.DailyLossPercent)
	m.DrawdownPercent.Set(s.DrawdownPercent)
}

// Handler returns an HTTP handler serving the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
