// Package api serves the engine's status, positions and trade log over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"pump-trader/internal/domain"
	"pump-trader/internal/engine"
	"pump-trader/internal/metrics"
	"pump-trader/internal/observability"
	"pump-trader/internal/storage"
)

// StatusSource is the read side of the engine.
type StatusSource interface {
	Status() engine.Status
}

// Options configures a Server.
type Options struct {
	Addr     string
	Engine   StatusSource
	Trades   storage.TradeStore  // nil disables /api/trades
	Gatherer prometheus.Gatherer // nil disables /metrics
	Logger   zerolog.Logger
}

// Server is the status HTTP server.
type Server struct {
	opts   Options
	log    zerolog.Logger
	router *gin.Engine
	http   *http.Server
}

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TradeView is a closed trade as served by /api/trades.
type TradeView struct {
	TradeID        string    `json:"trade_id"`
	Mint           string    `json:"mint"`
	Symbol         string    `json:"symbol"`
	EntryTime      time.Time `json:"entry_time"`
	EntryPrice     float64   `json:"entry_price"`
	EntrySOL       float64   `json:"entry_sol"`
	EntrySignature string    `json:"entry_signature"`
	ExitTime       time.Time `json:"exit_time"`
	ExitPrice      float64   `json:"exit_price"`
	ExitSOL        float64   `json:"exit_sol"`
	ExitSignature  string    `json:"exit_signature"`
	ExitReason     string    `json:"exit_reason"`
	FeesPaidSOL    float64   `json:"fees_paid_sol"`
	PnLSOL         float64   `json:"pnl_sol"`
	PnLPercent     float64   `json:"pnl_percent"`
	Outcome        string    `json:"outcome"`
	HoldSeconds    float64   `json:"hold_seconds"`
}

// TradesResponse is the /api/trades payload.
type TradesResponse struct {
	Trades  []TradeView     `json:"trades"`
	Total   int             `json:"total"`
	Summary metrics.Summary `json:"summary"`
}

// New builds the router. Nothing listens until Run.
func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	log := opts.Logger.With().Str("component", "api").Logger()

	router := gin.New()
	router.Use(recovery(log))
	router.Use(requestID())
	router.Use(requestLogger(log))

	s := &Server{opts: opts, log: log, router: router}

	router.GET("/health", s.health)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(observability.Handler(opts.Gatherer)))
	}
	g := router.Group("/api")
	{
		g.GET("/status", s.status)
		g.GET("/positions", s.positions)
		g.GET("/trades", s.trades)
	}

	s.http = &http.Server{
		Addr:         opts.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.opts.Addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(sctx)
}

func (s *Server) health(c *gin.Context) {
	st := s.opts.Engine.Status()
	code := http.StatusOK
	state := "healthy"
	if !st.Running {
		code = http.StatusServiceUnavailable
		state = "stopped"
	}
	c.JSON(code, gin.H{
		"status":         state,
		"mode":           st.Mode,
		"open_positions": len(st.Positions),
		"uptime_seconds": uptime(st),
	})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: s.opts.Engine.Status()})
}

func (s *Server) positions(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: s.opts.Engine.Status().Positions})
}

// trades serves the most recent trades, newest first, with a summary over the whole log.
// ?limit=N caps the list (default 100).
func (s *Server) trades(c *gin.Context) {
	if s.opts.Trades == nil {
		c.JSON(http.StatusNotFound, Response{Error: "trade log not available"})
		return
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, Response{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	list, err := s.opts.Trades.List(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list trades")
		c.JSON(http.StatusInternalServerError, Response{Error: "internal server error"})
		return
	}

	all := make([]domain.ClosedTrade, len(list))
	for i, t := range list {
		all[i] = *t
	}
	resp := TradesResponse{
		Trades:  []TradeView{},
		Total:   len(all),
		Summary: metrics.Summarize(all),
	}
	for i := len(list) - 1; i >= 0 && len(resp.Trades) < limit; i-- {
		resp.Trades = append(resp.Trades, tradeView(list[i]))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: resp})
}

func tradeView(t *domain.ClosedTrade) TradeView {
	return TradeView{
		TradeID:        t.TradeID,
		Mint:           t.Mint,
		Symbol:         t.Symbol,
		EntryTime:      t.EntryTime,
		EntryPrice:     t.EntryPrice,
		EntrySOL:       t.EntrySOL,
		EntrySignature: t.EntrySignature,
		ExitTime:       t.ExitTime,
		ExitPrice:      t.ExitPrice,
		ExitSOL:        t.ExitSOL,
		ExitSignature:  t.ExitSignature,
		ExitReason:     t.ExitReason,
		FeesPaidSOL:    t.FeesPaidSOL,
		PnLSOL:         t.PnLSOL,
		PnLPercent:     t.PnLPercent,
		Outcome:        string(t.Outcome),
		HoldSeconds:    t.HoldSeconds,
	}
}

func uptime(st engine.Status) float64 {
	if st.StartedAt.IsZero() {
		return 0
	}
	return st.At.Sub(st.StartedAt).Seconds()
}
