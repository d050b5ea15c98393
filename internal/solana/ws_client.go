package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var errClientClosed = errors.New("websocket client closed")

// WSConfig configures WSClientImpl.
type WSConfig struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	SubscribeTimeout  time.Duration
	Commitment        string
	BufferSize        int // per-subscription channel buffer
}

// DefaultWSConfig returns the default WebSocket settings.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		Commitment:        DefaultCommitment,
		BufferSize:        1024,
	}
}

// subscription outlives reconnects; its server-side id changes on each resubscribe.
type subscription struct {
	filter LogsFilter
	ch     chan LogNotification
}

type pendingSub struct {
	sub     *subscription
	confirm chan int64 // nil for resubscribes
}

// WSClientImpl implements WSClient using gorilla/websocket.
// The read loop reconnects with capped exponential backoff and resubscribes every filter.
type WSClientImpl struct {
	endpoint string
	cfg      WSConfig
	log      zerolog.Logger

	writeMu sync.Mutex // serializes writes on conn
	connMu  sync.RWMutex
	conn    *websocket.Conn

	mu      sync.Mutex
	pending map[uint64]*pendingSub
	active  map[int64]*subscription // by server subscription id
	all     []*subscription

	requestID atomic.Uint64
	closed    atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewWSClient dials endpoint and starts the read and ping loops.
func NewWSClient(ctx context.Context, endpoint string, cfg *WSConfig, log zerolog.Logger) (*WSClientImpl, error) {
	c := &WSClientImpl{
		endpoint: endpoint,
		cfg:      DefaultWSConfig(),
		log:      log.With().Str("component", "ws").Logger(),
		pending:  make(map[uint64]*pendingSub),
		active:   make(map[int64]*subscription),
		done:     make(chan struct{}),
	}
	if cfg != nil {
		c.cfg = *cfg
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

func (c *WSClientImpl) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// SubscribeLogs registers filter and waits for the server to confirm it.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	if c.closed.Load() {
		return nil, errClientClosed
	}

	sub := &subscription{filter: filter, ch: make(chan LogNotification, c.cfg.BufferSize)}
	confirm := make(chan int64, 1)

	reqID, err := c.sendSubscribe(sub, confirm)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.cfg.SubscribeTimeout)
	defer timer.Stop()

	select {
	case _, ok := <-confirm:
		if !ok {
			return nil, errClientClosed
		}
	case <-timer.C:
		c.dropPending(reqID)
		return nil, fmt.Errorf("logsSubscribe not confirmed after %s", c.cfg.SubscribeTimeout)
	case <-ctx.Done():
		c.dropPending(reqID)
		return nil, ctx.Err()
	}

	c.mu.Lock()
	c.all = append(c.all, sub)
	c.mu.Unlock()
	return sub.ch, nil
}

func (c *WSClientImpl) sendSubscribe(sub *subscription, confirm chan int64) (uint64, error) {
	reqID := c.requestID.Add(1)

	mentions := map[string]interface{}{"all": nil}
	if len(sub.filter.Mentions) > 0 {
		mentions = map[string]interface{}{"mentions": sub.filter.Mentions}
	}
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params:  []interface{}{mentions, map[string]string{"commitment": c.cfg.Commitment}},
	}

	c.mu.Lock()
	c.pending[reqID] = &pendingSub{sub: sub, confirm: confirm}
	c.mu.Unlock()

	if err := c.writeJSON(req); err != nil {
		c.dropPending(reqID)
		return 0, fmt.Errorf("write logsSubscribe: %w", err)
	}
	return reqID, nil
}

func (c *WSClientImpl) dropPending(reqID uint64) {
	c.mu.Lock()
	delete(c.pending, reqID)
	c.mu.Unlock()
}

func (c *WSClientImpl) writeJSON(v interface{}) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteJSON(v)
}

// Close stops the loops and closes every subscription channel. Safe to call more than once.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.writeMu.Lock()
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, p := range c.pending {
		if p.confirm != nil {
			close(p.confirm)
		}
		delete(c.pending, id)
	}
	for _, s := range c.all {
		close(s.ch)
	}
	c.all = nil
	c.active = make(map[int64]*subscription)
	return nil
}

func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()
	delay := c.cfg.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()

		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err == nil {
			delay = c.cfg.ReconnectDelay
			c.handleMessage(msg)
			continue
		}
		if c.closed.Load() {
			return
		}

		c.log.Warn().Err(err).Dur("retry_in", delay).Msg("websocket read failed, reconnecting")
		if !c.reconnect(delay) {
			return
		}
		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

// reconnect waits delay, redials, and resubscribes every registered filter.
// Returns false if the client was closed meanwhile.
func (c *WSClientImpl) reconnect(delay time.Duration) bool {
	select {
	case <-c.done:
		return false
	case <-time.After(delay):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	conn, err := c.dial(ctx)
	cancel()
	if err != nil {
		c.log.Warn().Err(err).Msg("websocket redial failed")
		return !c.closed.Load()
	}

	c.connMu.Lock()
	if c.closed.Load() {
		c.connMu.Unlock()
		conn.Close()
		return false
	}
	old := c.conn
	c.conn = conn
	c.connMu.Unlock()
	old.Close()

	c.mu.Lock()
	subs := append([]*subscription(nil), c.all...)
	c.active = make(map[int64]*subscription)
	c.mu.Unlock()

	for _, s := range subs {
		if _, err := c.sendSubscribe(s, nil); err != nil {
			c.log.Warn().Err(err).Msg("resubscribe failed")
		}
	}
	c.log.Info().Int("subscriptions", len(subs)).Msg("websocket reconnected")
	return true
}

func (c *WSClientImpl) handleMessage(msg []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		c.log.Debug().Err(err).Msg("unparseable websocket message")
		return
	}

	switch {
	case env.Method == "logsNotification" && env.Params != nil:
		c.dispatch(env.Params)
	case env.Error != nil:
		c.log.Warn().Uint64("id", env.ID).Int("code", env.Error.Code).Str("message", env.Error.Message).Msg("websocket error response")
		c.dropPending(env.ID)
	case env.ID != 0 && len(env.Result) > 0:
		var subID int64
		if err := json.Unmarshal(env.Result, &subID); err != nil {
			return // unsubscribe acks carry a bool
		}
		c.confirm(env.ID, subID)
	}
}

func (c *WSClientImpl) confirm(reqID uint64, subID int64) {
	c.mu.Lock()
	p, ok := c.pending[reqID]
	if ok {
		delete(c.pending, reqID)
		c.active[subID] = p.sub
	}
	c.mu.Unlock()

	if ok && p.confirm != nil {
		p.confirm <- subID
	}
}

func (c *WSClientImpl) dispatch(params *wsNotificationParams) {
	c.mu.Lock()
	sub, ok := c.active[params.Subscription]
	c.mu.Unlock()
	if !ok {
		return
	}

	n := LogNotification{
		Signature: params.Result.Value.Signature,
		Logs:      params.Result.Value.Logs,
		Err:       params.Result.Value.Err,
	}
	if params.Result.Context != nil {
		n.Slot = params.Result.Context.Slot
	}

	// blocks the read loop rather than dropping a launch
	select {
	case sub.ch <- n:
	case <-c.done:
	}
}

func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()

			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.log.Debug().Err(err).Msg("ping failed")
			}
		}
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// wsEnvelope covers responses, errors and notifications.
type wsEnvelope struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      uint64                `json:"id"`
	Result  json.RawMessage       `json:"result"`
	Error   *RPCError             `json:"error"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64 `json:"subscription"`
	Result       struct {
		Context *struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Signature string      `json:"signature"`
			Logs      []string    `json:"logs"`
			Err       interface{} `json:"err"`
		} `json:"value"`
	} `json:"result"`
}
