// Package events streams trade lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"pump-trader/internal/domain"
	"pump-trader/internal/storage"
)

// Event types.
const (
	TypePositionOpened = "position_opened"
	TypeTradeClosed    = "trade_closed"
)

// Envelope is the JSON value of every message.
type Envelope struct {
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Mode string          `json:"mode"`
	Data json.RawMessage `json:"data"`
}

// PositionOpened is the payload of a position_opened event.
type PositionOpened struct {
	Mint           string    `json:"mint"`
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name"`
	EntryTime      time.Time `json:"entry_time"`
	EntryPrice     float64   `json:"entry_price"`
	EntrySOL       float64   `json:"entry_sol"`
	EntryTokens    float64   `json:"entry_tokens"`
	EntrySignature string    `json:"entry_signature"`
	Score          int       `json:"score"`
}

// TradeClosed is the payload of a trade_closed event.
type TradeClosed struct {
	TradeID       string    `json:"trade_id"`
	Mint          string    `json:"mint"`
	Symbol        string    `json:"symbol"`
	EntryTime     time.Time `json:"entry_time"`
	ExitTime      time.Time `json:"exit_time"`
	EntryPrice    float64   `json:"entry_price"`
	ExitPrice     float64   `json:"exit_price"`
	EntrySOL      float64   `json:"entry_sol"`
	ExitSOL       float64   `json:"exit_sol"`
	PnLSOL        float64   `json:"pnl_sol"`
	PnLPercent    float64   `json:"pnl_percent"`
	FeesPaidSOL   float64   `json:"fees_paid_sol"`
	Outcome       string    `json:"outcome"`
	ExitReason    string    `json:"exit_reason"`
	HoldSeconds   float64   `json:"hold_seconds"`
	ExitSignature string    `json:"exit_signature"`
}

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configures the Kafka writer.
type Config struct {
	Brokers []string
	Topic   string
}

// NewWriter builds a synchronous writer that waits for the leader ack.
func NewWriter(cfg Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    1,
	}
}

// Publisher emits trade events keyed by mint so one token's events stay ordered.
type Publisher struct {
	w    MessageWriter
	mode string
	now  func() time.Time
}

// NewPublisher creates a publisher tagging events with the trading mode.
func NewPublisher(w MessageWriter, mode string) *Publisher {
	return &Publisher{w: w, mode: mode, now: time.Now}
}

// PublishOpened emits a position_opened event.
func (p *Publisher) PublishOpened(ctx context.Context, pos domain.Position, score int) error {
	return p.publish(ctx, TypePositionOpened, pos.Token.Mint, PositionOpened{
		Mint:           pos.Token.Mint,
		Symbol:         pos.Token.Symbol,
		Name:           pos.Token.Name,
		EntryTime:      pos.EntryTime,
		EntryPrice:     pos.EntryPrice,
		EntrySOL:       pos.EntrySOL,
		EntryTokens:    pos.EntryTokens,
		EntrySignature: pos.EntrySignature,
		Score:          score,
	})
}

// Append emits a trade_closed event. It lets the publisher sit in a storage.MultiSink.
func (p *Publisher) Append(ctx context.Context, t *domain.ClosedTrade) error {
	if err := storage.ValidateTrade(t); err != nil {
		return err
	}
	return p.publish(ctx, TypeTradeClosed, t.Mint, TradeClosed{
		TradeID:       t.TradeID,
		Mint:          t.Mint,
		Symbol:        t.Symbol,
		EntryTime:     t.EntryTime,
		ExitTime:      t.ExitTime,
		EntryPrice:    t.EntryPrice,
		ExitPrice:     t.ExitPrice,
		EntrySOL:      t.EntrySOL,
		ExitSOL:       t.ExitSOL,
		PnLSOL:        t.PnLSOL,
		PnLPercent:    t.PnLPercent,
		FeesPaidSOL:   t.FeesPaidSOL,
		Outcome:       string(t.Outcome),
		ExitReason:    t.ExitReason,
		HoldSeconds:   t.HoldSeconds,
		ExitSignature: t.ExitSignature,
	})
}

// Close closes the underlying writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

func (p *Publisher) publish(ctx context.Context, typ, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", typ, err)
	}
	value, err := json.Marshal(Envelope{Type: typ, At: p.now().UTC(), Mode: p.mode, Data: data})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: "type", Value: []byte(typ)}},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s %s: %w", typ, key, err)
	}
	return nil
}

var _ storage.TradeSink = (*Publisher)(nil)
