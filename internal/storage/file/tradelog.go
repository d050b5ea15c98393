package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"pump-trader/internal/domain"
	"pump-trader/internal/storage"
)

// csvHeader is the trade log schema. Column order is stable; new columns go at the end.
var csvHeader = []string{
	"timestamp", "trade_id", "mint", "symbol", "name", "creator",
	"entry_time", "entry_price", "entry_sol", "tokens", "entry_signature",
	"exit_time", "exit_price", "exit_sol", "exit_signature", "exit_reason", "exit_detail",
	"pnl_sol", "pnl_percent", "outcome", "hold_seconds",
	"fees_paid_sol", "entry_fee_sol", "exit_fee_sol", "highest_price",
}

// TradeLog appends closed trades to a CSV file, one row per trade.
type TradeLog struct {
	mu   sync.Mutex
	path string
	ids  map[string]struct{} // loaded lazily
}

// NewTradeLog creates a trade log at path. The file and header are created on first append.
func NewTradeLog(path string) *TradeLog {
	return &TradeLog{path: path}
}

// Append writes t as one CSV row. Returns ErrDuplicateKey if t.TradeID is already logged.
func (l *TradeLog) Append(_ context.Context, t *domain.ClosedTrade) error {
	if err := storage.ValidateTrade(t); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadIDs(); err != nil {
		return err
	}
	if _, ok := l.ids[t.TradeID]; ok {
		return storage.ErrDuplicateKey
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create trade log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat trade log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(encodeRow(t)); err != nil {
		return fmt.Errorf("write trade: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush trade log: %w", err)
	}

	l.ids[t.TradeID] = struct{}{}
	return nil
}

// GetByID scans the log for tradeID.
func (l *TradeLog) GetByID(ctx context.Context, tradeID string) (*domain.ClosedTrade, error) {
	trades, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range trades {
		if t.TradeID == tradeID {
			return t, nil
		}
	}
	return nil, storage.ErrNotFound
}

// List reads every trade in the log. A missing file is an empty log.
func (l *TradeLog) List(_ context.Context) ([]*domain.ClosedTrade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	trades, err := l.read()
	if err != nil {
		return nil, err
	}
	storage.SortTrades(trades)
	return trades, nil
}

func (l *TradeLog) loadIDs() error {
	if l.ids != nil {
		return nil
	}
	trades, err := l.read()
	if err != nil {
		return err
	}
	l.ids = make(map[string]struct{}, len(trades))
	for _, t := range trades {
		l.ids[t.TradeID] = struct{}{}
	}
	return nil
}

func (l *TradeLog) read() ([]*domain.ClosedTrade, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV decodes a trade log written by TradeLog.
func ReadCSV(r io.Reader) ([]*domain.ClosedTrade, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[h] = i
	}
	if _, ok := cols["trade_id"]; !ok {
		return nil, fmt.Errorf("%w: trade log missing trade_id column", storage.ErrInvalidInput)
	}

	var trades []*domain.ClosedTrade
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		t, err := decodeRow(cols, rec)
		if err != nil {
			return nil, fmt.Errorf("decode line %d: %w", line, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func encodeRow(t *domain.ClosedTrade) []string {
	return []string{
		formatTime(t.ExitTime),
		t.TradeID, t.Mint, t.Symbol, t.Name, t.Creator,
		formatTime(t.EntryTime), formatFloat(t.EntryPrice), formatFloat(t.EntrySOL), formatFloat(t.EntryTokens), t.EntrySignature,
		formatTime(t.ExitTime), formatFloat(t.ExitPrice), formatFloat(t.ExitSOL), t.ExitSignature, t.ExitReason, t.ExitDetail,
		formatFloat(t.PnLSOL), formatFloat(t.PnLPercent), string(t.Outcome), formatFloat(t.HoldSeconds),
		formatFloat(t.FeesPaidSOL), formatFloat(t.EntryFeeSOL), formatFloat(t.ExitFeeSOL), formatFloat(t.HighestPrice),
	}
}

type rowDecoder struct {
	cols map[string]int
	rec  []string
	err  error
}

func (d *rowDecoder) str(name string) string {
	i, ok := d.cols[name]
	if !ok || i >= len(d.rec) {
		return ""
	}
	return d.rec[i]
}

func (d *rowDecoder) float(name string) float64 {
	s := d.str(name)
	if s == "" || d.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		d.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func (d *rowDecoder) timestamp(name string) time.Time {
	s := d.str(name)
	if s == "" || d.err != nil {
		return time.Time{}
	}
	v, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		d.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func decodeRow(cols map[string]int, rec []string) (*domain.ClosedTrade, error) {
	d := &rowDecoder{cols: cols, rec: rec}
	t := &domain.ClosedTrade{
		TradeID:        d.str("trade_id"),
		Mint:           d.str("mint"),
		Symbol:         d.str("symbol"),
		Name:           d.str("name"),
		Creator:        d.str("creator"),
		EntryTime:      d.timestamp("entry_time"),
		EntryPrice:     d.float("entry_price"),
		EntrySOL:       d.float("entry_sol"),
		EntryTokens:    d.float("tokens"),
		EntrySignature: d.str("entry_signature"),
		ExitTime:       d.timestamp("exit_time"),
		ExitPrice:      d.float("exit_price"),
		ExitSOL:        d.float("exit_sol"),
		ExitSignature:  d.str("exit_signature"),
		ExitReason:     d.str("exit_reason"),
		ExitDetail:     d.str("exit_detail"),
		PnLSOL:         d.float("pnl_sol"),
		PnLPercent:     d.float("pnl_percent"),
		Outcome:        domain.Outcome(d.str("outcome")),
		HoldSeconds:    d.float("hold_seconds"),
		FeesPaidSOL:    d.float("fees_paid_sol"),
		EntryFeeSOL:    d.float("entry_fee_sol"),
		ExitFeeSOL:     d.float("exit_fee_sol"),
		HighestPrice:   d.float("highest_price"),
	}
	if d.err != nil {
		return nil, d.err
	}
	return t, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

var _ storage.TradeStore = (*TradeLog)(nil)
