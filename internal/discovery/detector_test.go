package discovery

import (
	"testing"
	"time"

	"pump-trader/internal/domain"
	"pump-trader/internal/solana"
)

func TestDetector_Detect(t *testing.T) {
	d := NewDetector()
	tx := &solana.Transaction{
		Signature: "sig-1",
		Slot:      42,
		BlockTime: 1700000100,
		Message:   &solana.TransactionMessage{AccountKeys: []string{keyString(8)}},
	}
	logs := []string{createInstructionLog, createLog("Moon Cat", "MCAT", 1, 2, 3)}

	got := d.Detect(tx, logs, domain.SourcePoll)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.Mint != keyString(1) || c.Creator != keyString(3) || c.BondingCurve != keyString(2) {
		t.Errorf("unexpected accounts %+v", c)
	}
	if c.Signature != "sig-1" || c.Slot != 42 {
		t.Errorf("unexpected tx fields %+v", c)
	}
	if !c.CreatedAt.Equal(time.Unix(1700000100, 0)) {
		t.Errorf("CreatedAt = %v", c.CreatedAt)
	}
	want, _ := solana.AssociatedTokenAddress(keyString(2), keyString(1))
	if c.AssociatedBondingCurve != want {
		t.Errorf("AssociatedBondingCurve = %s, want %s", c.AssociatedBondingCurve, want)
	}
	if c.InitialPrice < 2.79e-8 || c.InitialPrice > 2.8e-8 {
		t.Errorf("InitialPrice = %g, want ~2.796e-8", c.InitialPrice)
	}
	if c.Suspicious {
		t.Error("complete metadata must not be suspicious")
	}
	if !d.Seen(c.Mint) {
		t.Error("mint should be marked seen")
	}

	if again := d.Detect(tx, logs, domain.SourceStream); len(again) != 0 {
		t.Errorf("duplicate mint produced %d candidates", len(again))
	}
}

func TestDetector_NoCreateEvent(t *testing.T) {
	d := NewDetector()
	logs := []string{createInstructionLog, tradeLog(1, 1, 1, true, 2)}
	if got := d.Detect(nil, logs, domain.SourceStream); got != nil {
		t.Errorf("expected no candidates, got %+v", got)
	}
	if d.Seen(keyString(1)) {
		t.Error("trade must not mark the mint seen")
	}
}

func TestDetector_SuspiciousMetadata(t *testing.T) {
	tests := []struct {
		name   string
		ev     CreateEvent
		expect bool
	}{
		{"complete", CreateEvent{Name: "A", Symbol: "A", URI: "u"}, false},
		{"no name", CreateEvent{Symbol: "A", URI: "u"}, true},
		{"no symbol", CreateEvent{Name: "A", URI: "u"}, true},
		{"no uri", CreateEvent{Name: "A", Symbol: "A"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := suspicious(tt.ev); got != tt.expect {
				t.Errorf("suspicious() = %v, want %v", got, tt.expect)
			}
		})
	}
}
