package discovery

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const programDataPrefix = "Program data: "

// Log line emitted by the pump program for a token launch.
const createInstructionLog = "Program log: Instruction: Create"

var (
	createEventDiscriminator = eventDiscriminator("CreateEvent")
	tradeEventDiscriminator  = eventDiscriminator("TradeEvent")

	errShortEvent = errors.New("event data too short")
)

// eventDiscriminator is the 8-byte prefix an Anchor program writes before an event payload.
func eventDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("event:" + name))
	return sum[:8]
}

// CreateEvent is emitted when a token launches on the curve.
type CreateEvent struct {
	Name         string
	Symbol       string
	URI          string
	Mint         string
	BondingCurve string
	User         string
}

// TradeEvent is emitted for every buy or sell on the curve.
type TradeEvent struct {
	Mint                 string
	SolAmount            uint64 // lamports
	TokenAmount          uint64 // base units
	IsBuy                bool
	User                 string
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

// HasCreateInstruction reports whether logs contain a pump create instruction.
func HasCreateInstruction(logs []string) bool {
	for _, l := range logs {
		if strings.HasPrefix(l, createInstructionLog) {
			return true
		}
	}
	return false
}

// ParseEvents decodes every pump event found in "Program data:" log lines.
// Unknown or malformed payloads are skipped.
func ParseEvents(logs []string) ([]CreateEvent, []TradeEvent) {
	var creates []CreateEvent
	var trades []TradeEvent
	for _, l := range logs {
		if !strings.HasPrefix(l, programDataPrefix) {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(l[len(programDataPrefix):]))
		if err != nil || len(data) < 8 {
			continue
		}
		switch {
		case bytes.Equal(data[:8], createEventDiscriminator):
			if ev, err := decodeCreateEvent(data[8:]); err == nil {
				creates = append(creates, ev)
			}
		case bytes.Equal(data[:8], tradeEventDiscriminator):
			if ev, err := decodeTradeEvent(data[8:]); err == nil {
				trades = append(trades, ev)
			}
		}
	}
	return creates, trades
}

// borshReader reads little-endian borsh primitives.
type borshReader struct {
	buf []byte
	off int
	err error
}

func (r *borshReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = errShortEvent
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *borshReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *borshReader) i64() int64 {
	return int64(r.u64())
}

func (r *borshReader) boolean() bool {
	b := r.take(1)
	return b != nil && b[0] != 0
}

func (r *borshReader) pubkey() string {
	b := r.take(32)
	if b == nil {
		return ""
	}
	return base58.Encode(b)
}

func (r *borshReader) str() string {
	lb := r.take(4)
	if lb == nil {
		return ""
	}
	n := int(binary.LittleEndian.Uint32(lb))
	if n > 1<<16 {
		r.err = fmt.Errorf("string length %d too large", n)
		return ""
	}
	return string(r.take(n))
}

func decodeCreateEvent(data []byte) (CreateEvent, error) {
	r := &borshReader{buf: data}
	ev := CreateEvent{
		Name:   r.str(),
		Symbol: r.str(),
		URI:    r.str(),
	}
	ev.Mint = r.pubkey()
	ev.BondingCurve = r.pubkey()
	ev.User = r.pubkey()
	if r.err != nil {
		return CreateEvent{}, fmt.Errorf("decode create event: %w", r.err)
	}
	return ev, nil
}

func decodeTradeEvent(data []byte) (TradeEvent, error) {
	r := &borshReader{buf: data}
	ev := TradeEvent{Mint: r.pubkey()}
	ev.SolAmount = r.u64()
	ev.TokenAmount = r.u64()
	ev.IsBuy = r.boolean()
	ev.User = r.pubkey()
	ev.Timestamp = r.i64()
	ev.VirtualSolReserves = r.u64()
	ev.VirtualTokenReserves = r.u64()
	if r.err != nil {
		return TradeEvent{}, fmt.Errorf("decode trade event: %w", r.err)
	}
	return ev, nil
}
