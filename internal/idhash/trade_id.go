package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(mint|entry_signature|entry_time_ms)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(mint, entrySignature string, entryTime time.Time) string {
	data := fmt.Sprintf("%s|%s|%d",
		mint,
		entrySignature,
		entryTime.UnixMilli(),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
