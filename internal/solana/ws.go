package solana

import "context"

// WSClient streams program logs over the Solana WebSocket API.
type WSClient interface {
	// SubscribeLogs subscribes to logs mentioning the filter's accounts.
	// The channel is closed when the client is closed.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	Close() error
}

// LogsFilter selects transactions by mentioned account.
type LogsFilter struct {
	Mentions []string
}

// LogNotification is one logsNotification payload.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
