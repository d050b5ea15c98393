package solana

import (
	"context"
	"errors"
)

// ErrRateLimited is returned when the endpoint keeps answering 429 after all retries.
var ErrRateLimited = errors.New("rpc rate limited")

// RPCClient is the subset of the Solana JSON-RPC API the bot uses.
type RPCClient interface {
	// GetTransaction returns nil, nil when the transaction is unknown.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress returns signatures newest first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetAccountInfo returns nil, nil when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetBalance returns the account balance in lamports.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// Transaction is a confirmed transaction with its logs.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // unix seconds
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta holds execution results.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// TransactionMessage holds the account list; index 0 is the fee payer.
type TransactionMessage struct {
	AccountKeys []string
}

// FeePayer returns the first account key, or "".
func (tx *Transaction) FeePayer() string {
	if tx == nil || tx.Message == nil || len(tx.Message.AccountKeys) == 0 {
		return ""
	}
	return tx.Message.AccountKeys[0]
}

// Failed reports whether the transaction errored on chain.
func (tx *Transaction) Failed() bool {
	return tx != nil && tx.Meta != nil && tx.Meta.Err != nil
}

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts are the pagination options for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string
	Until  string
	Limit  int
}

// AccountInfo is a raw account.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
}
