package stub

import (
	"context"
	"sync"

	"pump-trader/internal/solana"
)

// RPCClient is an in-memory solana.RPCClient for tests. Safe for concurrent use.
type RPCClient struct {
	mu           sync.Mutex
	Transactions map[string]*solana.Transaction
	Signatures   map[string][]solana.SignatureInfo
	Accounts     map[string]*solana.AccountInfo
	Balances     map[string]uint64

	// Err, when set, is returned by every call.
	Err error
	// Calls counts calls per method.
	Calls map[string]int
}

// NewRPCClient creates an empty stub.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Signatures:   make(map[string][]solana.SignatureInfo),
		Accounts:     make(map[string]*solana.AccountInfo),
		Balances:     make(map[string]uint64),
		Calls:        make(map[string]int),
	}
}

func (c *RPCClient) enter(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls[method]++
	return c.Err
}

// GetTransaction returns nil, nil for unknown signatures, like the node does.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if err := c.enter("getTransaction"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Transactions[signature], nil
}

// GetSignaturesForAddress returns stored signatures newest first, honouring Until and Limit.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err := c.enter("getSignaturesForAddress"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []solana.SignatureInfo
	for _, s := range c.Signatures[address] {
		if opts != nil && opts.Until != "" && s.Signature == opts.Until {
			break
		}
		out = append(out, s)
	}
	if opts != nil && opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// GetAccountInfo returns nil, nil for unknown accounts.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.enter("getAccountInfo"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// GetBalance returns the stored balance, 0 if unknown.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	if err := c.enter("getBalance"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[pubkey], nil
}

// AddTransaction stores tx by signature.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// PushSignatures prepends sigs (given newest first) to address's history.
func (c *RPCClient) PushSignatures(address string, sigs ...solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signatures[address] = append(append([]solana.SignatureInfo(nil), sigs...), c.Signatures[address]...)
}

// SetAccount stores account data.
func (c *RPCClient) SetAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}

// CallCount returns how many times method was called.
func (c *RPCClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[method]
}

// SetErr sets the error returned by every call.
func (c *RPCClient) SetErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
}

var _ solana.RPCClient = (*RPCClient)(nil)
