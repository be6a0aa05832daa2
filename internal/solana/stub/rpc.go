package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-vote-server/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Accounts        map[string]*solana.AccountInfo
	Blockhash       string
	ProgramAccounts map[string][]solana.ProgramAccount
	Statuses        map[string]*solana.SignatureStatus

	// SendErr, when set, makes SendTransaction fail.
	SendErr error

	// Sent records every transaction submitted, in order.
	Sent []string

	// nextSig numbers generated signatures.
	nextSig int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:        make(map[string]*solana.AccountInfo),
		Blockhash:       "EETubP5AKHgjPAhzPAFcb8BAY1hMH639CWCFTqi3hq1k",
		ProgramAccounts: make(map[string][]solana.ProgramAccount),
		Statuses:        make(map[string]*solana.SignatureStatus),
	}
}

// GetAccountInfo retrieves account info from the stub store.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.LatestBlockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &solana.LatestBlockhash{Blockhash: c.Blockhash, LastValidBlockHeight: 100}, nil
}

// SendTransaction records the transaction and returns a generated
// signature, confirmed immediately.
func (c *RPCClient) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SendErr != nil {
		return "", c.SendErr
	}

	c.Sent = append(c.Sent, txBase64)
	c.nextSig++
	sig := fmt.Sprintf("stubsig%d", c.nextSig)
	// Confirmed immediately unless a test pre-seeded a status (or an
	// explicit nil, for never-confirming signatures).
	if _, seeded := c.Statuses[sig]; !seeded {
		c.Statuses[sig] = &solana.SignatureStatus{ConfirmationStatus: "confirmed"}
	}
	return sig, nil
}

// GetSignatureStatuses retrieves statuses from the stub store.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	statuses := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		statuses[i] = c.Statuses[sig]
	}
	return statuses, nil
}

// GetProgramAccounts retrieves program accounts from the stub store.
// The memcmp filter is ignored; tests seed exactly what they expect.
func (c *RPCClient) GetProgramAccounts(_ context.Context, programID string, _ string) ([]solana.ProgramAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ProgramAccounts[programID], nil
}

// AddAccount adds an account to the stub store.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}

// AddProgramAccount adds a program account to the stub store.
func (c *RPCClient) AddProgramAccount(programID string, acct solana.ProgramAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ProgramAccounts[programID] = append(c.ProgramAccounts[programID], acct)
}

// SentCount returns how many transactions were submitted.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}
