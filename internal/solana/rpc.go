package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used by this service.
type RPCClient interface {
	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetLatestBlockhash retrieves the latest finalized blockhash.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// SendTransaction submits a base64-encoded signed transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetSignatureStatuses retrieves confirmation statuses for signatures.
	// The result is index-aligned with the input; nil means unknown.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetProgramAccounts retrieves all accounts owned by a program,
	// optionally filtered by a memcmp at byte offset 0.
	GetProgramAccounts(ctx context.Context, programID string, memcmpBase58 string) ([]ProgramAccount, error)
}
