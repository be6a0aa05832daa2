package storage

import (
	"context"

	"solana-vote-server/internal/domain"
)

// DefaultGrant is the balance implicitly granted to a wallet the first
// time it is observed. Once persisted it never reverts to the default.
const DefaultGrant = 1000

// BalanceStore provides access to the off-chain point ledger.
type BalanceStore interface {
	// GetOrInit returns the stored balance for wallet, atomically
	// persisting the default grant if the wallet was never seen.
	// Concurrent first reads must settle on a single persisted value.
	GetOrInit(ctx context.Context, wallet string) (int64, error)

	// Debit atomically subtracts amount and returns the new balance.
	// Returns ErrInsufficientBalance if amount exceeds the current
	// balance (computed with the same default-grant rule). The check
	// and the write are a single conditional update, never a separate
	// read followed by a write.
	Debit(ctx context.Context, wallet string, amount int64) (int64, error)

	// Refund atomically adds amount back and returns the new balance.
	// Exists solely as the exchange compensation path for a failed
	// on-chain transfer; it is never exposed over the API.
	Refund(ctx context.Context, wallet string, amount int64) (int64, error)
}

// ExchangeEventStore records append-only exchange audit events.
type ExchangeEventStore interface {
	// Insert appends an exchange event.
	Insert(ctx context.Context, e *domain.ExchangeEvent) error

	// GetByWallet retrieves all events for a wallet, ordered by
	// occurrence time ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.ExchangeEvent, error)
}
