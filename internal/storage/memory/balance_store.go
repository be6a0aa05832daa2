package memory

import (
	"context"
	"sync"

	"solana-vote-server/internal/storage"
)

// BalanceStore is an in-memory implementation of storage.BalanceStore.
// The mutex makes every read-modify-write a single atomic step, which
// is what keeps concurrent debits of the same wallet from both spending
// the same points.
type BalanceStore struct {
	mu   sync.Mutex
	data map[string]int64 // keyed by wallet address
}

// NewBalanceStore creates a new in-memory balance store.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{
		data: make(map[string]int64),
	}
}

// Compile-time interface check.
var _ storage.BalanceStore = (*BalanceStore)(nil)

// GetOrInit returns the stored balance, persisting the default grant on
// first observation.
func (s *BalanceStore) GetOrInit(_ context.Context, wallet string) (int64, error) {
	if wallet == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getOrInitLocked(wallet), nil
}

// Debit atomically subtracts amount. Returns ErrInsufficientBalance if
// amount exceeds the current balance; the balance is left untouched.
func (s *BalanceStore) Debit(_ context.Context, wallet string, amount int64) (int64, error) {
	if wallet == "" || amount < 0 {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.getOrInitLocked(wallet)
	if amount > current {
		return 0, storage.ErrInsufficientBalance
	}

	s.data[wallet] = current - amount
	return current - amount, nil
}

// Refund atomically adds amount back.
func (s *BalanceStore) Refund(_ context.Context, wallet string, amount int64) (int64, error) {
	if wallet == "" || amount < 0 {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.getOrInitLocked(wallet)
	s.data[wallet] = current + amount
	return current + amount, nil
}

func (s *BalanceStore) getOrInitLocked(wallet string) int64 {
	if balance, exists := s.data[wallet]; exists {
		return balance
	}
	s.data[wallet] = storage.DefaultGrant
	return storage.DefaultGrant
}
