package postgres

import (
	"context"
	"fmt"

	"solana-vote-server/internal/storage"
)

// BalanceStore implements storage.BalanceStore using PostgreSQL.
// Debit and Refund are single conditional updates, so concurrent
// requests for the same wallet serialize on the row and a lost update
// cannot double-spend points.
type BalanceStore struct {
	pool *Pool
}

// NewBalanceStore creates a new BalanceStore.
func NewBalanceStore(pool *Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BalanceStore = (*BalanceStore)(nil)

// ensureRow lazily persists the default grant. ON CONFLICT DO NOTHING
// makes concurrent first observations settle on one persisted value.
func (s *BalanceStore) ensureRow(ctx context.Context, wallet string) error {
	query := `
		INSERT INTO balances (wallet, points)
		VALUES ($1, $2)
		ON CONFLICT (wallet) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, query, wallet, storage.DefaultGrant); err != nil {
		return fmt.Errorf("init balance: %w", err)
	}
	return nil
}

// GetOrInit returns the stored balance, persisting the default grant on
// first observation.
func (s *BalanceStore) GetOrInit(ctx context.Context, wallet string) (int64, error) {
	if wallet == "" {
		return 0, storage.ErrInvalidInput
	}

	if err := s.ensureRow(ctx, wallet); err != nil {
		return 0, err
	}

	var points int64
	err := s.pool.QueryRow(ctx, `SELECT points FROM balances WHERE wallet = $1`, wallet).Scan(&points)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return points, nil
}

// Debit atomically subtracts amount. The points >= amount guard is part
// of the UPDATE itself; zero rows updated means insufficient balance.
func (s *BalanceStore) Debit(ctx context.Context, wallet string, amount int64) (int64, error) {
	if wallet == "" || amount < 0 {
		return 0, storage.ErrInvalidInput
	}

	if err := s.ensureRow(ctx, wallet); err != nil {
		return 0, err
	}

	query := `
		UPDATE balances
		SET points = points - $2
		WHERE wallet = $1 AND points >= $2
		RETURNING points
	`

	var points int64
	err := s.pool.QueryRow(ctx, query, wallet, amount).Scan(&points)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrInsufficientBalance
		}
		return 0, fmt.Errorf("debit balance: %w", err)
	}
	return points, nil
}

// Refund atomically adds amount back.
func (s *BalanceStore) Refund(ctx context.Context, wallet string, amount int64) (int64, error) {
	if wallet == "" || amount < 0 {
		return 0, storage.ErrInvalidInput
	}

	if err := s.ensureRow(ctx, wallet); err != nil {
		return 0, err
	}

	query := `
		UPDATE balances
		SET points = points + $2
		WHERE wallet = $1
		RETURNING points
	`

	var points int64
	err := s.pool.QueryRow(ctx, query, wallet, amount).Scan(&points)
	if err != nil {
		return 0, fmt.Errorf("refund balance: %w", err)
	}
	return points, nil
}
