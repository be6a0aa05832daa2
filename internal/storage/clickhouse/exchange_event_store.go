package clickhouse

import (
	"context"
	"fmt"

	"solana-vote-server/internal/domain"
	"solana-vote-server/internal/storage"
)

// ExchangeEventStore implements storage.ExchangeEventStore using
// ClickHouse. Events are append-only audit history; the mutable balance
// itself lives in Postgres.
type ExchangeEventStore struct {
	conn *Conn
}

// NewExchangeEventStore creates a new ExchangeEventStore.
func NewExchangeEventStore(conn *Conn) *ExchangeEventStore {
	return &ExchangeEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ExchangeEventStore = (*ExchangeEventStore)(nil)

// Insert appends an exchange event.
func (s *ExchangeEventStore) Insert(ctx context.Context, e *domain.ExchangeEvent) error {
	if e == nil || e.Wallet == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO exchange_events (
			wallet, amount, points_before, points_after, tx_signature, outcome, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		e.Wallet,
		e.Amount,
		e.PointsBefore,
		e.PointsAfter,
		e.TxSignature,
		string(e.Outcome),
		e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert exchange event: %w", err)
	}
	return nil
}

// GetByWallet retrieves all events for a wallet, ordered by occurrence
// time ASC.
func (s *ExchangeEventStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.ExchangeEvent, error) {
	query := `
		SELECT wallet, amount, points_before, points_after, tx_signature, outcome, occurred_at
		FROM exchange_events
		WHERE wallet = ?
		ORDER BY occurred_at ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get exchange events by wallet: %w", err)
	}
	defer rows.Close()

	var events []*domain.ExchangeEvent
	for rows.Next() {
		var e domain.ExchangeEvent
		var outcome string
		if err := rows.Scan(&e.Wallet, &e.Amount, &e.PointsBefore, &e.PointsAfter, &e.TxSignature, &outcome, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan exchange event: %w", err)
		}
		e.Outcome = domain.ExchangeOutcome(outcome)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchange events: %w", err)
	}

	return events, nil
}
