package memory

import (
	"context"
	"sort"
	"sync"

	"solana-vote-server/internal/domain"
	"solana-vote-server/internal/storage"
)

// ExchangeEventStore is an in-memory implementation of
// storage.ExchangeEventStore.
type ExchangeEventStore struct {
	mu     sync.RWMutex
	events []*domain.ExchangeEvent
}

// NewExchangeEventStore creates a new in-memory exchange event store.
func NewExchangeEventStore() *ExchangeEventStore {
	return &ExchangeEventStore{}
}

// Compile-time interface check.
var _ storage.ExchangeEventStore = (*ExchangeEventStore)(nil)

// Insert appends an exchange event.
func (s *ExchangeEventStore) Insert(_ context.Context, e *domain.ExchangeEvent) error {
	if e == nil || e.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	eventCopy := *e
	s.events = append(s.events, &eventCopy)
	return nil
}

// GetByWallet retrieves all events for a wallet, ordered by occurrence
// time ASC.
func (s *ExchangeEventStore) GetByWallet(_ context.Context, wallet string) ([]*domain.ExchangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExchangeEvent
	for _, e := range s.events {
		if e.Wallet == wallet {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt < result[j].OccurredAt
	})

	return result, nil
}
