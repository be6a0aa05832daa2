package memory

import (
	"context"
	"errors"
	"testing"

	"solana-vote-server/internal/domain"
	"solana-vote-server/internal/storage"
)

func TestExchangeEventStore_InsertAndGet(t *testing.T) {
	store := NewExchangeEventStore()
	ctx := context.Background()

	events := []*domain.ExchangeEvent{
		{Wallet: "w1", Amount: 100, PointsBefore: 1000, PointsAfter: 900, TxSignature: "sig1", Outcome: domain.OutcomeCommitted, OccurredAt: 300},
		{Wallet: "w1", Amount: 50, PointsBefore: 900, PointsAfter: 850, TxSignature: "sig2", Outcome: domain.OutcomeCommitted, OccurredAt: 100},
		{Wallet: "w2", Amount: 10, PointsBefore: 1000, PointsAfter: 990, TxSignature: "sig3", Outcome: domain.OutcomeCompensated, OccurredAt: 200},
	}
	for _, e := range events {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := store.GetByWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("GetByWallet: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}

	// Sorted by occurrence time ASC.
	if got[0].TxSignature != "sig2" || got[1].TxSignature != "sig1" {
		t.Errorf("unexpected order: %s, %s", got[0].TxSignature, got[1].TxSignature)
	}
}

func TestExchangeEventStore_Insert_Invalid(t *testing.T) {
	store := NewExchangeEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil event, got %v", err)
	}
	if err := store.Insert(ctx, &domain.ExchangeEvent{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty wallet, got %v", err)
	}
}

func TestExchangeEventStore_CopiesInsulateCaller(t *testing.T) {
	store := NewExchangeEventStore()
	ctx := context.Background()

	event := &domain.ExchangeEvent{Wallet: "w1", Amount: 100, OccurredAt: 1}
	if err := store.Insert(ctx, event); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Mutating the inserted value must not change the stored copy.
	event.Amount = 999

	got, err := store.GetByWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("GetByWallet: %v", err)
	}
	if got[0].Amount != 100 {
		t.Errorf("expected stored amount 100, got %d", got[0].Amount)
	}

	// Mutating a returned value must not change the store either.
	got[0].Amount = 777
	again, err := store.GetByWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("GetByWallet: %v", err)
	}
	if again[0].Amount != 100 {
		t.Errorf("expected stored amount 100, got %d", again[0].Amount)
	}
}

func TestExchangeEventStore_GetByWallet_Empty(t *testing.T) {
	store := NewExchangeEventStore()

	got, err := store.GetByWallet(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("GetByWallet: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no events, got %d", len(got))
	}
}
