package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-vote-server/internal/domain"
	"solana-vote-server/internal/solana"
	"solana-vote-server/internal/solana/stub"
	"solana-vote-server/internal/storage"
	"solana-vote-server/internal/storage/memory"
	"solana-vote-server/internal/txbuild"
)

type fixture struct {
	orchestrator *Orchestrator
	balances     *memory.BalanceStore
	events       *memory.ExchangeEventStore
	rpc          *stub.RPCClient
	authority    *solana.Keypair
	mint         string
	wallet       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	authority, err := solana.NewKeypair()
	if err != nil {
		t.Fatalf("NewKeypair: %v", err)
	}
	mintKP, err := solana.NewKeypair()
	if err != nil {
		t.Fatalf("NewKeypair: %v", err)
	}
	walletKP, err := solana.NewKeypair()
	if err != nil {
		t.Fatalf("NewKeypair: %v", err)
	}

	rpc := stub.NewRPCClient()
	balances := memory.NewBalanceStore()
	events := memory.NewExchangeEventStore()

	// The recipient's token account exists unless a test removes it.
	ata, err := solana.DeriveAssociatedTokenAddress(mintKP.PublicKey(), walletKP.PublicKey())
	if err != nil {
		t.Fatalf("DeriveAssociatedTokenAddress: %v", err)
	}
	rpc.AddAccount(ata, &solana.AccountInfo{Owner: solana.TokenProgramID})

	builder := txbuild.New(rpc, "HQ24JdiocERDsdbnKxc5YM6Chr2wX4QDPWGYDhzsitcm", authority.PublicKey())

	orchestrator := New(Options{
		BalanceStore: balances,
		EventStore:   events,
		Builder:      builder,
		RPC:          rpc,
		Confirmer:    solana.NewPollingConfirmer(rpc, time.Second, time.Millisecond),
		Authority:    authority,
		TokenMint:    mintKP.PublicKey(),
	})

	return &fixture{
		orchestrator: orchestrator,
		balances:     balances,
		events:       events,
		rpc:          rpc,
		authority:    authority,
		mint:         mintKP.PublicKey(),
		wallet:       walletKP.PublicKey(),
	}
}

func TestOrchestrator_Points(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	points, err := f.orchestrator.Points(ctx, f.wallet)
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	if points != storage.DefaultGrant {
		t.Errorf("expected default grant %d, got %d", storage.DefaultGrant, points)
	}
}

func TestOrchestrator_Points_InvalidWallet(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.Points(context.Background(), "not-a-pubkey")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestOrchestrator_Exchange_Committed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.orchestrator.Exchange(ctx, f.wallet, 200)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}

	if result.NewBalance != storage.DefaultGrant-200 {
		t.Errorf("expected balance %d, got %d", storage.DefaultGrant-200, result.NewBalance)
	}
	if result.TxSignature == "" {
		t.Error("expected transaction signature")
	}
	if f.rpc.SentCount() != 1 {
		t.Errorf("expected 1 submitted transaction, got %d", f.rpc.SentCount())
	}

	// The committed outcome lands in the audit trail.
	events, err := f.events.GetByWallet(ctx, f.wallet)
	if err != nil {
		t.Fatalf("GetByWallet: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
	if events[0].Outcome != domain.OutcomeCommitted {
		t.Errorf("expected COMMITTED, got %s", events[0].Outcome)
	}
	if events[0].PointsBefore != storage.DefaultGrant || events[0].PointsAfter != storage.DefaultGrant-200 {
		t.Errorf("unexpected audit balances: %d -> %d", events[0].PointsBefore, events[0].PointsAfter)
	}
}

func TestOrchestrator_Exchange_InvalidAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, amount := range []int64{0, -5} {
		_, err := f.orchestrator.Exchange(ctx, f.wallet, amount)
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("amount %d: expected ErrInvalidRequest, got %v", amount, err)
		}
	}

	// Validation failures never touch the ledger.
	points, err := f.balances.GetOrInit(ctx, f.wallet)
	if err != nil {
		t.Fatalf("GetOrInit: %v", err)
	}
	if points != storage.DefaultGrant {
		t.Errorf("expected untouched balance, got %d", points)
	}
	if f.rpc.SentCount() != 0 {
		t.Errorf("expected no submissions, got %d", f.rpc.SentCount())
	}
}

func TestOrchestrator_Exchange_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orchestrator.Exchange(ctx, f.wallet, storage.DefaultGrant+1)
	if !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if f.rpc.SentCount() != 0 {
		t.Errorf("expected no submissions, got %d", f.rpc.SentCount())
	}
}

func TestOrchestrator_Exchange_SubmissionFailureCompensates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.rpc.SendErr = errors.New("blockhash not found")

	_, err := f.orchestrator.Exchange(ctx, f.wallet, 300)
	if !errors.Is(err, ErrChainSubmission) {
		t.Fatalf("expected ErrChainSubmission, got %v", err)
	}

	// The debit was rolled back.
	points, err := f.balances.GetOrInit(ctx, f.wallet)
	if err != nil {
		t.Fatalf("GetOrInit: %v", err)
	}
	if points != storage.DefaultGrant {
		t.Errorf("expected refunded balance %d, got %d", storage.DefaultGrant, points)
	}

	events, err := f.events.GetByWallet(ctx, f.wallet)
	if err != nil {
		t.Fatalf("GetByWallet: %v", err)
	}
	if len(events) != 1 || events[0].Outcome != domain.OutcomeCompensated {
		t.Fatalf("expected one COMPENSATED event, got %+v", events)
	}
}

func TestOrchestrator_Exchange_OnChainFailureCompensates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Submission succeeds, but the cluster reports an execution error.
	f.rpc.Statuses["stubsig1"] = &solana.SignatureStatus{
		ConfirmationStatus: "confirmed",
		Err:                map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
	}

	_, err := f.orchestrator.Exchange(ctx, f.wallet, 300)
	if !errors.Is(err, ErrChainSubmission) {
		t.Fatalf("expected ErrChainSubmission, got %v", err)
	}

	points, err := f.balances.GetOrInit(ctx, f.wallet)
	if err != nil {
		t.Fatalf("GetOrInit: %v", err)
	}
	if points != storage.DefaultGrant {
		t.Errorf("expected refunded balance %d, got %d", storage.DefaultGrant, points)
	}
}

func TestOrchestrator_Exchange_AmbiguousTimeout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Submission succeeds but the signature never reaches a terminal
	// status within the bound: the debit must stand.
	f.rpc.Statuses["stubsig1"] = nil
	f.orchestrator.confirmer = solana.NewPollingConfirmer(f.rpc, 20*time.Millisecond, 5*time.Millisecond)

	_, err := f.orchestrator.Exchange(ctx, f.wallet, 300)
	if !errors.Is(err, solana.ErrConfirmationTimeout) {
		t.Fatalf("expected ErrConfirmationTimeout, got %v", err)
	}
	if errors.Is(err, ErrChainSubmission) {
		t.Fatal("ambiguous outcome must not be reported as a chain failure")
	}

	points, pointsErr := f.balances.GetOrInit(ctx, f.wallet)
	if pointsErr != nil {
		t.Fatalf("GetOrInit: %v", pointsErr)
	}
	if points != storage.DefaultGrant-300 {
		t.Errorf("expected debit to stand at %d, got %d", storage.DefaultGrant-300, points)
	}

	events, eventsErr := f.events.GetByWallet(ctx, f.wallet)
	if eventsErr != nil {
		t.Fatalf("GetByWallet: %v", eventsErr)
	}
	if len(events) != 1 || events[0].Outcome != domain.OutcomeAmbiguous {
		t.Fatalf("expected one AMBIGUOUS event, got %+v", events)
	}
}

func TestOrchestrator_Exchange_CreatesMissingTokenAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Remove the seeded recipient account: the transfer must still
	// commit, with the create instruction prepended.
	freshKP, err := solana.NewKeypair()
	if err != nil {
		t.Fatalf("NewKeypair: %v", err)
	}

	result, err := f.orchestrator.Exchange(ctx, freshKP.PublicKey(), 100)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if result.NewBalance != storage.DefaultGrant-100 {
		t.Errorf("expected balance %d, got %d", storage.DefaultGrant-100, result.NewBalance)
	}
	if f.rpc.SentCount() != 1 {
		t.Errorf("expected 1 submitted transaction, got %d", f.rpc.SentCount())
	}
}
