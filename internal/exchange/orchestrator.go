// Package exchange coordinates the points-to-token flow: atomic ledger
// debit, transfer construction, submission and bounded confirmation,
// with an explicit compensation path when the chain side fails.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-vote-server/internal/domain"
	"solana-vote-server/internal/observability"
	"solana-vote-server/internal/solana"
	"solana-vote-server/internal/storage"
	"solana-vote-server/internal/txbuild"
)

// Exchange errors.
var (
	// ErrInvalidRequest is returned for malformed input, before any
	// ledger mutation.
	ErrInvalidRequest = errors.New("invalid exchange request")

	// ErrChainSubmission is returned when the network or program
	// rejected the transfer. The debit has been compensated.
	ErrChainSubmission = errors.New("chain submission failed")
)

// BaseUnitFactor converts human token units to base units; the token
// is declared with 9 decimals.
const BaseUnitFactor = 1_000_000_000

// Orchestrator runs the exchange state machine:
// Validate -> Debit -> Build&Submit&Confirm -> Committed | Compensate.
type Orchestrator struct {
	balances  storage.BalanceStore
	events    storage.ExchangeEventStore
	builder   *txbuild.Builder
	rpc       solana.RPCClient
	confirmer solana.Confirmer
	authority *solana.Keypair
	mint      string
	logger    *log.Logger
}

// Options configures the Orchestrator.
type Options struct {
	BalanceStore storage.BalanceStore
	EventStore   storage.ExchangeEventStore // optional audit sink
	Builder      *txbuild.Builder
	RPC          solana.RPCClient
	Confirmer    solana.Confirmer
	Authority    *solana.Keypair
	TokenMint    string
	Logger       *log.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		balances:  opts.BalanceStore,
		events:    opts.EventStore,
		builder:   opts.Builder,
		rpc:       opts.RPC,
		confirmer: opts.Confirmer,
		authority: opts.Authority,
		mint:      opts.TokenMint,
		logger:    logger,
	}
}

// Result is the terminal state of a committed exchange.
type Result struct {
	NewBalance  int64
	TxSignature string
}

// Points returns the wallet's current balance, granting the default on
// first observation.
func (o *Orchestrator) Points(ctx context.Context, wallet string) (int64, error) {
	if err := solana.ValidatePubkey(wallet); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return o.balances.GetOrInit(ctx, wallet)
}

// Exchange converts amount points into amount tokens (1:1) for wallet.
// Steps execute strictly in order: validate, debit, token-account
// check, build, submit, confirm. A submission never precedes its debit.
func (o *Orchestrator) Exchange(ctx context.Context, wallet string, amount int64) (*Result, error) {
	start := time.Now()

	// Validate: no ledger mutation on failure.
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive integer", ErrInvalidRequest)
	}
	if err := solana.ValidatePubkey(wallet); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	// Debit: 1:1 cost. Insufficient balance fails the request before
	// any on-chain action.
	newBalance, err := o.balances.Debit(ctx, wallet, amount)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientBalance) {
			return nil, err
		}
		return nil, fmt.Errorf("debit: %w", err)
	}
	pointsBefore := newBalance + amount

	// Build & submit. The transfer amount is in base units.
	tx, err := o.builder.BuildTransfer(ctx, wallet, o.mint, uint64(amount)*BaseUnitFactor)
	if err != nil {
		return nil, o.compensate(ctx, wallet, amount, pointsBefore, "", fmt.Errorf("build transfer: %w", err))
	}
	if err := tx.Sign(o.authority); err != nil {
		return nil, o.compensate(ctx, wallet, amount, pointsBefore, "", fmt.Errorf("sign transfer: %w", err))
	}
	txBase64, err := tx.SerializeBase64()
	if err != nil {
		return nil, o.compensate(ctx, wallet, amount, pointsBefore, "", fmt.Errorf("serialize transfer: %w", err))
	}

	signature, err := o.rpc.SendTransaction(ctx, txBase64)
	if err != nil {
		return nil, o.compensate(ctx, wallet, amount, pointsBefore, "", fmt.Errorf("submit transfer: %w", err))
	}

	// Confirm with a bounded wait. A definitive on-chain failure is
	// compensated; an expired wait is ambiguous, so the debit stands
	// and the caller gets the distinct timeout error.
	if err := o.confirmer.WaitForConfirmation(ctx, signature); err != nil {
		if errors.Is(err, solana.ErrTransactionFailed) {
			return nil, o.compensate(ctx, wallet, amount, pointsBefore, signature, err)
		}
		o.recordEvent(ctx, wallet, amount, pointsBefore, newBalance, signature, domain.OutcomeAmbiguous)
		observability.RecordExchange("ambiguous", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: signature %s", solana.ErrConfirmationTimeout, signature)
	}

	o.recordEvent(ctx, wallet, amount, pointsBefore, newBalance, signature, domain.OutcomeCommitted)
	observability.RecordExchange("committed", time.Since(start).Seconds())
	observability.RecordPointsDebited(amount)

	o.logger.Printf("exchange committed: wallet=%s amount=%d signature=%s", wallet, amount, signature)
	return &Result{NewBalance: newBalance, TxSignature: signature}, nil
}

// compensate refunds a debit whose on-chain side definitively failed
// and wraps the cause as a chain submission error.
func (o *Orchestrator) compensate(ctx context.Context, wallet string, amount, pointsBefore int64, signature string, cause error) error {
	refunded, refundErr := o.balances.Refund(ctx, wallet, amount)
	if refundErr != nil {
		// The debit stands; this needs operator attention.
		o.logger.Printf("COMPENSATION FAILED: wallet=%s amount=%d debit not refunded: %v (cause: %v)", wallet, amount, refundErr, cause)
		return fmt.Errorf("%w: %v (compensation also failed: %v)", ErrChainSubmission, cause, refundErr)
	}

	o.recordEvent(ctx, wallet, amount, pointsBefore, refunded, signature, domain.OutcomeCompensated)
	observability.RecordExchange("compensated", 0)

	o.logger.Printf("exchange compensated: wallet=%s amount=%d refunded, cause: %v", wallet, amount, cause)
	return fmt.Errorf("%w: %v", ErrChainSubmission, cause)
}

// recordEvent appends an audit event. Audit failures are logged, never
// surfaced: the exchange outcome is already decided.
func (o *Orchestrator) recordEvent(ctx context.Context, wallet string, amount, pointsBefore, pointsAfter int64, signature string, outcome domain.ExchangeOutcome) {
	if o.events == nil {
		return
	}
	event := &domain.ExchangeEvent{
		Wallet:       wallet,
		Amount:       amount,
		PointsBefore: pointsBefore,
		PointsAfter:  pointsAfter,
		TxSignature:  signature,
		Outcome:      outcome,
		OccurredAt:   time.Now().UnixMilli(),
	}
	if err := o.events.Insert(ctx, event); err != nil {
		o.logger.Printf("record exchange event: %v", err)
	}
}
