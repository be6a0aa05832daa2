// Package vote builds unsigned vote transactions for client-side
// signing. The service never holds custody of the voter's key.
package vote

import (
	"context"
	"errors"
	"fmt"

	"solana-vote-server/internal/observability"
	"solana-vote-server/internal/solana"
	"solana-vote-server/internal/txbuild"
)

// Service errors.
var (
	// ErrInvalidRequest is returned for malformed identities or
	// out-of-range numeric fields, before any chain interaction.
	ErrInvalidRequest = errors.New("invalid vote request")

	// ErrTransactionBuild is the uniform failure for anything that
	// goes wrong assembling the unsigned transaction.
	ErrTransactionBuild = errors.New("failed to build vote transaction")
)

// Service is a thin composition over the transaction builder.
type Service struct {
	builder *txbuild.Builder
}

// NewService creates a Service.
func NewService(builder *txbuild.Builder) *Service {
	return &Service{builder: builder}
}

// Request describes one vote transaction to build.
type Request struct {
	PollPubkey     string
	CandidateIndex int
	Amount         uint64
	RequiredMint   string
	VoterAddress   string
}

// BuildVoteTransaction validates the request, builds the unsigned vote
// transaction with the voter as fee payer, and returns it as a base64
// blob for the client wallet to sign and submit. The candidate index is
// range-checked against u8 only; membership in the poll's candidate
// list is the program's call.
func (s *Service) BuildVoteTransaction(ctx context.Context, req Request) (string, error) {
	if err := solana.ValidatePubkey(req.PollPubkey); err != nil {
		return "", fmt.Errorf("%w: poll: %v", ErrInvalidRequest, err)
	}
	if err := solana.ValidatePubkey(req.RequiredMint); err != nil {
		return "", fmt.Errorf("%w: mint: %v", ErrInvalidRequest, err)
	}
	if err := solana.ValidatePubkey(req.VoterAddress); err != nil {
		return "", fmt.Errorf("%w: voter: %v", ErrInvalidRequest, err)
	}
	if req.CandidateIndex < 0 || req.CandidateIndex > 255 {
		return "", fmt.Errorf("%w: candidate index out of range", ErrInvalidRequest)
	}

	tx, err := s.builder.BuildVote(ctx, req.PollPubkey, req.VoterAddress, req.RequiredMint, uint8(req.CandidateIndex), req.Amount)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransactionBuild, err)
	}

	txBase64, err := tx.SerializeBase64()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransactionBuild, err)
	}

	observability.RecordVoteTxBuilt()
	return txBase64, nil
}
