// Package poll reads on-chain poll state and issues poll commands
// authorized by the server authority key.
package poll

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"solana-vote-server/internal/domain"
	"solana-vote-server/internal/observability"
	"solana-vote-server/internal/program"
	"solana-vote-server/internal/solana"
)

// Gateway errors.
var (
	// ErrInvalidRequest is returned for inputs the on-chain program
	// would reject anyway, before anything is submitted.
	ErrInvalidRequest = errors.New("invalid poll request")

	// ErrChainSubmission is returned when the network or program
	// rejected a poll command. There is no local retry.
	ErrChainSubmission = errors.New("chain submission failed")
)

// Gateway is the poll query/command surface.
type Gateway struct {
	rpc       solana.RPCClient
	confirmer solana.Confirmer
	authority *solana.Keypair
	programID string
	logger    *log.Logger
}

// New creates a Gateway.
func New(rpc solana.RPCClient, confirmer solana.Confirmer, authority *solana.Keypair, programID string, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.Default()
	}
	return &Gateway{
		rpc:       rpc,
		confirmer: confirmer,
		authority: authority,
		programID: programID,
		logger:    logger,
	}
}

// ListActivePolls fetches all poll accounts and returns the ones that
// are not closed. Vote counts stay in base units; scaling is the
// display layer's job.
func (g *Gateway) ListActivePolls(ctx context.Context) ([]*domain.Poll, error) {
	polls, err := g.fetchAllPolls(ctx)
	if err != nil {
		observability.RecordPollOp("list", "error")
		return nil, err
	}

	active := make([]*domain.Poll, 0, len(polls))
	for _, p := range polls {
		if !p.IsClosed {
			active = append(active, p)
		}
	}

	observability.RecordPollOp("list", "success")
	return active, nil
}

// fetchAllPolls reads every Poll account owned by the program,
// filtered server-side by the account discriminator.
func (g *Gateway) fetchAllPolls(ctx context.Context) ([]*domain.Poll, error) {
	accounts, err := g.rpc.GetProgramAccounts(ctx, g.programID, program.PollDiscriminatorBase58())
	if err != nil {
		return nil, fmt.Errorf("fetch poll accounts: %w", err)
	}

	polls := make([]*domain.Poll, 0, len(accounts))
	for _, acct := range accounts {
		raw, err := base64.StdEncoding.DecodeString(acct.Data)
		if err != nil {
			g.logger.Printf("skip account %s: bad base64: %v", acct.Pubkey, err)
			continue
		}
		p, err := program.DecodePoll(acct.Pubkey, raw)
		if err != nil {
			g.logger.Printf("skip account %s: %v", acct.Pubkey, err)
			continue
		}
		polls = append(polls, p)
	}

	return polls, nil
}

// CreatePoll creates a new poll with a freshly generated account
// identity, co-signed by the server authority. Returns the poll pubkey.
// Bounds the program enforces are checked up front so an
// obviously-rejectable transaction is never submitted.
func (g *Gateway) CreatePoll(ctx context.Context, title string, candidates []string, deadline int64, requiredMint string) (string, error) {
	if len(title) == 0 || len(title) > program.MaxTitleLen {
		return "", fmt.Errorf("%w: title must be 1-%d characters", ErrInvalidRequest, program.MaxTitleLen)
	}
	if len(candidates) < program.MinCandidates || len(candidates) > program.MaxCandidates {
		return "", fmt.Errorf("%w: need %d-%d candidates", ErrInvalidRequest, program.MinCandidates, program.MaxCandidates)
	}
	for _, c := range candidates {
		if len(c) == 0 || len(c) > program.MaxCandidateLen {
			return "", fmt.Errorf("%w: candidate labels must be 1-%d characters", ErrInvalidRequest, program.MaxCandidateLen)
		}
	}
	if deadline <= 0 {
		return "", fmt.Errorf("%w: deadline must be a positive Unix timestamp", ErrInvalidRequest)
	}
	if err := solana.ValidatePubkey(requiredMint); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	pollKeypair, err := solana.NewKeypair()
	if err != nil {
		return "", fmt.Errorf("generate poll keypair: %w", err)
	}

	ix, err := program.NewCreatePollInstruction(g.programID, pollKeypair.PublicKey(), g.authority.PublicKey(), title, candidates, deadline, requiredMint)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	blockhash, err := g.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		observability.RecordPollOp("create", "error")
		return "", fmt.Errorf("%w: fetch blockhash: %v", ErrChainSubmission, err)
	}

	tx := solana.NewTransaction(g.authority.PublicKey(), blockhash.Blockhash, ix)
	if err := tx.Sign(g.authority, pollKeypair); err != nil {
		return "", fmt.Errorf("sign create poll: %w", err)
	}

	if err := g.submitAndConfirm(ctx, tx); err != nil {
		observability.RecordPollOp("create", "error")
		return "", err
	}

	observability.RecordPollOp("create", "success")
	g.logger.Printf("poll created: %s title=%q", pollKeypair.PublicKey(), title)
	return pollKeypair.PublicKey(), nil
}

// ResetResult is the outcome of one poll's reset attempt.
type ResetResult struct {
	Poll string
	Err  error
}

// ResetAllPolls issues one reset instruction per poll, sequentially.
// The batch is deliberately non-atomic: a failure at poll k leaves
// earlier polls reset and later polls untouched, and every attempt is
// reported in the per-item result list.
func (g *Gateway) ResetAllPolls(ctx context.Context) ([]ResetResult, error) {
	polls, err := g.fetchAllPolls(ctx)
	if err != nil {
		observability.RecordPollOp("reset", "error")
		return nil, err
	}

	results := make([]ResetResult, 0, len(polls))
	for _, p := range polls {
		err := g.resetOne(ctx, p.Pubkey)
		if err != nil {
			observability.RecordPollOp("reset", "error")
			g.logger.Printf("reset poll %s: %v", p.Pubkey, err)
		} else {
			observability.RecordPollOp("reset", "success")
		}
		results = append(results, ResetResult{Poll: p.Pubkey, Err: err})
	}

	return results, nil
}

func (g *Gateway) resetOne(ctx context.Context, pollPubkey string) error {
	ix := program.NewResetPollInstruction(g.programID, pollPubkey, g.authority.PublicKey())

	blockhash, err := g.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("%w: fetch blockhash: %v", ErrChainSubmission, err)
	}

	tx := solana.NewTransaction(g.authority.PublicKey(), blockhash.Blockhash, ix)
	if err := tx.Sign(g.authority); err != nil {
		return fmt.Errorf("sign reset: %w", err)
	}

	return g.submitAndConfirm(ctx, tx)
}

func (g *Gateway) submitAndConfirm(ctx context.Context, tx *solana.Transaction) error {
	txBase64, err := tx.SerializeBase64()
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	signature, err := g.rpc.SendTransaction(ctx, txBase64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainSubmission, err)
	}

	if err := g.confirmer.WaitForConfirmation(ctx, signature); err != nil {
		if errors.Is(err, solana.ErrConfirmationTimeout) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrChainSubmission, err)
	}
	return nil
}
