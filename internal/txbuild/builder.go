// Package txbuild assembles transfer and vote transactions against the
// voting program and the SPL token program.
package txbuild

import (
	"context"
	"fmt"

	"solana-vote-server/internal/program"
	"solana-vote-server/internal/solana"
)

// Builder composes ordered instruction lists into transactions. The
// authority is the server's signing identity: it owns the token vault
// the exchange pays out of and the vault votes settle into.
type Builder struct {
	rpc       solana.RPCClient
	programID string
	authority string
}

// New creates a Builder.
func New(rpc solana.RPCClient, programID, authority string) *Builder {
	return &Builder{rpc: rpc, programID: programID, authority: authority}
}

// Authority returns the server authority public key.
func (b *Builder) Authority() string {
	return b.authority
}

// BuildTransfer builds a token transfer of amount base units from the
// authority's token account to toOwner's associated token account for
// mint. If the recipient account does not exist at build time, a
// create instruction (paid by the authority) is prepended. Existence is
// checked fresh on every build; two concurrent builds for the same new
// recipient may both prepend a create, and the cluster rejects the
// second one, not us.
//
// The returned transaction is unsigned; the caller signs with the
// authority keypair and submits.
func (b *Builder) BuildTransfer(ctx context.Context, toOwner, mint string, amount uint64) (*solana.Transaction, error) {
	sourceAccount, err := solana.DeriveAssociatedTokenAddress(mint, b.authority)
	if err != nil {
		return nil, fmt.Errorf("derive source token account: %w", err)
	}
	destAccount, err := solana.DeriveAssociatedTokenAddress(mint, toOwner)
	if err != nil {
		return nil, fmt.Errorf("derive recipient token account: %w", err)
	}

	destInfo, err := b.rpc.GetAccountInfo(ctx, destAccount)
	if err != nil {
		return nil, fmt.Errorf("check recipient token account: %w", err)
	}

	var instructions []solana.Instruction
	if destInfo == nil {
		instructions = append(instructions,
			solana.NewCreateAssociatedTokenAccountInstruction(b.authority, destAccount, toOwner, mint))
	}
	instructions = append(instructions,
		solana.NewTransferInstruction(sourceAccount, destAccount, b.authority, amount))

	blockhash, err := b.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch blockhash: %w", err)
	}

	return solana.NewTransaction(b.authority, blockhash.Blockhash, instructions...), nil
}

// BuildVote builds an unsigned vote transaction for the given poll and
// candidate. The voter is the fee payer and sole required signer; the
// transaction is never signed here, custody of the voter's key stays
// with the client.
func (b *Builder) BuildVote(ctx context.Context, pollPubkey, voter, requiredMint string, candidateIndex uint8, amount uint64) (*solana.Transaction, error) {
	voterTokenAccount, err := solana.DeriveAssociatedTokenAddress(requiredMint, voter)
	if err != nil {
		return nil, fmt.Errorf("derive voter token account: %w", err)
	}
	pollVault, err := solana.DeriveAssociatedTokenAddress(requiredMint, b.authority)
	if err != nil {
		return nil, fmt.Errorf("derive poll vault: %w", err)
	}

	ix := program.NewVoteInstruction(b.programID, pollPubkey, voter, voterTokenAccount, pollVault, candidateIndex, amount)

	blockhash, err := b.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch blockhash: %w", err)
	}

	return solana.NewTransaction(voter, blockhash.Blockhash, ix), nil
}
