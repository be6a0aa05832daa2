package vote

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"solana-vote-server/internal/program"
	"solana-vote-server/internal/solana"
	"solana-vote-server/internal/solana/stub"
	"solana-vote-server/internal/txbuild"
)

func newService(t *testing.T) (*Service, string) {
	t.Helper()

	authority, err := solana.NewKeypair()
	if err != nil {
		t.Fatalf("NewKeypair: %v", err)
	}
	builder := txbuild.New(stub.NewRPCClient(), program.DefaultProgramID, authority.PublicKey())
	return NewService(builder), authority.PublicKey()
}

func validRequest(t *testing.T) Request {
	t.Helper()

	poll, err := solana.NewKeypair()
	if err != nil {
		t.Fatalf("NewKeypair: %v", err)
	}
	voter, err := solana.NewKeypair()
	if err != nil {
		t.Fatalf("NewKeypair: %v", err)
	}
	mint, err := solana.NewKeypair()
	if err != nil {
		t.Fatalf("NewKeypair: %v", err)
	}

	return Request{
		PollPubkey:     poll.PublicKey(),
		CandidateIndex: 1,
		Amount:         3_000_000_000,
		RequiredMint:   mint.PublicKey(),
		VoterAddress:   voter.PublicKey(),
	}
}

func TestService_BuildVoteTransaction(t *testing.T) {
	service, _ := newService(t)
	req := validRequest(t)

	txBase64, err := service.BuildVoteTransaction(context.Background(), req)
	if err != nil {
		t.Fatalf("BuildVoteTransaction: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		t.Fatalf("decode transaction: %v", err)
	}

	// One required signature (the voter), zero-filled: the server
	// returns the transaction unsigned.
	if raw[0] != 1 {
		t.Errorf("expected 1 required signature, got %d", raw[0])
	}
	if !bytes.Equal(raw[1:65], make([]byte, 64)) {
		t.Error("expected zero-filled signature placeholder")
	}

	// The first account in the message is the fee payer: the voter.
	voterBytes, err := solana.DecodePubkey(req.VoterAddress)
	if err != nil {
		t.Fatalf("decode voter: %v", err)
	}
	// message: header(3) | compact account count(1, small tx) | accounts
	if !bytes.Equal(raw[65+4:65+4+32], voterBytes) {
		t.Error("expected voter as first message account")
	}
}

func TestService_BuildVoteTransaction_Deterministic(t *testing.T) {
	service, _ := newService(t)
	req := validRequest(t)
	ctx := context.Background()

	first, err := service.BuildVoteTransaction(ctx, req)
	if err != nil {
		t.Fatalf("BuildVoteTransaction: %v", err)
	}
	second, err := service.BuildVoteTransaction(ctx, req)
	if err != nil {
		t.Fatalf("BuildVoteTransaction: %v", err)
	}

	// Same request with the same blockhash yields the same bytes.
	if first != second {
		t.Error("expected deterministic transaction bytes")
	}
}

func TestService_BuildVoteTransaction_Validation(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	base := validRequest(t)

	cases := []struct {
		name   string
		mutate func(r *Request)
	}{
		{"bad poll", func(r *Request) { r.PollPubkey = "nope" }},
		{"bad mint", func(r *Request) { r.RequiredMint = "nope" }},
		{"bad voter", func(r *Request) { r.VoterAddress = "nope" }},
		{"negative index", func(r *Request) { r.CandidateIndex = -1 }},
		{"index too large", func(r *Request) { r.CandidateIndex = 256 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := service.BuildVoteTransaction(ctx, req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}
