package program

import (
	"bytes"
	"encoding/binary"
	"testing"

	"solana-vote-server/internal/solana"
)

func TestNewCreatePollInstruction(t *testing.T) {
	poll := testPubkey(t)
	authority := testPubkey(t)
	mint := testPubkey(t)

	ix, err := NewCreatePollInstruction(DefaultProgramID, poll, authority, "Best snack", []string{"Chips", "Fruit"}, 1756600000, mint)
	if err != nil {
		t.Fatalf("NewCreatePollInstruction: %v", err)
	}

	if ix.ProgramID != DefaultProgramID {
		t.Errorf("unexpected program ID: %s", ix.ProgramID)
	}

	if !bytes.HasPrefix(ix.Data, InstructionDiscriminator("create_poll")) {
		t.Error("data must start with the create_poll discriminator")
	}

	// discriminator | title | candidates | deadline | mint
	r := &borshReader{data: ix.Data[8:]}
	title, err := r.readString()
	if err != nil {
		t.Fatalf("read title: %v", err)
	}
	if title != "Best snack" {
		t.Errorf("expected title 'Best snack', got %q", title)
	}

	count, err := r.readU32()
	if err != nil {
		t.Fatalf("read candidate count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 candidates, got %d", count)
	}
	for i := uint32(0); i < count; i++ {
		if _, err := r.readString(); err != nil {
			t.Fatalf("read candidate %d: %v", i, err)
		}
	}

	deadline, err := r.readI64()
	if err != nil {
		t.Fatalf("read deadline: %v", err)
	}
	if deadline != 1756600000 {
		t.Errorf("expected deadline 1756600000, got %d", deadline)
	}

	mintBytes, err := r.readBytes(32)
	if err != nil {
		t.Fatalf("read mint: %v", err)
	}
	wantMint, _ := solana.DecodePubkey(mint)
	if !bytes.Equal(mintBytes, wantMint) {
		t.Error("mint bytes mismatch")
	}
	if r.remaining() != 0 {
		t.Errorf("expected fully consumed data, %d bytes left", r.remaining())
	}

	// poll and authority co-sign; authority pays.
	if len(ix.Accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(ix.Accounts))
	}
	if !ix.Accounts[0].IsSigner || !ix.Accounts[0].IsWritable {
		t.Error("poll account must be a writable signer")
	}
	if !ix.Accounts[1].IsSigner || !ix.Accounts[1].IsWritable {
		t.Error("authority must be a writable signer")
	}
	if ix.Accounts[2].Pubkey != solana.SystemProgramID {
		t.Errorf("expected system program, got %s", ix.Accounts[2].Pubkey)
	}
}

func TestNewCreatePollInstruction_BadMint(t *testing.T) {
	_, err := NewCreatePollInstruction(DefaultProgramID, testPubkey(t), testPubkey(t), "T", []string{"A", "B"}, 0, "bad")
	if err == nil {
		t.Fatal("expected error for invalid mint, got nil")
	}
}

func TestNewVoteInstruction(t *testing.T) {
	poll := testPubkey(t)
	voter := testPubkey(t)
	voterToken := testPubkey(t)
	vault := testPubkey(t)

	ix := NewVoteInstruction(DefaultProgramID, poll, voter, voterToken, vault, 2, 7_000_000_000)

	if len(ix.Data) != 8+1+8 {
		t.Fatalf("expected 17 data bytes, got %d", len(ix.Data))
	}
	if !bytes.HasPrefix(ix.Data, InstructionDiscriminator("vote")) {
		t.Error("data must start with the vote discriminator")
	}
	if ix.Data[8] != 2 {
		t.Errorf("expected candidate index 2, got %d", ix.Data[8])
	}
	if amount := binary.LittleEndian.Uint64(ix.Data[9:]); amount != 7_000_000_000 {
		t.Errorf("expected amount 7000000000, got %d", amount)
	}

	if len(ix.Accounts) != 5 {
		t.Fatalf("expected 5 accounts, got %d", len(ix.Accounts))
	}
	// Only the voter signs; the server never co-signs a vote.
	for i, m := range ix.Accounts {
		if m.Pubkey == voter {
			if !m.IsSigner {
				t.Error("voter must be a signer")
			}
		} else if m.IsSigner {
			t.Errorf("account %d (%s) must not be a signer", i, m.Pubkey)
		}
	}
	if ix.Accounts[4].Pubkey != solana.TokenProgramID {
		t.Errorf("expected token program, got %s", ix.Accounts[4].Pubkey)
	}
}

func TestNewResetPollInstruction(t *testing.T) {
	poll := testPubkey(t)
	owner := testPubkey(t)

	ix := NewResetPollInstruction(DefaultProgramID, poll, owner)

	if !bytes.Equal(ix.Data, InstructionDiscriminator("reset_poll")) {
		t.Error("data must be exactly the reset_poll discriminator")
	}

	if len(ix.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(ix.Accounts))
	}
	if !ix.Accounts[0].IsWritable || ix.Accounts[0].IsSigner {
		t.Error("poll must be writable, not a signer")
	}
	if !ix.Accounts[1].IsSigner {
		t.Error("owner must be a signer")
	}
}
