package solana

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedRPC returns one scripted status list per GetSignatureStatuses
// call, repeating the last entry once the script runs out.
type scriptedRPC struct {
	mu     sync.Mutex
	script [][]*SignatureStatus
	calls  int
}

func (s *scriptedRPC) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	return s.script[idx], nil
}

func (s *scriptedRPC) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	return nil, nil
}

func (s *scriptedRPC) GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error) {
	return &LatestBlockhash{Blockhash: "EETubP5AKHgjPAhzPAFcb8BAY1hMH639CWCFTqi3hq1k"}, nil
}

func (s *scriptedRPC) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	return "sig", nil
}

func (s *scriptedRPC) GetProgramAccounts(ctx context.Context, programID, memcmpBase58 string) ([]ProgramAccount, error) {
	return nil, nil
}

func TestPollingConfirmer_Confirmed(t *testing.T) {
	rpc := &scriptedRPC{script: [][]*SignatureStatus{
		{nil}, // not yet visible
		{{Slot: 10, ConfirmationStatus: "processed"}},
		{{Slot: 10, ConfirmationStatus: "confirmed"}},
	}}

	confirmer := NewPollingConfirmer(rpc, 2*time.Second, 5*time.Millisecond)

	if err := confirmer.WaitForConfirmation(context.Background(), "sig"); err != nil {
		t.Fatalf("WaitForConfirmation: %v", err)
	}

	if rpc.calls < 3 {
		t.Errorf("expected at least 3 polls, got %d", rpc.calls)
	}
}

func TestPollingConfirmer_TransactionFailed(t *testing.T) {
	rpc := &scriptedRPC{script: [][]*SignatureStatus{
		{{Slot: 10, ConfirmationStatus: "confirmed", Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}}},
	}}

	confirmer := NewPollingConfirmer(rpc, 2*time.Second, 5*time.Millisecond)

	err := confirmer.WaitForConfirmation(context.Background(), "sig")
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}
}

func TestPollingConfirmer_Timeout(t *testing.T) {
	rpc := &scriptedRPC{script: [][]*SignatureStatus{
		{nil}, // never visible
	}}

	confirmer := NewPollingConfirmer(rpc, 30*time.Millisecond, 5*time.Millisecond)

	err := confirmer.WaitForConfirmation(context.Background(), "sig")
	if !errors.Is(err, ErrConfirmationTimeout) {
		t.Fatalf("expected ErrConfirmationTimeout, got %v", err)
	}
}

func TestPollingConfirmer_Finalized(t *testing.T) {
	rpc := &scriptedRPC{script: [][]*SignatureStatus{
		{{Slot: 10, ConfirmationStatus: "finalized"}},
	}}

	confirmer := NewPollingConfirmer(rpc, 2*time.Second, 5*time.Millisecond)

	if err := confirmer.WaitForConfirmation(context.Background(), "sig"); err != nil {
		t.Fatalf("WaitForConfirmation: %v", err)
	}
}
