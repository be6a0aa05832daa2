package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-vote-server/internal/observability"
)

// Confirmation errors.
var (
	// ErrConfirmationTimeout means the transaction was submitted but its
	// fate is unknown: the bounded wait expired without a terminal status.
	ErrConfirmationTimeout = errors.New("confirmation timed out: transaction outcome unknown")

	// ErrTransactionFailed means the cluster reported the transaction
	// as executed with an error.
	ErrTransactionFailed = errors.New("transaction failed on chain")
)

// Confirmer waits for a submitted transaction to reach a confirmed state.
type Confirmer interface {
	WaitForConfirmation(ctx context.Context, signature string) error
}

// Default polling parameters.
const (
	DefaultConfirmTimeout  = 60 * time.Second
	DefaultConfirmInterval = 2 * time.Second
)

// PollingConfirmer confirms by polling getSignatureStatuses.
type PollingConfirmer struct {
	rpc      RPCClient
	timeout  time.Duration
	interval time.Duration
}

// NewPollingConfirmer creates a confirmer with the given bounds.
// Zero values fall back to defaults.
func NewPollingConfirmer(rpc RPCClient, timeout, interval time.Duration) *PollingConfirmer {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	if interval <= 0 {
		interval = DefaultConfirmInterval
	}
	return &PollingConfirmer{rpc: rpc, timeout: timeout, interval: interval}
}

// Compile-time interface check.
var _ Confirmer = (*PollingConfirmer)(nil)

// WaitForConfirmation polls until the signature is confirmed or finalized,
// the transaction errors, or the bounded wait expires.
func (c *PollingConfirmer) WaitForConfirmation(ctx context.Context, signature string) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		statuses, err := c.rpc.GetSignatureStatuses(ctx, []string{signature})
		if err == nil && len(statuses) == 1 && statuses[0] != nil {
			status := statuses[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
				observability.RecordConfirmation(time.Since(start).Seconds())
				return nil
			}
		}
		// Unknown signature or transient RPC error: keep polling
		// until the deadline.

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
		case <-ticker.C:
		}
	}
}
