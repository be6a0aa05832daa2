package domain

// ExchangeOutcome tags the terminal state of an exchange attempt.
type ExchangeOutcome string

const (
	// OutcomeCommitted means the debit stuck and the transfer confirmed.
	OutcomeCommitted ExchangeOutcome = "COMMITTED"
	// OutcomeCompensated means the transfer failed and the debit was refunded.
	OutcomeCompensated ExchangeOutcome = "COMPENSATED"
	// OutcomeAmbiguous means the transfer was submitted but never confirmed
	// within the bounded wait; the debit stands.
	OutcomeAmbiguous ExchangeOutcome = "AMBIGUOUS"
)

// ExchangeEvent is one append-only audit record of a points-to-token
// exchange attempt that reached the debit step.
type ExchangeEvent struct {
	Wallet       string
	Amount       int64
	PointsBefore int64
	PointsAfter  int64
	TxSignature  string
	Outcome      ExchangeOutcome
	OccurredAt   int64 // Unix ms
}
