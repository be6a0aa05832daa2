package storage

import "errors"

// Storage errors.
var (
	// ErrInsufficientBalance is returned when a debit exceeds the
	// wallet's current balance. No mutation occurs.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
