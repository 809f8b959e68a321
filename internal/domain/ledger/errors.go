package ledger

import "errors"

var (
	// ErrInvalidAmount is returned when credits amount is <= 0
	ErrInvalidAmount = errors.New("credits amount must be greater than zero")

	// ErrMissingSourceEvent is returned when no idempotency key was supplied
	ErrMissingSourceEvent = errors.New("source event id is required")

	// ErrEntryNotFound is returned when a ledger entry does not exist
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrPersistence wraps storage failures; safe to retry with the same
	// source event id since duplicates collapse into one entry
	ErrPersistence = errors.New("ledger store unavailable")
)
