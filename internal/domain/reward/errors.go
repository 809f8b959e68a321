package reward

import "errors"

var (
	// ErrUnknownAction is returned for an absent or inactive action slug
	ErrUnknownAction = errors.New("unknown reward action")

	// ErrActionNotAllowed is returned when the acting role is not permitted
	ErrActionNotAllowed = errors.New("action not allowed for role")

	// ErrInvalidAmount is returned for a non-positive amount on an
	// amount-bearing action
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrMissingReference is returned when no triggering event id was given
	ErrMissingReference = errors.New("source event reference is required")
)
