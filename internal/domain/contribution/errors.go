package contribution

import "errors"

var (
	ErrInvalidAmount = errors.New("contribution amount must be positive")
	ErrInternal      = errors.New("internal contribution error")
)
