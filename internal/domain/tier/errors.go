package tier

import "errors"

var (
	ErrTierNotFound = errors.New("tier not found")
)
