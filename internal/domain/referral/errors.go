package referral

import "errors"

var (
	ErrUnknownCode       = errors.New("referral code not found")
	ErrAlreadyAttributed = errors.New("user already has a referrer")
	ErrInternal          = errors.New("internal referral error")
)
