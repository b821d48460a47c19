package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrEmailTaken           = errors.New("email already registered")
	ErrSignupRequired       = errors.New("signup required")
	ErrSubscriptionRequired = errors.New("subscription required")
	ErrProviderFailure      = errors.New("provider failure")
	ErrBankEmpty            = errors.New("question bank empty")
)
