package rules

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrChoiceResolved = errors.New("award choice is already resolved")
	ErrChoiceExpired  = errors.New("award choice is expired")
	ErrInvalidChoice  = errors.New("invalid award choice")
	ErrInvalidRule    = errors.New("invalid rule")
	ErrNoTimezone     = errors.New("business timezone is not set")
)
