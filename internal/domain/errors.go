package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrLockHeld          = errors.New("lock already held")
	ErrNoOpportunities   = errors.New("no opportunities")
	ErrInvalidCommission = errors.New("commission must be in [0, 1)")
	ErrScanInProgress    = errors.New("scan already in progress")
	ErrInvalidInput      = errors.New("invalid input")
)
