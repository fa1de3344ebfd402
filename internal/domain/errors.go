package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrLockHeld        = errors.New("lock already held")
	ErrLockLost        = errors.New("lock lost")
	ErrInvalidConfig   = errors.New("invalid strategy configuration")
	ErrOddsUnavailable = errors.New("odds unavailable")
	ErrExecutorMissing = errors.New("live execution requested without an executor")
	ErrUnknownVenue    = errors.New("unknown venue")
)
