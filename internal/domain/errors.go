package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrLockHeld           = errors.New("lock already held")
	ErrMissingCredentials = errors.New("missing venue credentials")
	ErrIncompleteFetch    = errors.New("incomplete fetch")
	ErrSkippedRecords     = errors.New("malformed records skipped")
)
