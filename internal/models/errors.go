package models

import "errors"

var (
	// ErrNetworkFailure covers timeouts, transport errors and non-2xx responses.
	ErrNetworkFailure = errors.New("network failure")
	// ErrParseMiss means the page was fetched but held no plausible rate.
	ErrParseMiss = errors.New("no plausible rate found")
	// ErrValidation means the persisted state was missing, corrupt or incomplete.
	ErrValidation = errors.New("invalid tracker state")
	// ErrDuplicateEntry is returned when adding a code that is already tracked.
	ErrDuplicateEntry = errors.New("currency already tracked")

	ErrEmptyCode       = errors.New("currency code is required")
	ErrNotFound        = errors.New("currency not found")
	ErrIndexOutOfRange = errors.New("index out of range")
)
