package service

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNotStarted indicates a call before Start or after Stop.
	ErrNotStarted = errors.New("service not started")

	// ErrTooManyRows indicates an upload beyond the configured cap.
	ErrTooManyRows = errors.New("too many rows in upload")

	// ErrNoRecords indicates an upload with no usable rows.
	ErrNoRecords = errors.New("no records in upload")
)
