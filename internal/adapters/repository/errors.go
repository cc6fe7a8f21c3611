package repository

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNoMarker indicates no freshness marker exists for the tag yet.
	ErrNoMarker = errors.New("no freshness marker")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store closed")
)
