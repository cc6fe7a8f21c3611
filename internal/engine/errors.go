package engine

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrUnknownPartner indicates an engine was requested for a partner no
	// profile is registered for. Unlike dirty data conditions, which
	// degrade to empty results, this is a configuration error and
	// propagates to the caller.
	ErrUnknownPartner = errors.New("unknown partner")

	// ErrInvalidKind indicates a dataset kind outside sales/claims.
	ErrInvalidKind = errors.New("invalid dataset kind")
)
