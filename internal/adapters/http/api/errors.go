package api

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	errMissingPartner   = errors.New("partner is required")
	errMissingDimension = errors.New("dimension and metric are required")
	errInvalidKind      = errors.New("dataset_kind must be sales or claims")
	errInvalidFrom      = errors.New("from is not a recognized date")
	errInvalidTo        = errors.New("to is not a recognized date")
)
