package domain

import "errors"

// Error categories for the vault engine. Callers branch with errors.Is; the
// wrapped chain carries the diagnostic detail.
var (
	// ErrSourceUnavailable a data source (chain or journal) could not be read.
	// Recoverable while a further source exists in the fallback order.
	ErrSourceUnavailable = errors.New("data source unavailable")

	// ErrValidation the request violates a precondition (minimum amount,
	// insufficient shares, malformed address). Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrVenueRejected the exchange rejected the order.
	ErrVenueRejected = errors.New("venue rejected order")

	// ErrComputation order parameter derivation failed on malformed
	// order-book or instrument metadata. Fails closed, no partial result.
	ErrComputation = errors.New("order parameter computation failed")
)
