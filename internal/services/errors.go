package services

import "errors"

// Sentinel errors for the service layer. Handlers translate these to HTTP
// statuses; everything else surfaces as an internal error.
var (
	// ErrValidation rejects a request before any write happens.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden rejects a caller whose role does not allow the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound covers both genuinely missing records and records belonging
	// to another organisation, so cross-tenant probing cannot distinguish them.
	ErrNotFound = errors.New("not found")

	// ErrConflict rejects a state transition that is no longer legal, such as
	// sending a campaign that already left DRAFT.
	ErrConflict = errors.New("conflict")
)
