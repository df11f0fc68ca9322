package sentinel

import "errors"

// Sentinel errors for store-level facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors without
// the stores knowing the taxonomy.
//
// These represent factual states about persisted entities, not validation
// failures:
// - ErrNotFound: record or request does not exist in the store
// - ErrConflict: a uniqueness invariant would break (second active record for an owner)
// - ErrExpired: record is past its expiry timestamp
// - ErrAlreadyUsed: request has already been processed (approved or denied)
// - ErrInvalidState: entity is in the wrong state for the mutation (revoked record)
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
)
