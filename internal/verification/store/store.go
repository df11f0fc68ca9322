package store

import (
	"context"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

// Store persists per-record verification request lists. Lists are
// append-only with stable 0-based indices.
//
// Stores return sentinel errors; services translate them into coded errors.
type Store interface {
	// Append adds the request to the record's list and returns its index.
	Append(ctx context.Context, request models.VerificationRequest) (int, error)

	// Get returns the request at (recordID, index), or sentinel.ErrNotFound
	// when the index is beyond the list.
	Get(ctx context.Context, recordID domain.RecordID, index int) (models.VerificationRequest, error)

	// Count returns the list length for a record (zero for unknown records).
	Count(ctx context.Context, recordID domain.RecordID) (int, error)

	// MarkProcessed terminates the request: Processed=true and
	// Approved=approved, indivisibly. Returns sentinel.ErrNotFound for a
	// bad index and sentinel.ErrAlreadyUsed when the request was already
	// processed. On success the updated request is returned.
	MarkProcessed(ctx context.Context, recordID domain.RecordID, index int, approved bool) (models.VerificationRequest, error)
}
