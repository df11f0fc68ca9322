package store

import (
	"context"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

// Store persists identity records. Implementations must make Create
// indivisible: the ID allocation, the row insert, and the owner index entry
// all land together or not at all, and no reader may observe a record with
// an assigned ID but missing fields.
//
// Stores return sentinel errors; services translate them into coded errors.
type Store interface {
	// Create assigns the next sequential ID (starting at 1, never reused),
	// persists the record, and indexes owner → ID. Returns
	// sentinel.ErrConflict when the owner already holds an active record.
	Create(ctx context.Context, record models.IdentityRecord) (domain.RecordID, error)

	// Get returns the record or sentinel.ErrNotFound.
	Get(ctx context.Context, id domain.RecordID) (models.IdentityRecord, error)

	// Deactivate sets Active=false and clears the owner index entry.
	// Returns sentinel.ErrNotFound for unknown IDs. Idempotence is not
	// required: the service guards with the validity predicate first.
	Deactivate(ctx context.Context, id domain.RecordID) error

	// IDByOwner returns the owner's current active record ID, or zero with
	// no error when the owner has none.
	IDByOwner(ctx context.Context, owner domain.Principal) (domain.RecordID, error)
}
