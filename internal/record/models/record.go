package models

import (
	"time"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/confidential"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

// Validity bounds for newly issued records.
const (
	MinValidityYears = 1
	MaxValidityYears = 10
)

// YearDuration is the fixed year length used when computing expiry. Expiry
// is a read-time predicate, not a stored transition, so a fixed duration
// keeps the arithmetic reproducible.
const YearDuration = 365 * 24 * time.Hour

// IdentityRecord is the aggregate root for one issued passport record.
//
// Invariants:
//   - ID is positive, immutable, dense, and never reused
//   - At most one active record exists per owner
//   - ExpiresAt is strictly after IssuedAt
//   - Active transitions true → false exactly once and never back
//   - Once Active is false, no grant may name the record's fields as current
//
// The three numeric fields exist only as ciphertext handles: the registry
// never holds their plaintext. NameBlob and CountryBlob are encrypted at
// rest by the caller and stored as opaque bytes; no computation touches them.
type IdentityRecord struct {
	ID                   domain.RecordID
	Owner                domain.Principal
	EncryptedAge         confidential.Handle
	EncryptedNationalID  confidential.Handle
	EncryptedCitizenship confidential.Handle
	NameBlob             []byte
	CountryBlob          []byte
	Active               bool
	Verified             bool
	IssuedAt             time.Time
	ExpiresAt            time.Time
}

// IsValid is the validity predicate guarding nearly every other operation:
// the record is active and the current time has not passed expiry.
func (r IdentityRecord) IsValid(now time.Time) bool {
	return r.Active && !now.After(r.ExpiresAt)
}

// FieldHandle returns the ciphertext handle behind a check flag category.
func (r IdentityRecord) FieldHandle(kind FieldKind) confidential.Handle {
	switch kind {
	case FieldAge:
		return r.EncryptedAge
	case FieldNationalID:
		return r.EncryptedNationalID
	case FieldCitizenship:
		return r.EncryptedCitizenship
	}
	return ""
}

// FieldKind names one of the three encrypted numeric fields.
type FieldKind string

const (
	FieldAge         FieldKind = "age"
	FieldNationalID  FieldKind = "national_id"
	FieldCitizenship FieldKind = "citizenship_code"
)

// PublicRecord is the read-surface view of a record: everything a caller may
// see without any grant. Ciphertext handles are deliberately excluded.
type PublicRecord struct {
	ID          domain.RecordID  `json:"id"`
	Owner       domain.Principal `json:"owner"`
	Active      bool             `json:"active"`
	Verified    bool             `json:"verified"`
	IssuedAt    time.Time        `json:"issued_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
	NameBlob    []byte           `json:"name_blob"`
	CountryBlob []byte           `json:"country_blob"`
}

// Public projects the record onto its grant-free view.
func (r IdentityRecord) Public() PublicRecord {
	return PublicRecord{
		ID:          r.ID,
		Owner:       r.Owner,
		Active:      r.Active,
		Verified:    r.Verified,
		IssuedAt:    r.IssuedAt,
		ExpiresAt:   r.ExpiresAt,
		NameBlob:    r.NameBlob,
		CountryBlob: r.CountryBlob,
	}
}
