package domain

import (
	"strconv"
	"strings"

	dErrors "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain-errors"
)

// Principal is the authenticated identity acting on the registry. The
// execution environment (JWT subject at the HTTP boundary) supplies it; core
// operations receive it explicitly rather than reading ambient state.
//
// Invariant: a Principal is non-empty. Construct via ParsePrincipal at trust
// boundaries; direct casting bypasses validation.
type Principal string

// NoPrincipal is the zero value, used where "nobody" is meaningful
// (e.g. an owner index miss).
const NoPrincipal Principal = ""

// ParsePrincipal constructs a Principal from external input.
//
// Errors: CodeInvalidInput when the value is empty or whitespace-only.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoPrincipal, dErrors.New(dErrors.CodeInvalidInput, "principal cannot be empty")
	}
	return Principal(s), nil
}

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool {
	return p == NoPrincipal
}

// String returns the string representation of the principal.
func (p Principal) String() string {
	return string(p)
}

// RecordID identifies an identity record. IDs are dense, start at 1, grow
// monotonically, and are never reused after revocation. Zero means "no
// record".
type RecordID uint64

// ParseRecordID constructs a RecordID from external input (URL segments).
//
// Errors: CodeInvalidInput for non-numeric or zero values.
func ParseRecordID(s string) (RecordID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "record id must be a positive integer")
	}
	return RecordID(n), nil
}

// IsZero reports whether the ID is unset.
func (id RecordID) IsZero() bool {
	return id == 0
}

// String returns the decimal representation of the ID.
func (id RecordID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
