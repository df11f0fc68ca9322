package domain

import dErrors "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain-errors"

// PredicateKind selects which encrypted comparison a verification runs.
// The comparison happens inside the confidential-computation capability; the
// registry never sees the field value or the boolean outcome in plaintext.
type PredicateKind string

// Supported predicate kinds.
const (
	// PredicateAgeAtLeast compares the encrypted age field with >= against
	// the supplied threshold.
	PredicateAgeAtLeast PredicateKind = "age_ge"
	// PredicateNationalityEquals compares the encrypted citizenship code
	// with == against the supplied code.
	PredicateNationalityEquals PredicateKind = "nationality_eq"
)

// validPredicateKinds is the single source of truth for supported predicates.
var validPredicateKinds = map[PredicateKind]bool{
	PredicateAgeAtLeast:        true,
	PredicateNationalityEquals: true,
}

// ParsePredicateKind constructs a PredicateKind from external input.
//
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParsePredicateKind(s string) (PredicateKind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "predicate kind cannot be empty")
	}
	k := PredicateKind(s)
	if !validPredicateKinds[k] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported predicate kind")
	}
	return k, nil
}

// IsValid checks if the kind is one of the supported enum values.
func (k PredicateKind) IsValid() bool {
	return validPredicateKinds[k]
}

// String returns the string representation of the kind.
func (k PredicateKind) String() string {
	return string(k)
}

// CheckFlags selects which encrypted fields a verification request asks to
// see. At least one flag must be set when a request is created.
type CheckFlags struct {
	Age         bool `json:"age_check"`
	Nationality bool `json:"nationality_check"`
	Identity    bool `json:"identity_check"`
}

// Any reports whether at least one check is selected.
func (f CheckFlags) Any() bool {
	return f.Age || f.Nationality || f.Identity
}
