package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

// EventType labels what happened. Kept coarse: one type per registry
// operation that mutates state or issues grants.
type EventType string

const (
	EventRecordIssued         EventType = "record_issued"
	EventRecordRevoked        EventType = "record_revoked"
	EventRequestSubmitted     EventType = "request_submitted"
	EventRequestApproved      EventType = "request_approved"
	EventRequestDenied        EventType = "request_denied"
	EventPredicateVerified    EventType = "predicate_verified"
	EventVerifierAuthorized   EventType = "verifier_authorized"
	EventVerifierRevoked      EventType = "verifier_revoked"
	EventAuthorityTransferred EventType = "authority_transferred"
)

// Event is one append-only audit entry. Events never carry plaintext from
// encrypted fields; Detail is limited to operational facts (request indices,
// predicate kinds, grantee principals).
type Event struct {
	ID        uuid.UUID        `json:"id"`
	Type      EventType        `json:"type"`
	Actor     domain.Principal `json:"actor"`
	RecordID  domain.RecordID  `json:"record_id,omitempty"`
	Detail    string           `json:"detail,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
