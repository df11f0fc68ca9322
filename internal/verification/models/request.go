package models

import (
	"time"

	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

// VerificationRequest is one entry in a record's append-only request list.
//
// Invariants:
//   - Index is the request's permanent identifier within its record:
//     0-based, assigned at append, never shifted (requests are never deleted)
//   - At least one check flag is true at creation
//   - Processed is monotonic: false → true exactly once, never back
//   - Approved implies Processed; a request is approved or denied, not both
type VerificationRequest struct {
	RecordID    domain.RecordID   `json:"record_id"`
	Index       int               `json:"index"`
	Requester   domain.Principal  `json:"requester"`
	Purpose     string            `json:"purpose"`
	Checks      domain.CheckFlags `json:"checks"`
	Approved    bool              `json:"approved"`
	Processed   bool              `json:"processed"`
	RequestedAt time.Time         `json:"requested_at"`
}
