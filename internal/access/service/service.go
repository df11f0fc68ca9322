// Package service implements the access controller: record owners approve
// or deny verification requests, approvals translate check flags into
// field grants, and predicate queries answer yes/no questions over the
// ciphertext without exposing the underlying values.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/audit"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/confidential"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/environment"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/platform/metrics"
	recordmodels "github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/models"
	verifmodels "github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	dErrors "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain-errors"
)

// RecordLoader is the slice of the record service the controller needs:
// full records including ciphertext handles.
type RecordLoader interface {
	Load(ctx context.Context, id domain.RecordID) (recordmodels.IdentityRecord, error)
}

// RequestLedger is the slice of the verification service the controller
// drives. Process must be terminal-once: a second call for the same index
// fails with CodeInvalidState.
type RequestLedger interface {
	Get(ctx context.Context, recordID domain.RecordID, index int) (verifmodels.VerificationRequest, error)
	Process(ctx context.Context, recordID domain.RecordID, index int, approve bool) (verifmodels.VerificationRequest, error)
}

type Service struct {
	records    RecordLoader
	requests   RequestLedger
	capability confidential.Capability
	serializer *environment.Serializer
	clock      environment.Clock
	audit      *audit.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source, used by expiry tests.
func WithClock(clock environment.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(
	records RecordLoader,
	requests RequestLedger,
	capability confidential.Capability,
	serializer *environment.Serializer,
	pub *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		records:    records,
		requests:   requests,
		capability: capability,
		serializer: serializer,
		audit:      pub,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("access"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Approve lets the record owner approve the pending request at index and
// issues exactly one grant per requested check flag, all addressed to the
// requester. The grants are issued before the request is marked processed,
// so a capability failure leaves the request pending and retryable.
//
// Errors: CodeNotFound (record), CodeUnauthorized (caller is not the
// owner), CodeInvalidState (record inactive or expired, or request already
// processed), CodeOutOfRange (no such request index).
func (s *Service) Approve(ctx context.Context, caller domain.Principal, recordID domain.RecordID, index int) error {
	ctx, span := s.tracer.Start(ctx, "access.Approve")
	defer span.End()

	var requester domain.Principal
	err := s.serializer.Do(func() error {
		record, req, err := s.loadPending(ctx, caller, recordID, index)
		if err != nil {
			return err
		}
		if err := s.grantChecks(ctx, record, req); err != nil {
			return err
		}
		if _, err := s.requests.Process(ctx, recordID, index, true); err != nil {
			return err
		}
		requester = req.Requester
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RequestsApproved.Inc()
	s.audit.Emit(ctx, audit.Event{
		Type:     audit.EventRequestApproved,
		Actor:    caller,
		RecordID: recordID,
		Detail:   fmt.Sprintf("index=%d requester=%s", index, requester),
	})
	s.logger.InfoContext(ctx, "verification request approved",
		"record_id", recordID.String(),
		"index", index,
		"requester", requester.String(),
	)
	return nil
}

// Deny lets the record owner reject the pending request at index. The
// request reaches its terminal state and no grants are issued; the ledger
// entry stays in place.
//
// Errors: same set as Approve.
func (s *Service) Deny(ctx context.Context, caller domain.Principal, recordID domain.RecordID, index int) error {
	ctx, span := s.tracer.Start(ctx, "access.Deny")
	defer span.End()

	err := s.serializer.Do(func() error {
		if _, _, err := s.loadPending(ctx, caller, recordID, index); err != nil {
			return err
		}
		_, err := s.requests.Process(ctx, recordID, index, false)
		return err
	})
	if err != nil {
		return err
	}

	s.metrics.RequestsDenied.Inc()
	s.audit.Emit(ctx, audit.Event{
		Type:     audit.EventRequestDenied,
		Actor:    caller,
		RecordID: recordID,
		Detail:   fmt.Sprintf("index=%d", index),
	})
	s.logger.InfoContext(ctx, "verification request denied",
		"record_id", recordID.String(),
		"index", index,
	)
	return nil
}

// VerifyPredicate evaluates a yes/no predicate against a record's
// ciphertext and returns a handle to the encrypted boolean result, granted
// to the caller alone. No owner approval is involved: the answer reveals a
// single bit, never the field value.
//
// Supported predicates: age_ge (encrypted age >= value) and nationality_eq
// (encrypted citizenship code == value).
//
// Errors: CodeInvalidInput (unknown predicate kind), CodeNotFound,
// CodeInvalidState (record inactive or expired).
func (s *Service) VerifyPredicate(ctx context.Context, caller domain.Principal, recordID domain.RecordID, kind domain.PredicateKind, value uint64) (confidential.Handle, error) {
	ctx, span := s.tracer.Start(ctx, "access.VerifyPredicate")
	defer span.End()

	if !kind.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown predicate kind %q", kind))
	}

	var result confidential.Handle
	err := s.serializer.Do(func() error {
		record, err := s.records.Load(ctx, recordID)
		if err != nil {
			return err
		}
		if !record.IsValid(s.clock()) {
			return dErrors.New(dErrors.CodeInvalidState, "record is inactive or expired")
		}

		result, err = s.evaluate(ctx, record, kind, value)
		if err != nil {
			return err
		}
		if err := s.capability.Grant(ctx, result, caller); err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "grant predicate result", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.metrics.PredicatesVerified.WithLabelValues(string(kind)).Inc()
	s.audit.Emit(ctx, audit.Event{
		Type:     audit.EventPredicateVerified,
		Actor:    caller,
		RecordID: recordID,
		Detail:   string(kind),
	})
	s.logger.InfoContext(ctx, "predicate verified",
		"record_id", recordID.String(),
		"kind", string(kind),
		"caller", caller.String(),
	)
	return result, nil
}

// loadPending fetches the record and the request at index, enforcing the
// owner-only and still-pending preconditions shared by Approve and Deny.
func (s *Service) loadPending(ctx context.Context, caller domain.Principal, recordID domain.RecordID, index int) (recordmodels.IdentityRecord, verifmodels.VerificationRequest, error) {
	record, err := s.records.Load(ctx, recordID)
	if err != nil {
		return recordmodels.IdentityRecord{}, verifmodels.VerificationRequest{}, err
	}
	if caller != record.Owner {
		return recordmodels.IdentityRecord{}, verifmodels.VerificationRequest{},
			dErrors.New(dErrors.CodeUnauthorized, "only the record owner may decide a verification request")
	}
	if !record.IsValid(s.clock()) {
		return recordmodels.IdentityRecord{}, verifmodels.VerificationRequest{},
			dErrors.New(dErrors.CodeInvalidState, "record is inactive or expired")
	}
	req, err := s.requests.Get(ctx, recordID, index)
	if err != nil {
		return recordmodels.IdentityRecord{}, verifmodels.VerificationRequest{}, err
	}
	if req.Processed {
		return recordmodels.IdentityRecord{}, verifmodels.VerificationRequest{},
			dErrors.New(dErrors.CodeInvalidState, "request already processed")
	}
	return record, req, nil
}

// grantChecks issues one grant per requested check flag, each addressed to
// the requester.
func (s *Service) grantChecks(ctx context.Context, record recordmodels.IdentityRecord, req verifmodels.VerificationRequest) error {
	var fields []recordmodels.FieldKind
	if req.Checks.Age {
		fields = append(fields, recordmodels.FieldAge)
	}
	if req.Checks.Nationality {
		fields = append(fields, recordmodels.FieldCitizenship)
	}
	if req.Checks.Identity {
		fields = append(fields, recordmodels.FieldNationalID)
	}
	for _, field := range fields {
		if err := s.capability.Grant(ctx, record.FieldHandle(field), req.Requester); err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "grant field access", err)
		}
		s.metrics.GrantsIssued.Inc()
	}
	return nil
}

func (s *Service) evaluate(ctx context.Context, record recordmodels.IdentityRecord, kind domain.PredicateKind, value uint64) (confidential.Handle, error) {
	switch kind {
	case domain.PredicateAgeAtLeast:
		threshold, err := s.capability.Encrypt(ctx, value, confidential.WidthAge)
		if err != nil {
			return "", dErrors.Wrap(dErrors.CodeInternal, "encrypt threshold", err)
		}
		result, err := s.capability.CompareGE(ctx, record.EncryptedAge, threshold)
		if err != nil {
			return "", dErrors.Wrap(dErrors.CodeInternal, "compare age", err)
		}
		return result, nil
	case domain.PredicateNationalityEquals:
		expected, err := s.capability.Encrypt(ctx, value, confidential.WidthCitizenship)
		if err != nil {
			return "", dErrors.Wrap(dErrors.CodeInternal, "encrypt expected code", err)
		}
		result, err := s.capability.CompareEQ(ctx, record.EncryptedCitizenship, expected)
		if err != nil {
			return "", dErrors.Wrap(dErrors.CodeInternal, "compare citizenship", err)
		}
		return result, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown predicate kind %q", kind))
	}
}
