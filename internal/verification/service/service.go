// Package service implements the verification request ledger: verifiers
// submit requests against a record, the ledger assigns stable indices, and
// the access controller marks them processed exactly once.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/audit"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/environment"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/platform/metrics"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/store"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	dErrors "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain-errors"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
)

// RoleChecker is the slice of the authority service the ledger needs to
// gate submissions.
type RoleChecker interface {
	IsAuthority(ctx context.Context, p domain.Principal) (bool, error)
	IsVerifier(ctx context.Context, p domain.Principal) (bool, error)
}

// RecordValidator reports whether a record is active and unexpired.
type RecordValidator interface {
	IsValid(ctx context.Context, id domain.RecordID) bool
}

type Service struct {
	store      store.Store
	roles      RoleChecker
	records    RecordValidator
	serializer *environment.Serializer
	clock      environment.Clock
	audit      *audit.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(clock environment.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(
	st store.Store,
	roles RoleChecker,
	records RecordValidator,
	serializer *environment.Serializer,
	pub *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:      st,
		roles:      roles,
		records:    records,
		serializer: serializer,
		audit:      pub,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Submit appends a verification request to the record's ledger and returns
// its index. Indices start at zero per record and never shift: requests are
// append-only and survive denial, approval, and record revocation.
//
// Errors: CodeInvalidInput (no check flags set), CodeUnauthorized (caller
// is neither an authorized verifier nor the authority), CodeInvalidState
// (record unknown, inactive, or expired).
func (s *Service) Submit(ctx context.Context, caller domain.Principal, recordID domain.RecordID, purpose string, checks domain.CheckFlags) (int, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Submit")
	defer span.End()

	if !checks.Any() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "at least one check flag must be set")
	}

	var index int
	err := s.serializer.Do(func() error {
		if err := s.requireVerifier(ctx, caller); err != nil {
			return err
		}
		if !s.records.IsValid(ctx, recordID) {
			return dErrors.New(dErrors.CodeInvalidState, "record is inactive or expired")
		}
		var err error
		index, err = s.store.Append(ctx, models.VerificationRequest{
			RecordID:    recordID,
			Requester:   caller,
			Purpose:     purpose,
			Checks:      checks,
			RequestedAt: s.clock(),
		})
		if err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "append verification request", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.RequestsSubmitted.Inc()
	s.audit.Emit(ctx, audit.Event{
		Type:     audit.EventRequestSubmitted,
		Actor:    caller,
		RecordID: recordID,
		Detail:   fmt.Sprintf("index=%d purpose=%s", index, purpose),
	})
	s.logger.InfoContext(ctx, "verification request submitted",
		"record_id", recordID.String(),
		"index", index,
		"requester", caller.String(),
	)
	return index, nil
}

// Get returns the request at the given index on the record's ledger.
//
// Errors: CodeOutOfRange when the index does not exist for the record.
func (s *Service) Get(ctx context.Context, recordID domain.RecordID, index int) (models.VerificationRequest, error) {
	req, err := s.store.Get(ctx, recordID, index)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.VerificationRequest{}, dErrors.New(dErrors.CodeOutOfRange, "verification request not found")
		}
		return models.VerificationRequest{}, dErrors.Wrap(dErrors.CodeInternal, "load verification request", err)
	}
	return req, nil
}

// Count returns the number of requests ever submitted against the record,
// processed or not. Zero for unknown records.
func (s *Service) Count(ctx context.Context, recordID domain.RecordID) (int, error) {
	n, err := s.store.Count(ctx, recordID)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "count verification requests", err)
	}
	return n, nil
}

// Process transitions a pending request to its terminal processed state and
// returns the updated request. Called by the access controller while it
// holds the serializer; this method does not take the lock itself.
//
// Errors: CodeOutOfRange (no such request), CodeInvalidState (already
// processed).
func (s *Service) Process(ctx context.Context, recordID domain.RecordID, index int, approve bool) (models.VerificationRequest, error) {
	req, err := s.store.MarkProcessed(ctx, recordID, index, approve)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return models.VerificationRequest{}, dErrors.New(dErrors.CodeOutOfRange, "verification request not found")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return models.VerificationRequest{}, dErrors.New(dErrors.CodeInvalidState, "request already processed")
		default:
			return models.VerificationRequest{}, dErrors.Wrap(dErrors.CodeInternal, "process verification request", err)
		}
	}
	return req, nil
}

func (s *Service) requireVerifier(ctx context.Context, caller domain.Principal) error {
	verifier, err := s.roles.IsVerifier(ctx, caller)
	if err != nil {
		return err
	}
	if verifier {
		return nil
	}
	authority, err := s.roles.IsAuthority(ctx, caller)
	if err != nil {
		return err
	}
	if !authority {
		return dErrors.New(dErrors.CodeUnauthorized, fmt.Sprintf("principal %q is not an authorized verifier", caller))
	}
	return nil
}
