// Package service implements the record store operations: issuing identity
// records with encrypted fields, revoking them, and the validity predicate
// guarding the rest of the registry.
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
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/confidential"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/environment"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/platform/metrics"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/cache"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/store"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	dErrors "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain-errors"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
)

// AuthorityChecker is the slice of the authority service the record store
// needs. Defined here to keep the dependency direction inward.
type AuthorityChecker interface {
	IsAuthority(ctx context.Context, p domain.Principal) (bool, error)
}

// IssueParams carries the plaintext inputs for a new record. Plaintext
// exists only transiently here: the three numeric values go straight into
// the capability and are never persisted.
type IssueParams struct {
	Owner           domain.Principal
	Age             uint64
	NationalID      uint64
	CitizenshipCode uint64
	NameBlob        []byte
	CountryBlob     []byte
	ValidityYears   int
}

type Service struct {
	store      store.Store
	authority  AuthorityChecker
	capability confidential.Capability
	serializer *environment.Serializer
	clock      environment.Clock
	cache      *cache.Cache
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

// WithCache attaches the Redis metadata cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func New(
	st store.Store,
	authority AuthorityChecker,
	capability confidential.Capability,
	serializer *environment.Serializer,
	pub *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:      st,
		authority:  authority,
		capability: capability,
		serializer: serializer,
		audit:      pub,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("record"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Issue creates a new identity record for params.Owner.
//
// The operation is all-or-nothing: every precondition is checked before the
// first mutation, the capability calls (encryption plus the grant-self and
// grant-owner instructions per field) happen next, and the store commit is
// last. A failure at any point leaves the ID counter and owner index
// untouched.
//
// Errors: CodeUnauthorized (caller is not the authority), CodeInvalidInput
// (empty owner or validity years out of bounds), CodeConflict (owner
// already holds an active record).
func (s *Service) Issue(ctx context.Context, caller domain.Principal, params IssueParams) (domain.RecordID, error) {
	ctx, span := s.tracer.Start(ctx, "record.Issue")
	defer span.End()

	if params.Owner.IsZero() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "owner cannot be empty")
	}
	if params.ValidityYears < models.MinValidityYears || params.ValidityYears > models.MaxValidityYears {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "validity years must be between 1 and 10")
	}

	var id domain.RecordID
	err := s.serializer.Do(func() error {
		if err := s.requireAuthority(ctx, caller); err != nil {
			return err
		}
		existing, err := s.store.IDByOwner(ctx, params.Owner)
		if err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "owner index lookup", err)
		}
		if !existing.IsZero() {
			return dErrors.New(dErrors.CodeConflict, "owner already holds an active record")
		}

		record, err := s.sealFields(ctx, params)
		if err != nil {
			return err
		}

		now := s.clock()
		record.Owner = params.Owner
		record.Active = true
		record.Verified = true
		record.IssuedAt = now
		record.ExpiresAt = now.Add(time.Duration(params.ValidityYears) * models.YearDuration)

		id, err = s.store.Create(ctx, record)
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "owner already holds an active record")
			}
			return dErrors.Wrap(dErrors.CodeInternal, "persist record", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.RecordsIssued.Inc()
	s.audit.Emit(ctx, audit.Event{
		Type:     audit.EventRecordIssued,
		Actor:    caller,
		RecordID: id,
		Detail:   "owner=" + params.Owner.String(),
	})
	s.logger.InfoContext(ctx, "record issued",
		"record_id", id.String(),
		"owner", params.Owner.String(),
		"validity_years", params.ValidityYears,
	)
	return id, nil
}

// sealFields encrypts the three numeric fields and issues the grant-self
// and grant-owner instructions for each. Any capability failure aborts the
// whole issue before the store is touched.
func (s *Service) sealFields(ctx context.Context, params IssueParams) (models.IdentityRecord, error) {
	var record models.IdentityRecord

	fields := []struct {
		plain  uint64
		width  int
		target *confidential.Handle
	}{
		{params.Age, confidential.WidthAge, &record.EncryptedAge},
		{params.NationalID, confidential.WidthNationalID, &record.EncryptedNationalID},
		{params.CitizenshipCode, confidential.WidthCitizenship, &record.EncryptedCitizenship},
	}
	for _, f := range fields {
		handle, err := s.capability.Encrypt(ctx, f.plain, f.width)
		if err != nil {
			return models.IdentityRecord{}, dErrors.Wrap(dErrors.CodeInternal, "encrypt field", err)
		}
		if err := s.capability.GrantSelf(ctx, handle); err != nil {
			return models.IdentityRecord{}, dErrors.Wrap(dErrors.CodeInternal, "grant engine access", err)
		}
		if err := s.capability.Grant(ctx, handle, params.Owner); err != nil {
			return models.IdentityRecord{}, dErrors.Wrap(dErrors.CodeInternal, "grant owner access", err)
		}
		s.metrics.GrantsIssued.Inc()
		*f.target = handle
	}
	record.NameBlob = params.NameBlob
	record.CountryBlob = params.CountryBlob
	return record, nil
}

// Revoke permanently deactivates a record. Irreversible: there is no
// operation that sets Active back to true, and the validity predicate fails
// for the record forever after.
//
// Errors: CodeUnauthorized, CodeNotFound, CodeInvalidState (already revoked
// or expired).
func (s *Service) Revoke(ctx context.Context, caller domain.Principal, id domain.RecordID) error {
	ctx, span := s.tracer.Start(ctx, "record.Revoke")
	defer span.End()

	err := s.serializer.Do(func() error {
		if err := s.requireAuthority(ctx, caller); err != nil {
			return err
		}
		record, err := s.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "record not found")
			}
			return dErrors.Wrap(dErrors.CodeInternal, "load record", err)
		}
		if !record.IsValid(s.clock()) {
			return dErrors.New(dErrors.CodeInvalidState, "record is inactive or expired")
		}
		if err := s.store.Deactivate(ctx, id); err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "deactivate record", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, id)
	s.metrics.RecordsRevoked.Inc()
	s.audit.Emit(ctx, audit.Event{
		Type:     audit.EventRecordRevoked,
		Actor:    caller,
		RecordID: id,
	})
	s.logger.InfoContext(ctx, "record revoked", "record_id", id.String())
	return nil
}

// IsValid is the registry-wide validity predicate: the record exists, is
// active, and has not expired. It never returns an error; unknown records
// are simply invalid.
func (s *Service) IsValid(ctx context.Context, id domain.RecordID) bool {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return false
	}
	return record.IsValid(s.clock())
}

// Load returns the full record for use by sibling services (access
// controller needs the ciphertext handles). Not exposed over transport.
func (s *Service) Load(ctx context.Context, id domain.RecordID) (models.IdentityRecord, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.IdentityRecord{}, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return models.IdentityRecord{}, dErrors.Wrap(dErrors.CodeInternal, "load record", err)
	}
	return record, nil
}

// Get returns the grant-free public projection, served through the Redis
// cache when configured.
func (s *Service) Get(ctx context.Context, id domain.RecordID) (models.PublicRecord, error) {
	if cached, ok := s.cache.Get(ctx, id); ok {
		return cached, nil
	}
	record, err := s.Load(ctx, id)
	if err != nil {
		return models.PublicRecord{}, err
	}
	public := record.Public()
	s.cache.Set(ctx, public)
	return public, nil
}

// RecordIDOf returns the owner's current active record ID, zero when the
// owner has none.
func (s *Service) RecordIDOf(ctx context.Context, owner domain.Principal) (domain.RecordID, error) {
	id, err := s.store.IDByOwner(ctx, owner)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "owner index lookup", err)
	}
	return id, nil
}

func (s *Service) requireAuthority(ctx context.Context, caller domain.Principal) error {
	ok, err := s.authority.IsAuthority(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, fmt.Sprintf("principal %q is not the registry authority", caller))
	}
	return nil
}
