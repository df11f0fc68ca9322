//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/store/postgres"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/testutil/containers"
)

type RecordStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
}

func TestRecordStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RecordStoreSuite))
}

func (s *RecordStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *RecordStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "identity_records"))
}

func record(owner domain.Principal) models.IdentityRecord {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return models.IdentityRecord{
		Owner:                owner,
		EncryptedAge:         "h-age",
		EncryptedNationalID:  "h-nid",
		EncryptedCitizenship: "h-citz",
		NameBlob:             []byte("sealed-name"),
		CountryBlob:          []byte("sealed-country"),
		Active:               true,
		Verified:             true,
		IssuedAt:             now,
		ExpiresAt:            now.Add(365 * 24 * time.Hour),
	}
}

func (s *RecordStoreSuite) TestCreateAssignsDenseIDs() {
	ctx := context.Background()

	first, err := s.store.Create(ctx, record("did:example:alice"))
	s.Require().NoError(err)
	second, err := s.store.Create(ctx, record("did:example:bob"))
	s.Require().NoError(err)

	s.Equal(domain.RecordID(1), first)
	s.Equal(domain.RecordID(2), second)
}

func (s *RecordStoreSuite) TestActiveOwnerUniqueness() {
	ctx := context.Background()

	_, err := s.store.Create(ctx, record("did:example:alice"))
	s.Require().NoError(err)

	_, err = s.store.Create(ctx, record("did:example:alice"))
	s.ErrorIs(err, sentinel.ErrConflict)

	// A failed insert must not burn an ID.
	next, err := s.store.Create(ctx, record("did:example:bob"))
	s.Require().NoError(err)
	s.Equal(domain.RecordID(2), next)
}

func (s *RecordStoreSuite) TestDeactivateFreesOwnerNotID() {
	ctx := context.Background()

	id, err := s.store.Create(ctx, record("did:example:alice"))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Deactivate(ctx, id))

	got, err := s.store.Get(ctx, id)
	s.Require().NoError(err)
	s.False(got.Active)

	byOwner, err := s.store.IDByOwner(ctx, "did:example:alice")
	s.Require().NoError(err)
	s.True(byOwner.IsZero())

	// Reissue lands on a fresh ID; the old row stays in place.
	reissued, err := s.store.Create(ctx, record("did:example:alice"))
	s.Require().NoError(err)
	s.Equal(domain.RecordID(2), reissued)
}

func (s *RecordStoreSuite) TestGetRoundTripsHandles() {
	ctx := context.Background()

	id, err := s.store.Create(ctx, record("did:example:alice"))
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(domain.Principal("did:example:alice"), got.Owner)
	s.EqualValues("h-age", got.EncryptedAge)
	s.EqualValues("h-nid", got.EncryptedNationalID)
	s.EqualValues("h-citz", got.EncryptedCitizenship)
	s.Equal([]byte("sealed-name"), got.NameBlob)
}

func (s *RecordStoreSuite) TestGetUnknown() {
	_, err := s.store.Get(context.Background(), 99)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Deactivate(context.Background(), 99), sentinel.ErrNotFound)
}
