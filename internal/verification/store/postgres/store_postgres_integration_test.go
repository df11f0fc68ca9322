//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/store/postgres"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/testutil/containers"
)

type VerificationStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
}

func TestVerificationStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(VerificationStoreSuite))
}

func (s *VerificationStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *VerificationStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "verification_requests"))
}

func request(recordID domain.RecordID) models.VerificationRequest {
	return models.VerificationRequest{
		RecordID:    recordID,
		Requester:   "did:example:bank",
		Purpose:     "account opening",
		Checks:      domain.CheckFlags{Age: true, Nationality: true},
		RequestedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *VerificationStoreSuite) TestAppendIndicesArePerRecord() {
	ctx := context.Background()

	first, err := s.store.Append(ctx, request(1))
	s.Require().NoError(err)
	second, err := s.store.Append(ctx, request(1))
	s.Require().NoError(err)
	other, err := s.store.Append(ctx, request(2))
	s.Require().NoError(err)

	s.Equal(0, first)
	s.Equal(1, second)
	s.Equal(0, other)

	n, err := s.store.Count(ctx, 1)
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *VerificationStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	_, err := s.store.Append(ctx, request(1))
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, 1, 0)
	s.Require().NoError(err)
	s.Equal(domain.Principal("did:example:bank"), got.Requester)
	s.Equal("account opening", got.Purpose)
	s.True(got.Checks.Age)
	s.True(got.Checks.Nationality)
	s.False(got.Checks.Identity)
	s.False(got.Processed)

	_, err = s.store.Get(ctx, 1, 1)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *VerificationStoreSuite) TestMarkProcessedOnce() {
	ctx := context.Background()
	_, err := s.store.Append(ctx, request(1))
	s.Require().NoError(err)

	updated, err := s.store.MarkProcessed(ctx, 1, 0, true)
	s.Require().NoError(err)
	s.True(updated.Processed)
	s.True(updated.Approved)

	_, err = s.store.MarkProcessed(ctx, 1, 0, false)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	_, err = s.store.MarkProcessed(ctx, 1, 7, true)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
