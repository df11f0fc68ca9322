//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/authority/store/postgres"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/testutil/containers"
)

type AuthorityStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
}

func TestAuthorityStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuthorityStoreSuite))
}

func (s *AuthorityStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *AuthorityStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(),
		"registry_authority", "authorized_verifiers"))
}

func (s *AuthorityStoreSuite) TestAuthoritySingleton() {
	ctx := context.Background()

	_, err := s.store.Authority(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.SetAuthority(ctx, "did:example:gov"))
	got, err := s.store.Authority(ctx)
	s.Require().NoError(err)
	s.Equal(domain.Principal("did:example:gov"), got)

	// Upsert replaces, never duplicates.
	s.Require().NoError(s.store.SetAuthority(ctx, "did:example:ministry"))
	got, err = s.store.Authority(ctx)
	s.Require().NoError(err)
	s.Equal(domain.Principal("did:example:ministry"), got)
}

func (s *AuthorityStoreSuite) TestVerifierSetIdempotent() {
	ctx := context.Background()
	bank := domain.Principal("did:example:bank")

	ok, err := s.store.IsVerifier(ctx, bank)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.AddVerifier(ctx, bank))
	s.Require().NoError(s.store.AddVerifier(ctx, bank))
	ok, err = s.store.IsVerifier(ctx, bank)
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(s.store.RemoveVerifier(ctx, bank))
	s.Require().NoError(s.store.RemoveVerifier(ctx, bank))
	ok, err = s.store.IsVerifier(ctx, bank)
	s.Require().NoError(err)
	s.False(ok)
}
