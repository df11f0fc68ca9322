package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/audit"
	authoritymem "github.com/CliftonVon/ConfidentialDigitalPassport/internal/authority/store/memory"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/environment"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	dErrors "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain-errors"
)

const (
	gov   = domain.Principal("did:example:gov")
	bank  = domain.Principal("did:example:bank")
	mallo = domain.Principal("did:example:mallory")
)

type AuthorityServiceSuite struct {
	suite.Suite
	store      *authoritymem.Store
	auditStore *audit.InMemoryStore
	service    *Service
}

func TestAuthorityServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthorityServiceSuite))
}

func (s *AuthorityServiceSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	s.store = authoritymem.New()
	s.auditStore = audit.NewInMemoryStore()
	pub := audit.NewPublisher(logger, []audit.Sink{s.auditStore})
	s.service = New(s.store, environment.NewSerializer(), pub, logger)
	s.Require().NoError(s.service.Bootstrap(context.Background(), gov))
}

func (s *AuthorityServiceSuite) TestBootstrap() {
	ctx := context.Background()

	s.Run("is idempotent across restarts", func() {
		s.NoError(s.service.Bootstrap(ctx, mallo))
		current, err := s.service.Authority(ctx)
		s.NoError(err)
		s.Equal(gov, current)
	})

	s.Run("rejects empty principal", func() {
		err := s.service.Bootstrap(ctx, domain.NoPrincipal)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *AuthorityServiceSuite) TestVerifierMembership() {
	ctx := context.Background()

	s.Run("authority can toggle membership", func() {
		s.NoError(s.service.AuthorizeVerifier(ctx, gov, bank))
		ok, err := s.service.IsVerifier(ctx, bank)
		s.NoError(err)
		s.True(ok)

		s.NoError(s.service.RevokeVerifier(ctx, gov, bank))
		ok, err = s.service.IsVerifier(ctx, bank)
		s.NoError(err)
		s.False(ok)
	})

	s.Run("toggles are idempotent", func() {
		s.NoError(s.service.AuthorizeVerifier(ctx, gov, bank))
		s.NoError(s.service.AuthorizeVerifier(ctx, gov, bank))
		s.NoError(s.service.RevokeVerifier(ctx, gov, bank))
		s.NoError(s.service.RevokeVerifier(ctx, gov, bank))
	})

	s.Run("non-authority cannot toggle", func() {
		err := s.service.AuthorizeVerifier(ctx, mallo, bank)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		err = s.service.RevokeVerifier(ctx, mallo, bank)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *AuthorityServiceSuite) TestTransfer() {
	ctx := context.Background()

	s.Run("only authority may transfer", func() {
		err := s.service.Transfer(ctx, mallo, bank)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("transfer is effective immediately", func() {
		s.NoError(s.service.Transfer(ctx, gov, bank))

		// The old authority loses every gated operation at once.
		err := s.service.AuthorizeVerifier(ctx, gov, mallo)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		s.NoError(s.service.AuthorizeVerifier(ctx, bank, mallo))
	})

	s.Run("emits an audit event", func() {
		events, err := s.auditStore.ListByRecord(ctx, 0)
		s.NoError(err)
		var seen bool
		for _, e := range events {
			if e.Type == audit.EventAuthorityTransferred {
				seen = true
			}
		}
		s.True(seen)
	})
}
