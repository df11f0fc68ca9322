// Package service enforces the registry's role model: the singleton
// authority and the authorized-verifier set. Every operation receives the
// acting principal explicitly; there is no ambient caller state.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/audit"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/authority/store"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/environment"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	dErrors "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain-errors"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
)

type Service struct {
	store      store.Store
	serializer *environment.Serializer
	audit      *audit.Publisher
	logger     *slog.Logger
}

func New(s store.Store, serializer *environment.Serializer, pub *audit.Publisher, logger *slog.Logger) *Service {
	return &Service{store: s, serializer: serializer, audit: pub, logger: logger}
}

// Bootstrap installs the initial authority when none exists yet. Calling it
// against an already-bootstrapped registry is a no-op so restarts are safe.
func (s *Service) Bootstrap(ctx context.Context, initial domain.Principal) error {
	if initial.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "initial authority cannot be empty")
	}
	return s.serializer.Do(func() error {
		_, err := s.store.Authority(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(dErrors.CodeInternal, "load authority", err)
		}
		if err := s.store.SetAuthority(ctx, initial); err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "seed authority", err)
		}
		s.logger.Info("authority bootstrapped", "principal", initial.String())
		return nil
	})
}

// Authority returns the current authority principal.
func (s *Service) Authority(ctx context.Context) (domain.Principal, error) {
	p, err := s.store.Authority(ctx)
	if err != nil {
		return domain.NoPrincipal, dErrors.Wrap(dErrors.CodeInternal, "load authority", err)
	}
	return p, nil
}

// IsAuthority reports whether the principal currently holds the authority role.
func (s *Service) IsAuthority(ctx context.Context, p domain.Principal) (bool, error) {
	current, err := s.store.Authority(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(dErrors.CodeInternal, "load authority", err)
	}
	return current == p, nil
}

// IsVerifier reports membership in the authorized verifier set.
func (s *Service) IsVerifier(ctx context.Context, p domain.Principal) (bool, error) {
	ok, err := s.store.IsVerifier(ctx, p)
	if err != nil {
		return false, dErrors.Wrap(dErrors.CodeInternal, "check verifier", err)
	}
	return ok, nil
}

// Transfer reassigns the singleton authority role. Effective immediately:
// there is no grandfather period for the outgoing authority.
func (s *Service) Transfer(ctx context.Context, caller, next domain.Principal) error {
	if next.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "new authority cannot be empty")
	}
	return s.serializer.Do(func() error {
		if err := s.requireAuthority(ctx, caller); err != nil {
			return err
		}
		if err := s.store.SetAuthority(ctx, next); err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "transfer authority", err)
		}
		s.audit.Emit(ctx, audit.Event{
			Type:   audit.EventAuthorityTransferred,
			Actor:  caller,
			Detail: "new_authority=" + next.String(),
		})
		return nil
	})
}

// AuthorizeVerifier adds a principal to the verifier set. Idempotent.
func (s *Service) AuthorizeVerifier(ctx context.Context, caller, verifier domain.Principal) error {
	if verifier.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "verifier cannot be empty")
	}
	return s.serializer.Do(func() error {
		if err := s.requireAuthority(ctx, caller); err != nil {
			return err
		}
		if err := s.store.AddVerifier(ctx, verifier); err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "authorize verifier", err)
		}
		s.audit.Emit(ctx, audit.Event{
			Type:   audit.EventVerifierAuthorized,
			Actor:  caller,
			Detail: "verifier=" + verifier.String(),
		})
		return nil
	})
}

// RevokeVerifier removes a principal from the verifier set. Idempotent.
func (s *Service) RevokeVerifier(ctx context.Context, caller, verifier domain.Principal) error {
	if verifier.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "verifier cannot be empty")
	}
	return s.serializer.Do(func() error {
		if err := s.requireAuthority(ctx, caller); err != nil {
			return err
		}
		if err := s.store.RemoveVerifier(ctx, verifier); err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "revoke verifier", err)
		}
		s.audit.Emit(ctx, audit.Event{
			Type:   audit.EventVerifierRevoked,
			Actor:  caller,
			Detail: "verifier=" + verifier.String(),
		})
		return nil
	})
}

func (s *Service) requireAuthority(ctx context.Context, caller domain.Principal) error {
	ok, err := s.IsAuthority(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the registry authority")
	}
	return nil
}
