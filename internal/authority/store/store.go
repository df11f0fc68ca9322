package store

import (
	"context"

	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

// Store persists the singleton authority principal and the authorized
// verifier membership set.
type Store interface {
	// Authority returns the current authority, or sentinel.ErrNotFound when
	// the registry has not been bootstrapped yet.
	Authority(ctx context.Context) (domain.Principal, error)

	// SetAuthority installs or replaces the singleton authority.
	SetAuthority(ctx context.Context, p domain.Principal) error

	// IsVerifier reports membership in the authorized verifier set.
	IsVerifier(ctx context.Context, p domain.Principal) (bool, error)

	// AddVerifier adds a principal to the set. Adding an existing member is
	// a no-op.
	AddVerifier(ctx context.Context, p domain.Principal) error

	// RemoveVerifier removes a principal from the set. Removing a
	// non-member is a no-op.
	RemoveVerifier(ctx context.Context, p domain.Principal) error
}
