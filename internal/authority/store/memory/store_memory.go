package memory

import (
	"context"
	"sync"

	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
)

// Store is the in-memory role store.
type Store struct {
	mu        sync.RWMutex
	authority domain.Principal
	verifiers map[domain.Principal]bool
}

func New() *Store {
	return &Store{verifiers: make(map[domain.Principal]bool)}
}

func (s *Store) Authority(_ context.Context) (domain.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.authority.IsZero() {
		return domain.NoPrincipal, sentinel.ErrNotFound
	}
	return s.authority, nil
}

func (s *Store) SetAuthority(_ context.Context, p domain.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authority = p
	return nil
}

func (s *Store) IsVerifier(_ context.Context, p domain.Principal) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verifiers[p], nil
}

func (s *Store) AddVerifier(_ context.Context, p domain.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifiers[p] = true
	return nil
}

func (s *Store) RemoveVerifier(_ context.Context, p domain.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.verifiers, p)
	return nil
}
