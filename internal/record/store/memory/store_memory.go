package memory

import (
	"context"
	"sync"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
)

// Store is the in-memory record store. It favors clarity over performance
// and backs unit tests and local wiring.
type Store struct {
	mu         sync.RWMutex
	nextID     domain.RecordID
	records    map[domain.RecordID]models.IdentityRecord
	ownerIndex map[domain.Principal]domain.RecordID
}

func New() *Store {
	return &Store{
		records:    make(map[domain.RecordID]models.IdentityRecord),
		ownerIndex: make(map[domain.Principal]domain.RecordID),
	}
}

func (s *Store) Create(_ context.Context, record models.IdentityRecord) (domain.RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ownerIndex[record.Owner]; exists {
		return 0, sentinel.ErrConflict
	}
	// Counter increment and insert happen under one lock so a failed create
	// can never burn an ID.
	s.nextID++
	record.ID = s.nextID
	s.records[record.ID] = record
	s.ownerIndex[record.Owner] = record.ID
	return record.ID, nil
}

func (s *Store) Get(_ context.Context, id domain.RecordID) (models.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return models.IdentityRecord{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *Store) Deactivate(_ context.Context, id domain.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.Active = false
	s.records[id] = record
	delete(s.ownerIndex, record.Owner)
	return nil
}

func (s *Store) IDByOwner(_ context.Context, owner domain.Principal) (domain.RecordID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerIndex[owner], nil
}
