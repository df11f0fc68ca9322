package memory

import (
	"context"
	"sync"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
)

// Store is the in-memory request ledger.
type Store struct {
	mu       sync.RWMutex
	requests map[domain.RecordID][]models.VerificationRequest
}

func New() *Store {
	return &Store{requests: make(map[domain.RecordID][]models.VerificationRequest)}
}

func (s *Store) Append(_ context.Context, request models.VerificationRequest) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.requests[request.RecordID]
	request.Index = len(list)
	s.requests[request.RecordID] = append(list, request)
	return request.Index, nil
}

func (s *Store) Get(_ context.Context, recordID domain.RecordID, index int) (models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.requests[recordID]
	if index < 0 || index >= len(list) {
		return models.VerificationRequest{}, sentinel.ErrNotFound
	}
	return list[index], nil
}

func (s *Store) Count(_ context.Context, recordID domain.RecordID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests[recordID]), nil
}

func (s *Store) MarkProcessed(_ context.Context, recordID domain.RecordID, index int, approved bool) (models.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.requests[recordID]
	if index < 0 || index >= len(list) {
		return models.VerificationRequest{}, sentinel.ErrNotFound
	}
	if list[index].Processed {
		return models.VerificationRequest{}, sentinel.ErrAlreadyUsed
	}
	list[index].Processed = true
	list[index].Approved = approved
	return list[index], nil
}
