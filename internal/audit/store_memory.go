package audit

import (
	"context"
	"sync"

	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

// InMemoryStore keeps audit events in memory, keyed by record ID. Events
// without a record reference (verifier toggles, authority transfer) land
// under the zero key.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.RecordID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.RecordID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.RecordID] = append(s.events[event.RecordID], event)
	return nil
}

func (s *InMemoryStore) ListByRecord(_ context.Context, id domain.RecordID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[id]...), nil
}
