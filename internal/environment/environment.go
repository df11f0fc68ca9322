// Package environment models the execution guarantees the registry core
// assumes from its host: operations apply one at a time in a single total
// order, and each observes the state produced by all prior operations.
//
// When the core runs inside a real ledger those guarantees come for free.
// Behind an HTTP server they do not, so mutating services share a Serializer
// and run their whole check-then-commit sequence inside it. Because every
// operation validates all preconditions before its first mutation, a failed
// operation under the serializer leaves state exactly as it found it.
package environment

import (
	"sync"
	"time"
)

// Clock supplies the current time. Services take a Clock instead of calling
// time.Now directly so expiry behavior is testable.
type Clock func() time.Time

// Serializer applies operations one at a time.
type Serializer struct {
	mu sync.Mutex
}

// NewSerializer constructs a Serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Do runs fn while holding the serialization lock. The returned error is
// fn's error, untouched.
func (s *Serializer) Do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
