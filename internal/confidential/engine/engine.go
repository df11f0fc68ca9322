// Package engine provides an in-process implementation of the confidential
// capability. It performs no real cryptography: plaintexts live in memory
// behind opaque handles and a grant table enforces who may read them. It
// backs local development wiring and lets tests assert exact grant issuance.
package engine

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/confidential"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

// ErrNotGranted is returned by Decrypt when the principal has no grant for
// the handle.
var ErrNotGranted = errors.New("principal not granted for handle")

// ErrUnknownHandle is returned when a handle was not produced by this engine.
var ErrUnknownHandle = errors.New("unknown ciphertext handle")

// Grant records a single grant instruction the engine received.
type Grant struct {
	Handle    confidential.Handle
	Principal domain.Principal
}

// Engine is an in-memory confidential.Capability.
type Engine struct {
	mu         sync.Mutex
	seq        uint64
	plaintexts map[confidential.Handle]uint64
	widths     map[confidential.Handle]int
	granted    map[confidential.Handle]map[domain.Principal]bool
	selfGrants map[confidential.Handle]bool
	grantLog   []Grant
}

// New constructs an empty engine.
func New() *Engine {
	return &Engine{
		plaintexts: make(map[confidential.Handle]uint64),
		widths:     make(map[confidential.Handle]int),
		granted:    make(map[confidential.Handle]map[domain.Principal]bool),
		selfGrants: make(map[confidential.Handle]bool),
	}
}

// newHandle derives an opaque token from the allocation sequence. Handles
// must be unguessable-looking but stable within a run; blake2b over the
// sequence number is enough for a non-cryptographic stand-in.
func (e *Engine) newHandle() confidential.Handle {
	e.seq++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], e.seq)
	sum := blake2b.Sum256(buf[:])
	return confidential.Handle(hex.EncodeToString(sum[:16]))
}

func (e *Engine) Encrypt(_ context.Context, plain uint64, width int) (confidential.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.newHandle()
	e.plaintexts[h] = plain
	e.widths[h] = width
	return h, nil
}

func (e *Engine) CompareGE(_ context.Context, a, b confidential.Handle) (confidential.Handle, error) {
	return e.compare(a, b, func(x, y uint64) bool { return x >= y })
}

func (e *Engine) CompareEQ(_ context.Context, a, b confidential.Handle) (confidential.Handle, error) {
	return e.compare(a, b, func(x, y uint64) bool { return x == y })
}

func (e *Engine) compare(a, b confidential.Handle, cmp func(x, y uint64) bool) (confidential.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	x, ok := e.plaintexts[a]
	if !ok {
		return "", ErrUnknownHandle
	}
	y, ok := e.plaintexts[b]
	if !ok {
		return "", ErrUnknownHandle
	}
	h := e.newHandle()
	var result uint64
	if cmp(x, y) {
		result = 1
	}
	e.plaintexts[h] = result
	e.widths[h] = 1
	return h, nil
}

func (e *Engine) GrantSelf(_ context.Context, h confidential.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.plaintexts[h]; !ok {
		return ErrUnknownHandle
	}
	e.selfGrants[h] = true
	return nil
}

func (e *Engine) Grant(_ context.Context, h confidential.Handle, p domain.Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.plaintexts[h]; !ok {
		return ErrUnknownHandle
	}
	if e.granted[h] == nil {
		e.granted[h] = make(map[domain.Principal]bool)
	}
	e.granted[h][p] = true
	e.grantLog = append(e.grantLog, Grant{Handle: h, Principal: p})
	return nil
}

// Decrypt returns the plaintext behind a handle for a granted principal.
// It models what a client would do out-of-band with the real capability.
func (e *Engine) Decrypt(h confidential.Handle, p domain.Principal) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	plain, ok := e.plaintexts[h]
	if !ok {
		return 0, ErrUnknownHandle
	}
	if !e.granted[h][p] {
		return 0, ErrNotGranted
	}
	return plain, nil
}

// HasGrant reports whether the principal was granted the handle.
func (e *Engine) HasGrant(h confidential.Handle, p domain.Principal) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.granted[h][p]
}

// HasSelfGrant reports whether the engine was authorized to keep computing
// on the handle.
func (e *Engine) HasSelfGrant(h confidential.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selfGrants[h]
}

// GrantLog returns every grant instruction received, in issue order.
func (e *Engine) GrantLog() []Grant {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Grant{}, e.grantLog...)
}

// GrantsFor returns the grant instructions issued for a single principal.
func (e *Engine) GrantsFor(p domain.Principal) []Grant {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Grant
	for _, g := range e.grantLog {
		if g.Principal == p {
			out = append(out, g)
		}
	}
	return out
}

var _ confidential.Capability = (*Engine)(nil)
