// Package confidential defines the interface the registry uses to talk to
// the confidential-computation capability. The capability owns all
// cryptography: the registry only passes opaque ciphertext handles around
// and instructs the capability who may use them.
package confidential

import (
	"context"

	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

// Handle is an opaque ciphertext token. The registry stores and forwards
// handles but can perform no operation on them except through Capability.
type Handle string

// IsZero reports whether the handle is unset.
func (h Handle) IsZero() bool {
	return h == ""
}

// Bit widths for encrypted numeric fields.
const (
	WidthAge         = 8  // ages fit in a byte
	WidthCitizenship = 16 // ISO numeric country codes
	WidthNationalID  = 64
)

// Capability is the confidential-computation service consumed by the record
// store and access controller. Implementations must be synchronous: a
// returned error aborts the surrounding registry operation as a whole.
//
// Comparison results are themselves ciphertexts (encrypted booleans); only
// principals granted access to a result handle can decrypt the outcome.
type Capability interface {
	// Encrypt turns a plaintext value into a ciphertext of the given width.
	Encrypt(ctx context.Context, plain uint64, width int) (Handle, error)

	// CompareGE produces an encrypted boolean for a >= b.
	CompareGE(ctx context.Context, a, b Handle) (Handle, error)

	// CompareEQ produces an encrypted boolean for a == b.
	CompareEQ(ctx context.Context, a, b Handle) (Handle, error)

	// GrantSelf allows the computation engine to keep operating on a
	// ciphertext in future calls.
	GrantSelf(ctx context.Context, h Handle) error

	// Grant allows a specific principal to decrypt or use a ciphertext or
	// encrypted-boolean result.
	Grant(ctx context.Context, h Handle, p domain.Principal) error
}
