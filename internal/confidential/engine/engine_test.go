package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/confidential"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

func TestEngine_EncryptProducesDistinctHandles(t *testing.T) {
	e := New()
	ctx := context.Background()

	a, err := e.Encrypt(ctx, 42, confidential.WidthAge)
	require.NoError(t, err)
	b, err := e.Encrypt(ctx, 42, confidential.WidthAge)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "same plaintext must not yield the same handle")
	assert.False(t, a.IsZero())
}

func TestEngine_CompareGE(t *testing.T) {
	e := New()
	ctx := context.Background()
	caller := domain.Principal("did:example:verifier")

	age, _ := e.Encrypt(ctx, 34, confidential.WidthAge)
	threshold, _ := e.Encrypt(ctx, 21, confidential.WidthAge)

	result, err := e.CompareGE(ctx, age, threshold)
	require.NoError(t, err)

	// Result is opaque until granted.
	_, err = e.Decrypt(result, caller)
	assert.ErrorIs(t, err, ErrNotGranted)

	require.NoError(t, e.Grant(ctx, result, caller))
	plain, err := e.Decrypt(result, caller)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), plain)
}

func TestEngine_CompareEQ(t *testing.T) {
	e := New()
	ctx := context.Background()

	code, _ := e.Encrypt(ctx, 756, confidential.WidthCitizenship)
	same, _ := e.Encrypt(ctx, 756, confidential.WidthCitizenship)
	other, _ := e.Encrypt(ctx, 250, confidential.WidthCitizenship)

	caller := domain.Principal("p")

	eq, err := e.CompareEQ(ctx, code, same)
	require.NoError(t, err)
	require.NoError(t, e.Grant(ctx, eq, caller))
	plain, err := e.Decrypt(eq, caller)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), plain)

	ne, err := e.CompareEQ(ctx, code, other)
	require.NoError(t, err)
	require.NoError(t, e.Grant(ctx, ne, caller))
	plain, err = e.Decrypt(ne, caller)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), plain)
}

func TestEngine_UnknownHandles(t *testing.T) {
	e := New()
	ctx := context.Background()

	_, err := e.CompareGE(ctx, "bogus", "bogus")
	assert.ErrorIs(t, err, ErrUnknownHandle)
	assert.ErrorIs(t, e.GrantSelf(ctx, "bogus"), ErrUnknownHandle)
	assert.ErrorIs(t, e.Grant(ctx, "bogus", "p"), ErrUnknownHandle)
}

func TestEngine_GrantLogOrdering(t *testing.T) {
	e := New()
	ctx := context.Background()

	h, _ := e.Encrypt(ctx, 7, confidential.WidthAge)
	require.NoError(t, e.Grant(ctx, h, "alice"))
	require.NoError(t, e.Grant(ctx, h, "bob"))

	log := e.GrantLog()
	require.Len(t, log, 2)
	assert.Equal(t, domain.Principal("alice"), log[0].Principal)
	assert.Equal(t, domain.Principal("bob"), log[1].Principal)
	assert.Len(t, e.GrantsFor("alice"), 1)
	assert.True(t, e.HasGrant(h, "alice"))
}
