package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
)

func record(owner domain.Principal) models.IdentityRecord {
	now := time.Now()
	return models.IdentityRecord{
		Owner:     owner,
		Active:    true,
		Verified:  true,
		IssuedAt:  now,
		ExpiresAt: now.Add(models.YearDuration),
	}
}

func TestStore_CreateAssignsDenseIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.Create(ctx, record("alice"))
	require.NoError(t, err)
	second, err := s.Create(ctx, record("bob"))
	require.NoError(t, err)

	assert.Equal(t, domain.RecordID(1), first)
	assert.Equal(t, domain.RecordID(2), second)
}

func TestStore_CreateRejectsSecondActiveRecord(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Create(ctx, record("alice"))
	require.NoError(t, err)

	_, err = s.Create(ctx, record("alice"))
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	// The counter must not have moved on the failed attempt.
	next, err := s.Create(ctx, record("bob"))
	require.NoError(t, err)
	assert.Equal(t, domain.RecordID(2), next)
}

func TestStore_DeactivateFreesOwnerButNotID(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Create(ctx, record("alice"))
	require.NoError(t, err)
	require.NoError(t, s.Deactivate(ctx, id))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.Active)

	owned, err := s.IDByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, owned.IsZero())

	// Reissue for the same owner gets a fresh ID; revoked IDs are retired.
	reissued, err := s.Create(ctx, record("alice"))
	require.NoError(t, err)
	assert.Equal(t, domain.RecordID(2), reissued)
}

func TestStore_GetUnknown(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), 99)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.ErrorIs(t, s.Deactivate(context.Background(), 99), sentinel.ErrNotFound)
}
