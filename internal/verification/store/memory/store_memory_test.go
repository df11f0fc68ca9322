package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
)

func request(recordID domain.RecordID) models.VerificationRequest {
	return models.VerificationRequest{
		RecordID:  recordID,
		Requester: "did:example:bank",
		Purpose:   "account opening",
		Checks:    domain.CheckFlags{Age: true},
	}
}

func TestStore_AppendAssignsStableIndices(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.Append(ctx, request(1))
	require.NoError(t, err)
	second, err := s.Append(ctx, request(1))
	require.NoError(t, err)
	other, err := s.Append(ctx, request(2))
	require.NoError(t, err)

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 0, other, "indices are scoped per record")

	n, err := s.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_GetBounds(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Append(ctx, request(1))

	_, err := s.Get(ctx, 1, 1)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = s.Get(ctx, 1, -1)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = s.Get(ctx, 9, 0)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	got, err := s.Get(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "account opening", got.Purpose)
	assert.False(t, got.Processed)
}

func TestStore_MarkProcessedIsTerminal(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Append(ctx, request(1))

	updated, err := s.MarkProcessed(ctx, 1, 0, true)
	require.NoError(t, err)
	assert.True(t, updated.Processed)
	assert.True(t, updated.Approved)

	_, err = s.MarkProcessed(ctx, 1, 0, false)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)

	got, err := s.Get(ctx, 1, 0)
	require.NoError(t, err)
	assert.True(t, got.Approved, "denial after approval must not flip the outcome")
}

func TestStore_MarkProcessedDeny(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Append(ctx, request(1))

	updated, err := s.MarkProcessed(ctx, 1, 0, false)
	require.NoError(t, err)
	assert.True(t, updated.Processed)
	assert.False(t, updated.Approved)

	_, err = s.MarkProcessed(ctx, 9, 0, true)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
