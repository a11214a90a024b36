package repositories

import (
	"context"
	"testing"

	"eyeshield/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientSequenceRepository_Next(t *testing.T) {
	db := newTestDB(t)
	repo := NewPatientSequence(db, services.NewTransactionService(db))
	ctx := context.Background()

	current, err := repo.Current(ctx, "20250101")
	require.NoError(t, err)
	assert.Zero(t, current)

	for want := 1; want <= 3; want++ {
		got, err := repo.Next(ctx, "20250101")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := repo.Next(ctx, "20250102")
	require.NoError(t, err)
	assert.Equal(t, 1, got, "each day starts its own counter")

	current, err = repo.Current(ctx, "20250101")
	require.NoError(t, err)
	assert.Equal(t, 3, current)
}

func TestPatientSequenceRepository_SurvivesNewRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := NewPatientSequence(db, services.NewTransactionService(db))
	_, err := first.Next(ctx, "20250101")
	require.NoError(t, err)

	second := NewPatientSequence(db, services.NewTransactionService(db))
	got, err := second.Next(ctx, "20250101")
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}
