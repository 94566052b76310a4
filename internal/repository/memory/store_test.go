package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/repository"
)

func lot(id string, version int64, remaining int64) *models.PurchasedLot {
	return &models.PurchasedLot{
		Meta:     models.Meta{ID: id, Version: version},
		Stock:    models.Stock{InitialQuantity: decimal.NewFromInt(100), RemainingQuantity: decimal.NewFromInt(remaining)},
		Category: models.KindIngredient,
		Name:     id,
	}
}

func TestCommitBumpsVersions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Commit(ctx, repository.Batch{Puts: []models.Record{lot("a", 0, 100)}}))
	reg, err := s.Snapshot(ctx)
	require.NoError(t, err)

	got, ok := reg.Purchased(models.KindIngredient, "a")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.Version)

	require.NoError(t, s.Commit(ctx, repository.Batch{Puts: []models.Record{lot("a", 1, 70)}}))
	reg, _ = s.Snapshot(ctx)
	got, _ = reg.Purchased(models.KindIngredient, "a")
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.RemainingQuantity.Equal(decimal.NewFromInt(70)))
}

func TestCommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Commit(ctx, repository.Batch{Puts: []models.Record{lot("a", 0, 100), lot("b", 0, 100)}}))

	// b is stale
	err := s.Commit(ctx, repository.Batch{Puts: []models.Record{lot("a", 1, 50), lot("b", 0, 50)}})
	require.ErrorIs(t, err, repository.ErrVersionConflict)

	reg, _ := s.Snapshot(ctx)
	a, _ := reg.Purchased(models.KindIngredient, "a")
	assert.Equal(t, int64(1), a.Version)
	assert.True(t, a.RemainingQuantity.Equal(decimal.NewFromInt(100)))
}

func TestDeleteChecksVersion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Commit(ctx, repository.Batch{Puts: []models.Record{lot("a", 0, 100)}}))

	err := s.Commit(ctx, repository.Batch{Deletes: []models.Record{lot("a", 0, 100)}})
	require.ErrorIs(t, err, repository.ErrVersionConflict)

	require.NoError(t, s.Commit(ctx, repository.Batch{Deletes: []models.Record{lot("a", 1, 100)}}))
	reg, _ := s.Snapshot(ctx)
	assert.Equal(t, 0, reg.Len())
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Commit(ctx, repository.Batch{Puts: []models.Record{lot("a", 0, 100)}}))

	reg, _ := s.Snapshot(ctx)
	a, _ := reg.Purchased(models.KindIngredient, "a")
	a.RemainingQuantity = decimal.Zero

	again, _ := s.Snapshot(ctx)
	b, _ := again.Purchased(models.KindIngredient, "a")
	assert.True(t, b.RemainingQuantity.Equal(decimal.NewFromInt(100)))
}

func TestSaveCatalog(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.SaveCatalog(ctx, &models.Worker{ID: "w1", Name: "Awa"}))

	reg, _ := s.Snapshot(ctx)
	w, ok := reg.Worker("w1")
	require.True(t, ok)
	assert.Equal(t, "Awa", w.Name)
}

func TestChecksGuardUnwrittenRecords(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Commit(ctx, repository.Batch{Puts: []models.Record{lot("a", 0, 100)}}))

	// a batch that read a at version 1 bumps it without rewriting it
	require.NoError(t, s.Commit(ctx, repository.Batch{
		Puts:   []models.Record{lot("b", 0, 100)},
		Checks: []models.Record{lot("a", 1, 0)},
	}))
	reg, _ := s.Snapshot(ctx)
	a, _ := reg.Purchased(models.KindIngredient, "a")
	assert.Equal(t, int64(2), a.Version)
	assert.True(t, a.RemainingQuantity.Equal(decimal.NewFromInt(100)))

	// a delete planned before that batch now conflicts
	err := s.Commit(ctx, repository.Batch{Deletes: []models.Record{lot("a", 1, 100)}})
	require.ErrorIs(t, err, repository.ErrVersionConflict)

	// a check on a missing record conflicts and applies nothing
	err = s.Commit(ctx, repository.Batch{
		Puts:   []models.Record{lot("c", 0, 100)},
		Checks: []models.Record{lot("gone", 1, 0)},
	})
	require.ErrorIs(t, err, repository.ErrVersionConflict)
	reg, _ = s.Snapshot(ctx)
	_, ok := reg.Purchased(models.KindIngredient, "c")
	assert.False(t, ok)
}
