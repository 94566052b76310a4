package production

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/metrics"
	"github.com/mamadbah2/croptrace/internal/repository"
	"github.com/mamadbah2/croptrace/internal/repository/memory"
	"github.com/mamadbah2/croptrace/internal/service/stock"
)

// flakyStore fails the first commits with a fixed error.
type flakyStore struct {
	repository.Store

	mu       sync.Mutex
	failures int
	err      error
	commits  int
}

func (f *flakyStore) Commit(ctx context.Context, batch repository.Batch) error {
	f.mu.Lock()
	f.commits++
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return f.err
	}
	f.mu.Unlock()
	return f.Store.Commit(ctx, batch)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newService(t *testing.T, store repository.Store, attempts int) *Service {
	t.Helper()
	return NewService(store, stock.NewEngine(stock.DefaultPolicy()), metrics.New(), Options{
		CommitTimeout: time.Second,
		MaxAttempts:   attempts,
	}, zap.NewNop())
}

func seedLot(t *testing.T, svc *Service) {
	t.Helper()
	_, err := svc.Save(context.Background(), &models.PurchasedLot{
		Meta:         models.Meta{ID: "P"},
		Stock:        models.Stock{InitialQuantity: d("100")},
		Category:     models.KindIngredient,
		Name:         "Shea butter",
		PurchaseCost: d("10"),
	})
	require.NoError(t, err)
}

func batch(grams string) *models.ManufacturingLot {
	return &models.ManufacturingLot{
		Meta:   models.Meta{ID: "M1"},
		Stock:  models.Stock{InitialQuantity: d("10")},
		Status: models.ManufacturingProduced,
		Components: []models.Component{
			{Source: models.ComponentPurchased, LotID: "P", Quantity: d(grams)},
		},
	}
}

func remaining(t *testing.T, svc *Service) decimal.Decimal {
	t.Helper()
	rec, err := svc.Record(context.Background(), models.Ref{Kind: models.KindIngredient, ID: "P"})
	require.NoError(t, err)
	return rec.(*models.PurchasedLot).RemainingQuantity
}

func TestSaveCommitsRecordAndWriteSet(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.NewStore(), 3)
	seedLot(t, svc)

	res, err := svc.Save(ctx, batch("30"))
	require.NoError(t, err)
	assert.True(t, res.Record.(*models.ManufacturingLot).ComponentCost.Equal(d("3")))
	assert.True(t, remaining(t, svc).Equal(d("70")))

	_, err = svc.Save(ctx, batch("50"))
	require.NoError(t, err)
	assert.True(t, remaining(t, svc).Equal(d("50")))

	_, err = svc.Save(ctx, batch("200"))
	require.ErrorIs(t, err, stock.ErrInsufficientStock)
	assert.True(t, remaining(t, svc).Equal(d("50")))

	stored, err := svc.Record(ctx, models.Ref{Kind: models.KindManufacturing, ID: "M1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.GetVersion())
	assert.False(t, stored.LastUpdated().IsZero())
}

func TestSaveAssignsID(t *testing.T) {
	svc := newService(t, memory.NewStore(), 1)
	svc.newID = func() string { return "generated" }

	res, err := svc.Save(context.Background(), &models.CultivationProject{PlantName: "Mint"})
	require.NoError(t, err)
	assert.Equal(t, "generated", res.Record.RecordID())
}

func TestSaveRetriesOnConflict(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore()}
	svc := newService(t, store, 3)
	seedLot(t, svc)

	store.failures, store.err, store.commits = 2, repository.ErrVersionConflict, 0
	_, err := svc.Save(context.Background(), batch("30"))
	require.NoError(t, err)
	assert.Equal(t, 3, store.commits)
	assert.True(t, remaining(t, svc).Equal(d("70")))
}

func TestSaveGivesUpAfterMaxAttempts(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore()}
	svc := newService(t, store, 2)
	seedLot(t, svc)

	store.failures, store.err = 5, repository.ErrVersionConflict
	_, err := svc.Save(context.Background(), batch("30"))
	require.ErrorIs(t, err, stock.ErrPersistenceFailure)

	se, ok := stock.AsError(err)
	require.True(t, ok)
	assert.False(t, se.OutcomeUnknown)
	assert.True(t, remaining(t, svc).Equal(d("100")))
}

func TestTimeoutReportsUnknownOutcome(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore()}
	svc := newService(t, store, 5)
	seedLot(t, svc)

	store.failures, store.err, store.commits = 1, fmt.Errorf("write: %w", context.DeadlineExceeded), 0
	_, err := svc.Save(context.Background(), batch("30"))
	require.ErrorIs(t, err, stock.ErrPersistenceFailure)

	se, _ := stock.AsError(err)
	assert.True(t, se.OutcomeUnknown)
	assert.Equal(t, 1, store.commits, "unknown outcomes are not retried")
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.NewStore(), 50)
	seedLot(t, svc)
	_, err := svc.Save(ctx, batch("30"))
	require.NoError(t, err)

	var mu sync.Mutex
	sold := 0
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("S%d", i)
		g.Go(func() error {
			_, err := svc.Save(gctx, &models.Sale{
				Meta:               models.Meta{ID: id},
				ManufacturingLotID: "M1",
				Quantity:           d("2"),
			})
			if err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
				return nil
			}
			if se, ok := stock.AsError(err); ok && se.Kind == stock.KindInsufficientStock {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 5, sold)
	rec, err := svc.Record(ctx, models.Ref{Kind: models.KindManufacturing, ID: "M1"})
	require.NoError(t, err)
	m := rec.(*models.ManufacturingLot)
	assert.True(t, m.RemainingQuantity.IsZero())
	assert.True(t, m.QuantitySold.Equal(d("10")))
}

func TestDeleteRecreditsSources(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.NewStore(), 3)
	seedLot(t, svc)
	_, err := svc.Save(ctx, batch("30"))
	require.NoError(t, err)

	_, err = svc.Delete(ctx, models.Ref{Kind: models.KindIngredient, ID: "P"})
	require.ErrorIs(t, err, stock.ErrDependentRecordsExist)

	res, err := svc.Delete(ctx, models.Ref{Kind: models.KindManufacturing, ID: "M1"})
	require.NoError(t, err)
	require.Len(t, res.WriteSet, 1)
	assert.True(t, remaining(t, svc).Equal(d("100")))

	_, err = svc.Delete(ctx, models.Ref{Kind: models.KindManufacturing, ID: "M1"})
	require.ErrorIs(t, err, stock.ErrRecordNotFound)
}

func TestRecostStoresChangedRecords(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.NewStore(), 3)
	_, err := svc.SaveCatalog(ctx, models.Worker{ID: "w1", HourlyRate: d("10")})
	require.NoError(t, err)
	_, err = svc.Save(ctx, &models.CultivationProject{
		Meta:  models.Meta{ID: "p1"},
		Labor: []models.LaborEntry{{WorkerID: "w1", Hours: d("4")}},
	})
	require.NoError(t, err)

	// the worker rate changes after the project was costed
	_, err = svc.SaveCatalog(ctx, models.Worker{ID: "w1", HourlyRate: d("12")})
	require.NoError(t, err)

	n, err := svc.Recost(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := svc.Record(ctx, models.Ref{Kind: models.KindCultivation, ID: "p1"})
	require.NoError(t, err)
	assert.True(t, rec.(*models.CultivationProject).Cost.Equal(d("48")))

	n, err = svc.Recost(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// interleavingStore runs hook once, right after serving the next snapshot.
type interleavingStore struct {
	repository.Store
	hook func()
}

func (s *interleavingStore) Snapshot(ctx context.Context) (*models.Registry, error) {
	reg, err := s.Store.Snapshot(ctx)
	if h := s.hook; h != nil {
		s.hook = nil
		h()
	}
	return reg, err
}

func TestDeleteConflictsWithConcurrentReferrer(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()
	store := &interleavingStore{Store: inner}
	svc := newService(t, store, 3)
	seedLot(t, svc)

	planned := batch("30")
	planned.Status = models.ManufacturingPlanned
	store.hook = func() {
		res, err := newService(t, inner, 1).Save(ctx, planned)
		require.NoError(t, err)
		assert.Empty(t, res.WriteSet)
	}

	_, err := svc.Delete(ctx, models.Ref{Kind: models.KindIngredient, ID: "P"})
	require.ErrorIs(t, err, stock.ErrDependentRecordsExist)
	assert.True(t, remaining(t, svc).Equal(d("100")))

	// the planned batch can still be promoted
	_, err = svc.Save(ctx, batch("30"))
	require.NoError(t, err)
	assert.True(t, remaining(t, svc).Equal(d("70")))
}

func TestSaveChecksUnwrittenSources(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()
	svc := newService(t, inner, 1)
	seedLot(t, svc)

	store := &interleavingStore{Store: inner}
	racing := newService(t, store, 3)
	store.hook = func() {
		_, err := svc.Delete(ctx, models.Ref{Kind: models.KindIngredient, ID: "P"})
		require.NoError(t, err)
	}

	planned := batch("30")
	planned.Status = models.ManufacturingPlanned
	_, err := racing.Save(ctx, planned)
	require.ErrorIs(t, err, stock.ErrSourceLotNotFound)

	_, err = svc.Record(ctx, models.Ref{Kind: models.KindManufacturing, ID: "M1"})
	require.ErrorIs(t, err, stock.ErrRecordNotFound)
}
