package alerts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/metrics"
)

var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func purchased(id, name string, remaining int64, expires *time.Time) *models.PurchasedLot {
	return &models.PurchasedLot{
		Meta:              models.Meta{ID: id},
		Stock:             models.Stock{InitialQuantity: decimal.NewFromInt(100), RemainingQuantity: decimal.NewFromInt(remaining)},
		Category:          models.KindIngredient,
		Name:              name,
		SupplierLotNumber: "L-" + id,
		ExpiresAt:         expires,
	}
}

func days(n int) *time.Time {
	at := now.AddDate(0, 0, n)
	return &at
}

func TestLowStockSumsLotsByName(t *testing.T) {
	reg := models.NewRegistry()
	reg.Put(purchased("s1", "Sugar", 3, nil))
	reg.Put(purchased("s2", "sugar", 3, nil))
	reg.Put(purchased("w1", "Wax", 1, nil))
	reg.PutCatalog(models.Threshold{ID: "t1", Kind: models.KindIngredient, ResourceName: "Sugar", Minimum: decimal.NewFromInt(10)})
	reg.PutCatalog(models.Threshold{ID: "t2", Kind: models.KindIngredient, ResourceName: "Wax", Minimum: decimal.NewFromInt(10)})
	reg.PutCatalog(models.Threshold{ID: "t3", Kind: models.KindIngredient, ResourceName: "Salt", Minimum: decimal.Zero})

	out := Evaluate(reg, now)
	require.Len(t, out, 2)
	assert.Equal(t, "Wax", out[0].Subject)
	assert.Equal(t, models.SeverityCritical, out[0].Severity)
	assert.Equal(t, "Sugar", out[1].Subject)
	assert.Equal(t, models.SeverityWarning, out[1].Severity)
	assert.True(t, out[1].Quantity.Equal(decimal.NewFromInt(6)))
}

func TestExpiryWindows(t *testing.T) {
	reg := models.NewRegistry()
	reg.Put(purchased("a", "Oil", 10, days(5)))
	reg.Put(purchased("b", "Butter", 10, days(20)))
	reg.Put(purchased("c", "Clay", 10, days(45)))
	reg.Put(purchased("d", "Dust", 0, days(1)))
	reg.Put(purchased("e", "Extract", 10, days(-2)))
	reg.PutCatalog(models.Threshold{ID: "t", Kind: models.KindIngredient, ResourceName: "Clay", ExpiryAlertDays: 60})

	out := Evaluate(reg, now)
	require.Len(t, out, 4)

	bySubject := map[string]models.Alert{}
	for _, a := range out {
		assert.Equal(t, models.AlertExpiry, a.Type)
		bySubject[a.Subject] = a
	}
	assert.Equal(t, models.SeverityCritical, bySubject["Oil"].Severity)
	assert.Equal(t, 5, *bySubject["Oil"].DaysLeft)
	assert.Equal(t, models.SeverityWarning, bySubject["Butter"].Severity)
	assert.Equal(t, models.SeverityWarning, bySubject["Clay"].Severity)
	assert.Contains(t, bySubject["Extract"].Message, "expired 2 days ago")
	assert.NotContains(t, bySubject, "Dust")
}

func TestFinishedGoodsAndBestBefore(t *testing.T) {
	reg := models.NewRegistry()
	reg.PutCatalog(models.Product{ID: "balm", Name: "Lip balm", ReorderThreshold: decimal.NewFromInt(20), BestBeforeAlertDays: 10})
	reg.Put(&models.ManufacturingLot{
		Meta:       models.Meta{ID: "m1"},
		Stock:      models.Stock{InitialQuantity: decimal.NewFromInt(12), RemainingQuantity: decimal.NewFromInt(12)},
		ProductID:  "balm",
		LotNumber:  "B-1",
		Status:     models.ManufacturingSellable,
		BestBefore: days(8),
	})
	reg.Put(&models.ManufacturingLot{
		Meta:      models.Meta{ID: "m2"},
		Stock:     models.Stock{InitialQuantity: decimal.NewFromInt(50), RemainingQuantity: decimal.NewFromInt(50)},
		ProductID: "balm",
		Status:    models.ManufacturingQualityControl,
	})

	out := Evaluate(reg, now)
	require.Len(t, out, 2)
	// both are warnings; ordered by type
	assert.Equal(t, models.AlertBestBeforeApproach, out[0].Type)
	assert.Equal(t, "Lip balm", out[0].Subject)
	assert.Equal(t, models.AlertFinishedGoodsLow, out[1].Type)
	assert.True(t, out[1].Quantity.Equal(decimal.NewFromInt(12)))
}

func TestDaysUntilUsesCalendarDays(t *testing.T) {
	late := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	early := time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, daysUntil(late, early))
	assert.Equal(t, 0, daysUntil(early, early.Add(time.Hour)))
}

type staticSource struct{ reg *models.Registry }

func (s staticSource) Snapshot(context.Context) (*models.Registry, error) { return s.reg, nil }

func TestServiceCurrentAndDigest(t *testing.T) {
	reg := models.NewRegistry()
	reg.Put(purchased("a", "Oil", 10, days(3)))
	svc := NewService(staticSource{reg: reg}, metrics.New(), nil)
	svc.now = func() time.Time { return now }

	out, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)

	digest := Digest(out, now)
	assert.True(t, strings.HasPrefix(digest, "Stock alerts 2026-03-10 (1)"))
	assert.Contains(t, digest, "! Oil lot L-a expires in 3 days")

	assert.Contains(t, Digest(nil, now), "nothing to report")
}
