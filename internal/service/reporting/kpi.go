package reporting

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/service/costing"
)

// KPISet is the headline indicator set.
type KPISet struct {
	TotalRevenue            decimal.Decimal `json:"totalRevenue"`
	GrossMarginPercent      decimal.Decimal `json:"grossMarginPercent"`
	AverageSaleValue        decimal.Decimal `json:"averageSaleValue"`
	IngredientStockValue    decimal.Decimal `json:"ingredientStockValue"`
	PackagingStockValue     decimal.Decimal `json:"packagingStockValue"`
	FinishedGoodsStockValue decimal.Decimal `json:"finishedGoodsStockValue"`
	SalesCount              int             `json:"salesCount"`
	ProductionLotCount      int             `json:"productionLotCount"`
}

// Compute derives the KPI set from the registry.
func Compute(reg *models.Registry) KPISet {
	var k KPISet

	cogs := decimal.Zero
	sales := reg.Records(models.KindSale)
	for _, rec := range sales {
		m := costing.SaleMargins(reg, rec.(*models.Sale))
		k.TotalRevenue = k.TotalRevenue.Add(m.Total)
		cogs = cogs.Add(m.CostOfGoodsSold)
	}
	k.SalesCount = len(sales)
	if k.TotalRevenue.IsPositive() {
		k.GrossMarginPercent = k.TotalRevenue.Sub(cogs).Div(k.TotalRevenue).Mul(decimal.NewFromInt(100))
	}
	if k.SalesCount > 0 {
		k.AverageSaleValue = k.TotalRevenue.Div(decimal.NewFromInt(int64(k.SalesCount)))
	}

	k.IngredientStockValue = stockValue(reg.Lots(models.KindIngredient))
	k.PackagingStockValue = stockValue(reg.Lots(models.KindPackaging))

	manufacturing := reg.Records(models.KindManufacturing)
	for _, rec := range manufacturing {
		m := rec.(*models.ManufacturingLot)
		if m.Status == models.ManufacturingSellable {
			k.FinishedGoodsStockValue = k.FinishedGoodsStockValue.Add(m.RemainingQuantity.Mul(m.UnitCost))
		}
	}
	k.ProductionLotCount = len(manufacturing)
	return k
}

func stockValue(lots []models.Stocked) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range lots {
		total = total.Add(lot.Remaining().Mul(lot.LotUnitCost()))
	}
	return total
}
