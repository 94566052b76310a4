package costing

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/croptrace/internal/domain/models"
)

// Cascade recomputes every derived cost in dependency order on a copy of reg
// and returns the records whose derived fields changed. Stock quantities are
// never touched.
func Cascade(reg *models.Registry) []models.Record {
	work := reg.Clone()
	var changed []models.Record

	restamp := func(rec models.Record) {
		next := rec.Clone()
		Stamp(work, next)
		if !sameCosts(rec, next) {
			work.Put(next)
			changed = append(changed, next)
		}
	}

	for _, kind := range []models.Kind{models.KindCultivation, models.KindHarvest} {
		for _, rec := range work.Records(kind) {
			restamp(rec)
		}
	}
	for _, rec := range transformationOrder(work) {
		restamp(rec)
	}
	for _, kind := range []models.Kind{models.KindManufacturing, models.KindSale} {
		for _, rec := range work.Records(kind) {
			restamp(rec)
		}
	}
	return changed
}

// transformationOrder lists steps so that every step follows the step it reads from.
func transformationOrder(reg *models.Registry) []models.Record {
	pending := reg.Records(models.KindTransformation)
	done := make(map[string]bool, len(pending))
	var out []models.Record

	for len(pending) > 0 {
		var next []models.Record
		for _, rec := range pending {
			t := rec.(*models.TransformationStep)
			if t.SourceKind == models.FromTransformation && !done[t.SourceID] && t.SourceID != t.ID {
				if _, exists := reg.Transformation(t.SourceID); exists {
					next = append(next, rec)
					continue
				}
			}
			done[t.ID] = true
			out = append(out, rec)
		}
		if len(next) == len(pending) {
			// cycle: keep the remaining steps in id order
			return append(out, next...)
		}
		pending = next
	}
	return out
}

func sameCosts(a, b models.Record) bool {
	x, y := costFields(a), costFields(b)
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !x[i].Equal(y[i]) {
			return false
		}
	}
	return true
}

func costFields(rec models.Record) []decimal.Decimal {
	switch r := rec.(type) {
	case *models.CultivationProject:
		return []decimal.Decimal{r.Cost}
	case *models.HarvestLot:
		return []decimal.Decimal{r.TotalCost, r.DryUnitCost}
	case *models.TransformationStep:
		return []decimal.Decimal{r.InputCost, r.LaborCost, r.TotalCost, r.OutputUnitCost}
	case *models.ManufacturingLot:
		return []decimal.Decimal{r.ComponentCost, r.PackagingCost, r.LaborCost, r.CostOfGoods, r.UnitCost}
	case *models.Sale:
		return []decimal.Decimal{r.TotalPrice, r.CostOfGoodsSold, r.MarginAbsolute, r.MarginPercent}
	}
	return nil
}
