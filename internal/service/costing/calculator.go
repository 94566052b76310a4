// Package costing derives unit costs, cost of goods and margins from the
// registry. Every function is pure: it reads the registry and returns values,
// and a missing or zero upstream cost contributes zero instead of failing.
package costing

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/croptrace/internal/domain/models"
)

var hundred = decimal.NewFromInt(100)

// Ratio divides and yields zero when the divisor is not positive.
func Ratio(total, quantity decimal.Decimal) decimal.Decimal {
	if !quantity.IsPositive() {
		return decimal.Zero
	}
	return total.Div(quantity)
}

// PurchasedUnitCost is the fixed unit cost of a purchased lot.
func PurchasedUnitCost(purchaseCost, initial decimal.Decimal) decimal.Decimal {
	return Ratio(purchaseCost, initial)
}

// LaborCost sums hours times the worker's hourly rate. Unknown workers cost nothing.
func LaborCost(reg *models.Registry, labor []models.LaborEntry) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range labor {
		w, ok := reg.Worker(entry.WorkerID)
		if !ok {
			continue
		}
		total = total.Add(entry.Hours.Mul(w.HourlyRate))
	}
	return total
}

// InputCost sums quantity times the unit cost of each agricultural input lot.
func InputCost(reg *models.Registry, inputs []models.InputUsage) decimal.Decimal {
	total := decimal.Zero
	for _, in := range inputs {
		lot, ok := reg.Purchased(models.KindAgriculturalInput, in.InputLotID)
		if !ok {
			continue
		}
		total = total.Add(in.Quantity.Mul(lot.UnitCost))
	}
	return total
}

// CultivationCost is labor plus inputs over the whole project.
func CultivationCost(reg *models.Registry, p *models.CultivationProject) decimal.Decimal {
	return LaborCost(reg, p.Labor).Add(InputCost(reg, p.Inputs))
}

// HarvestCost breaks down what a harvest lot cost.
type HarvestCost struct {
	EventLabor  decimal.Decimal `json:"eventLabor"`
	EventInputs decimal.Decimal `json:"eventInputs"`
	ProjectCost decimal.Decimal `json:"projectCost"`
	Total       decimal.Decimal `json:"total"`
	DryUnitCost decimal.Decimal `json:"dryUnitCost"`
}

// HarvestCosts attributes the full parent project cost to the harvest, on top
// of the labor and inputs recorded on the harvest itself.
func HarvestCosts(reg *models.Registry, h *models.HarvestLot) HarvestCost {
	out := HarvestCost{
		EventLabor:  LaborCost(reg, h.Labor),
		EventInputs: InputCost(reg, h.Inputs),
	}
	if p, ok := reg.Cultivation(h.ProjectID); ok {
		out.ProjectCost = p.Cost
		if out.ProjectCost.IsZero() {
			out.ProjectCost = CultivationCost(reg, p)
		}
	}
	out.Total = out.EventLabor.Add(out.EventInputs).Add(out.ProjectCost)
	out.DryUnitCost = Ratio(out.Total, h.DryWeight())
	return out
}

// TransformationCost breaks down what a transformation step cost.
type TransformationCost struct {
	InputCost      decimal.Decimal `json:"inputCost"`
	LaborCost      decimal.Decimal `json:"laborCost"`
	Total          decimal.Decimal `json:"total"`
	OutputUnitCost decimal.Decimal `json:"outputUnitCost"`
}

// TransformationCosts prices the input at the upstream lot's unit cost.
func TransformationCosts(reg *models.Registry, t *models.TransformationStep) TransformationCost {
	out := TransformationCost{
		InputCost: t.InputQuantity.Mul(sourceUnitCost(reg, t.Source())),
		LaborCost: LaborCost(reg, t.Labor),
	}
	out.Total = out.InputCost.Add(out.LaborCost)
	out.OutputUnitCost = Ratio(out.Total, t.Initial())
	return out
}

// sourceUnitCost is the unit cost of a plant-origin lot. A harvest without a
// stored unit cost is priced on the fly; a transformation output only counts
// when its unit cost has been stamped.
func sourceUnitCost(reg *models.Registry, ref models.Ref) decimal.Decimal {
	switch ref.Kind {
	case models.KindHarvest:
		h, ok := reg.Harvest(ref.ID)
		if !ok {
			return decimal.Zero
		}
		if h.DryUnitCost.IsPositive() {
			return h.DryUnitCost
		}
		return HarvestCosts(reg, h).DryUnitCost
	case models.KindTransformation:
		t, ok := reg.Transformation(ref.ID)
		if !ok {
			return decimal.Zero
		}
		return t.OutputUnitCost
	case models.KindPlant:
		if _, ok := reg.Harvest(ref.ID); ok {
			return sourceUnitCost(reg, models.Ref{Kind: models.KindHarvest, ID: ref.ID})
		}
		return sourceUnitCost(reg, models.Ref{Kind: models.KindTransformation, ID: ref.ID})
	}
	return decimal.Zero
}

// ManufacturingCost breaks down the cost of goods of a finished-goods lot.
type ManufacturingCost struct {
	Components  decimal.Decimal `json:"components"`
	Packaging   decimal.Decimal `json:"packaging"`
	Labor       decimal.Decimal `json:"labor"`
	CostOfGoods decimal.Decimal `json:"costOfGoods"`
	UnitCost    decimal.Decimal `json:"unitCost"`
}

// ManufacturingCosts sums components, packaging and labor.
func ManufacturingCosts(reg *models.Registry, m *models.ManufacturingLot) ManufacturingCost {
	var out ManufacturingCost
	for _, c := range m.Components {
		var unit decimal.Decimal
		if c.Source == models.ComponentPlant {
			unit = sourceUnitCost(reg, c.SourceLot())
		} else if lot, ok := reg.Purchased(models.KindIngredient, c.LotID); ok {
			unit = lot.UnitCost
		}
		out.Components = out.Components.Add(c.Quantity.Mul(unit))
	}
	for _, p := range m.Packaging {
		if lot, ok := reg.Purchased(models.KindPackaging, p.PackagingLotID); ok {
			out.Packaging = out.Packaging.Add(p.Quantity.Mul(lot.UnitCost))
		}
	}
	out.Labor = LaborCost(reg, m.Labor)
	out.CostOfGoods = out.Components.Add(out.Packaging).Add(out.Labor)
	out.UnitCost = Ratio(out.CostOfGoods, m.Initial())
	return out
}

// SaleMargin is the derived economics of one sale.
type SaleMargin struct {
	Total           decimal.Decimal `json:"total"`
	CostOfGoodsSold decimal.Decimal `json:"costOfGoodsSold"`
	MarginAbsolute  decimal.Decimal `json:"marginAbsolute"`
	MarginPercent   decimal.Decimal `json:"marginPercent"`
}

// SaleMargins prices the sold quantity at the manufacturing lot's unit cost.
func SaleMargins(reg *models.Registry, s *models.Sale) SaleMargin {
	out := SaleMargin{Total: s.Quantity.Mul(s.UnitPrice)}
	if m, ok := reg.Manufacturing(s.ManufacturingLotID); ok {
		out.CostOfGoodsSold = s.Quantity.Mul(m.UnitCost)
	}
	out.MarginAbsolute = out.Total.Sub(out.CostOfGoodsSold)
	if !out.Total.IsZero() {
		out.MarginPercent = out.MarginAbsolute.Div(out.Total).Mul(hundred)
	}
	return out
}

// Stamp writes the derived fields of rec from the registry. Records without
// derived costs are left untouched.
func Stamp(reg *models.Registry, rec models.Record) {
	switch r := rec.(type) {
	case *models.CultivationProject:
		r.Cost = CultivationCost(reg, r)
	case *models.HarvestLot:
		c := HarvestCosts(reg, r)
		r.TotalCost = c.Total
		r.DryUnitCost = c.DryUnitCost
	case *models.TransformationStep:
		c := TransformationCosts(reg, r)
		r.InputCost = c.InputCost
		r.LaborCost = c.LaborCost
		r.TotalCost = c.Total
		r.OutputUnitCost = c.OutputUnitCost
	case *models.ManufacturingLot:
		c := ManufacturingCosts(reg, r)
		r.ComponentCost = c.Components
		r.PackagingCost = c.Packaging
		r.LaborCost = c.Labor
		r.CostOfGoods = c.CostOfGoods
		r.UnitCost = c.UnitCost
	case *models.Sale:
		c := SaleMargins(reg, r)
		r.TotalPrice = c.Total
		r.CostOfGoodsSold = c.CostOfGoodsSold
		r.MarginAbsolute = c.MarginAbsolute
		r.MarginPercent = c.MarginPercent
	}
}
