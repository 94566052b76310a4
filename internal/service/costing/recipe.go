package costing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/croptrace/internal/domain/models"
)

// ComponentEstimate is the planning cost of one recipe line.
type ComponentEstimate struct {
	Name            string          `json:"name"`
	Quantity        decimal.Decimal `json:"quantity"`
	AverageUnitCost decimal.Decimal `json:"averageUnitCost"`
	Cost            decimal.Decimal `json:"cost"`
	// Priced is false when no lot with a positive unit cost matched the name.
	Priced bool `json:"priced"`
}

// RecipeEstimate is the planning cost of a whole recipe.
type RecipeEstimate struct {
	RecipeID     string              `json:"recipeId"`
	Components   []ComponentEstimate `json:"components"`
	Total        decimal.Decimal     `json:"total"`
	CostPerYield decimal.Decimal     `json:"costPerYield"`
}

// EstimateRecipe prices each recipe line at the average unit cost of the lots
// sharing its name. It reads the registry and changes nothing.
func EstimateRecipe(reg *models.Registry, recipe models.Recipe) RecipeEstimate {
	out := RecipeEstimate{RecipeID: recipe.ID}
	for _, line := range recipe.Components {
		var avg decimal.Decimal
		var ok bool
		if line.Type == models.RecipePlant {
			avg, ok = averagePlantCost(reg, line.Name)
		} else {
			avg, ok = averagePurchasedCost(reg, line.Name)
		}
		est := ComponentEstimate{
			Name:            line.Name,
			Quantity:        line.Quantity,
			AverageUnitCost: avg,
			Cost:            line.Quantity.Mul(avg),
			Priced:          ok,
		}
		out.Total = out.Total.Add(est.Cost)
		out.Components = append(out.Components, est)
	}
	out.CostPerYield = Ratio(out.Total, recipe.ReferenceYield)
	return out
}

func averagePurchasedCost(reg *models.Registry, name string) (decimal.Decimal, bool) {
	var costs []decimal.Decimal
	for _, lot := range reg.Lots(models.KindIngredient) {
		l := lot.(*models.PurchasedLot)
		if models.SameName(l.Name, name) && l.UnitCost.IsPositive() {
			costs = append(costs, l.UnitCost)
		}
	}
	return average(costs)
}

// averagePlantCost prefers dried harvests of projects growing the plant and
// falls back to transformation outputs whose description mentions it.
func averagePlantCost(reg *models.Registry, name string) (decimal.Decimal, bool) {
	var costs []decimal.Decimal
	for _, rec := range reg.Records(models.KindHarvest) {
		h := rec.(*models.HarvestLot)
		p, ok := reg.Cultivation(h.ProjectID)
		if !ok || !models.SameName(p.PlantName, name) {
			continue
		}
		if h.DryUnitCost.IsPositive() {
			costs = append(costs, h.DryUnitCost)
		}
	}
	if len(costs) > 0 {
		return average(costs)
	}

	needle := strings.ToLower(strings.TrimSpace(name))
	for _, rec := range reg.Records(models.KindTransformation) {
		t := rec.(*models.TransformationStep)
		if needle == "" || !strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}
		if t.OutputUnitCost.IsPositive() {
			costs = append(costs, t.OutputUnitCost)
		}
	}
	return average(costs)
}

func average(values []decimal.Decimal) (decimal.Decimal, bool) {
	if len(values) == 0 {
		return decimal.Zero, false
	}
	return decimal.Avg(values[0], values[1:]...), true
}
