package stock

import (
	"github.com/mamadbah2/croptrace/internal/domain/models"
)

// StatusPredicate reports whether a record in the given status holds stock.
type StatusPredicate func(status string) bool

// Always treats every status as deducting.
func Always(string) bool { return true }

// StatusIn deducts only for the listed statuses.
func StatusIn[S ~string](statuses ...S) StatusPredicate {
	set := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		set[string(s)] = struct{}{}
	}
	return func(status string) bool {
		_, ok := set[status]
		return ok
	}
}

// Policy maps each consuming kind to its deducting predicate. Kinds without an
// entry never deduct.
type Policy map[models.Kind]StatusPredicate

// DefaultPolicy is the production policy. Cultivation entries are events that
// happened when recorded, so they always count.
func DefaultPolicy() Policy {
	return Policy{
		models.KindCultivation: Always,
		models.KindHarvest: StatusIn(
			models.HarvestHarvested,
			models.HarvestDrying,
			models.HarvestDried,
		),
		models.KindTransformation: StatusIn(models.TransformationCompleted),
		models.KindManufacturing: StatusIn(
			models.ManufacturingProduced,
			models.ManufacturingQualityControl,
			models.ManufacturingSellable,
		),
		models.KindSale: Always,
	}
}

// WithSaleStatuses restricts sale reservation to the given statuses. An empty
// list keeps reservation unconditional.
func (p Policy) WithSaleStatuses(statuses []string) Policy {
	out := make(Policy, len(p))
	for k, v := range p {
		out[k] = v
	}
	if len(statuses) > 0 {
		out[models.KindSale] = StatusIn(statuses...)
	}
	return out
}

// IsDeducting reports whether rec currently holds stock from its sources.
func (p Policy) IsDeducting(rec models.Record) bool {
	if rec == nil {
		return false
	}
	pred, ok := p[rec.Ref().Kind]
	if !ok {
		return false
	}
	return pred(rec.Lifecycle())
}
