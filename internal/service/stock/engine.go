// Package stock keeps lot quantities consistent with the records that draw
// from them. The engine works on a copy of a registry snapshot and either
// returns the complete set of lot changes or an error that leaves the
// snapshot untouched.
package stock

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/service/costing"
)

// LotChange is one entry of a write-set.
type LotChange struct {
	Lot    models.Stocked  `json:"lot"`
	Before decimal.Decimal `json:"before"`
	After  decimal.Decimal `json:"after"`
}

// Result is what a successful Save or Delete hands to the caller for commit.
type Result struct {
	// Record is the candidate with remaining quantity, version and derived
	// costs filled in. Nil for deletes.
	Record   models.Record `json:"record,omitempty"`
	Deleted  *models.Ref   `json:"deleted,omitempty"`
	WriteSet []LotChange   `json:"writeSet"`
	// Reads holds every record the candidate references, as found in the
	// snapshot. Committing them as version checks keeps a concurrent delete
	// from orphaning the candidate.
	Reads []models.Record `json:"-"`
}

// Engine applies recredit-then-deduct to candidate records.
type Engine struct {
	policy Policy
}

// NewEngine builds an engine with the given deducting policy.
func NewEngine(policy Policy) *Engine {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Engine{policy: policy}
}

// Policy returns the deducting policy in use.
func (e *Engine) Policy() Policy { return e.policy }

// Save computes the effect of replacing old with candidate. old is nil for a
// create. candidate is not modified; the returned Result carries a copy.
func (e *Engine) Save(old, candidate models.Record, snapshot *models.Registry) (*Result, error) {
	if candidate == nil {
		return nil, Invalid(models.Ref{}, "missing record")
	}
	ref := candidate.Ref()
	if old != nil && old.Ref() != ref {
		return nil, Invalid(ref, fmt.Sprintf("cannot replace %s", old.Ref()))
	}
	next := candidate.Clone()
	models.DefaultStatus(next)
	if err := validate(next); err != nil {
		return nil, err
	}
	if err := e.guardTransition(old, next); err != nil {
		return nil, err
	}
	if t, ok := next.(*models.TransformationStep); ok && e.policy.IsDeducting(t) && !t.InputQuantity.IsPositive() {
		return nil, Invalid(ref, "a completed transformation needs a positive input quantity")
	}
	reads, err := references(next, snapshot)
	if err != nil {
		return nil, err
	}
	if err := carryOver(old, next); err != nil {
		return nil, err
	}

	work := snapshot.Clone()
	tx := newTxn(snapshot, work)

	if old != nil && e.policy.IsDeducting(old) {
		tx.recredit(old)
	}
	if e.policy.IsDeducting(next) {
		if err := tx.deduct(next); err != nil {
			return nil, err
		}
	}

	work.Put(next)
	costing.Stamp(work, next)

	changes, err := tx.changes(ref)
	if err != nil {
		return nil, err
	}
	return &Result{Record: next, WriteSet: changes, Reads: reads}, nil
}

// references resolves everything rec points at, whatever its status, so a
// record never stores a dangling reference.
func references(rec models.Record, snapshot *models.Registry) ([]models.Record, error) {
	var out []models.Record
	seen := make(map[models.Ref]bool)
	add := func(r models.Record) {
		if !seen[r.Ref()] {
			seen[r.Ref()] = true
			out = append(out, r)
		}
	}

	if h, ok := rec.(*models.HarvestLot); ok {
		project := models.Ref{Kind: models.KindCultivation, ID: h.ProjectID}
		if strings.TrimSpace(h.ProjectID) == "" {
			return nil, Invalid(rec.Ref(), "missing parent cultivation project")
		}
		p, ok := snapshot.Get(project)
		if !ok {
			return nil, SourceNotFound(project)
		}
		add(p)
	}
	for _, c := range rec.Consumptions() {
		lot, ok := snapshot.Resolve(c.SourceLot())
		if !ok {
			return nil, SourceNotFound(c.SourceLot())
		}
		add(lot)
	}
	return out, nil
}

// Delete computes the effect of removing rec. Records still referenced
// downstream cannot be deleted.
func (e *Engine) Delete(rec models.Record, snapshot *models.Registry) (*Result, error) {
	if rec == nil {
		return nil, Invalid(models.Ref{}, "missing record")
	}
	ref := rec.Ref()
	if m, ok := rec.(*models.ManufacturingLot); ok && m.QuantitySold.IsPositive() {
		return nil, Dependents(ref, fmt.Sprintf("%s units already sold", m.QuantitySold))
	}
	if refs := snapshot.Referrers(ref); len(refs) > 0 {
		return nil, Dependents(ref, "referenced by "+joinRefs(refs))
	}

	work := snapshot.Clone()
	tx := newTxn(snapshot, work)
	if e.policy.IsDeducting(rec) {
		tx.recredit(rec)
	}
	work.Remove(ref)

	changes, err := tx.changes(ref)
	if err != nil {
		return nil, err
	}
	return &Result{Deleted: &ref, WriteSet: changes}, nil
}

// guardTransition keeps a finished-goods lot with sales in a deducting status.
func (e *Engine) guardTransition(old, candidate models.Record) error {
	m, ok := old.(*models.ManufacturingLot)
	if !ok || !m.QuantitySold.IsPositive() {
		return nil
	}
	if e.policy.IsDeducting(old) && !e.policy.IsDeducting(candidate) {
		return Dependents(old.Ref(), fmt.Sprintf("cannot move to %s with %s units sold", candidate.Lifecycle(), m.QuantitySold))
	}
	return nil
}

// carryOver copies engine-owned state from the stored record onto the
// candidate: version, purchase unit cost and quantity already drawn downstream.
func carryOver(old, next models.Record) error {
	if old != nil {
		next.SetVersion(old.GetVersion())
	} else {
		next.SetVersion(0)
	}

	if lot, ok := next.(*models.PurchasedLot); ok {
		if prev, ok := old.(*models.PurchasedLot); ok {
			lot.UnitCost = prev.UnitCost
		} else if lot.PurchaseCost.IsPositive() {
			lot.UnitCost = costing.PurchasedUnitCost(lot.PurchaseCost, lot.InitialQuantity)
		}
	}

	lot, ok := next.(models.Stocked)
	if !ok {
		return nil
	}
	drawn := decimal.Zero
	if prev, ok := old.(models.Stocked); ok {
		drawn = prev.Initial().Sub(prev.Remaining())
	}
	remaining := lot.Initial().Sub(drawn)
	if remaining.IsNegative() {
		return Insufficient(lot, drawn, lot.Initial())
	}
	lot.SetRemaining(remaining)
	return nil
}

func validate(rec models.Record) error {
	ref := rec.Ref()
	if strings.TrimSpace(ref.ID) == "" {
		return Invalid(ref, "missing id")
	}
	if lot, ok := rec.(*models.PurchasedLot); ok {
		switch lot.Category {
		case models.KindIngredient, models.KindPackaging, models.KindAgriculturalInput:
		default:
			return Invalid(ref, fmt.Sprintf("unknown purchased lot category %q", lot.Category))
		}
		if lot.PurchaseCost.IsNegative() || lot.UnitCost.IsNegative() {
			return Invalid(ref, "negative cost")
		}
	}
	if !models.ValidStatus(rec) {
		return Invalid(ref, fmt.Sprintf("unknown %s status %q", ref.Kind, rec.Lifecycle()))
	}
	if lot, ok := rec.(models.Stocked); ok && lot.Initial().IsNegative() {
		return Invalid(ref, "negative initial quantity")
	}
	for _, c := range rec.Consumptions() {
		if c.Amount().IsNegative() {
			return Invalid(ref, fmt.Sprintf("negative quantity drawn from %s", c.SourceLot()))
		}
		src := c.SourceLot()
		if src == ref || (src.Kind == models.KindPlant && src.ID == ref.ID) {
			return Invalid(ref, "record cannot draw from itself")
		}
	}
	for _, l := range laborOf(rec) {
		if l.Hours.IsNegative() {
			return Invalid(ref, "negative labor hours")
		}
	}
	if s, ok := rec.(*models.Sale); ok && s.UnitPrice.IsNegative() {
		return Invalid(ref, "negative unit price")
	}
	return nil
}

func laborOf(rec models.Record) []models.LaborEntry {
	switch r := rec.(type) {
	case *models.CultivationProject:
		return r.Labor
	case *models.HarvestLot:
		return r.Labor
	case *models.TransformationStep:
		return r.Labor
	case *models.ManufacturingLot:
		return r.Labor
	}
	return nil
}

func joinRefs(refs []models.Ref) string {
	parts := make([]string, 0, len(refs))
	for _, r := range refs {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}
