package stock

import (
	"github.com/mamadbah2/croptrace/internal/domain/models"
)

// txn tracks lot mutations on a working copy so the write-set can be diffed
// against the untouched snapshot.
type txn struct {
	base    *models.Registry
	work    *models.Registry
	touched []models.Ref
	seen    map[models.Ref]bool
}

func newTxn(base, work *models.Registry) *txn {
	return &txn{base: base, work: work, seen: make(map[models.Ref]bool)}
}

func (t *txn) touch(lot models.Stocked) {
	ref := lot.Ref()
	if !t.seen[ref] {
		t.seen[ref] = true
		t.touched = append(t.touched, ref)
	}
}

// recredit returns every quantity rec drew. Missing lots are skipped.
func (t *txn) recredit(rec models.Record) {
	for _, c := range rec.Consumptions() {
		lot, ok := t.work.Resolve(c.SourceLot())
		if !ok {
			continue
		}
		t.touch(lot)
		lot.SetRemaining(lot.Remaining().Add(c.Amount()))
	}
}

// deduct draws every quantity rec needs, entry by entry, so several entries on
// the same lot accumulate.
func (t *txn) deduct(rec models.Record) error {
	for _, c := range rec.Consumptions() {
		lot, ok := t.work.Resolve(c.SourceLot())
		if !ok {
			return SourceNotFound(c.SourceLot())
		}
		available := lot.Remaining()
		if available.LessThan(c.Amount()) {
			return Insufficient(lot, c.Amount(), available)
		}
		t.touch(lot)
		lot.SetRemaining(available.Sub(c.Amount()))
	}
	return nil
}

// changes lists touched lots whose remaining quantity moved, excluding self.
func (t *txn) changes(self models.Ref) ([]LotChange, error) {
	out := make([]LotChange, 0, len(t.touched))
	for _, ref := range t.touched {
		if ref == self {
			continue
		}
		after, ok := t.work.Resolve(ref)
		if !ok {
			continue
		}
		before, ok := t.base.Resolve(ref)
		if !ok {
			continue
		}
		if before.Remaining().Equal(after.Remaining()) {
			continue
		}
		if after.Remaining().GreaterThan(after.Initial()) {
			return nil, Invalid(ref, "remaining quantity would exceed initial quantity")
		}
		out = append(out, LotChange{Lot: after, Before: before.Remaining(), After: after.Remaining()})
	}
	return out, nil
}
