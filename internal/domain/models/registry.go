package models

import (
	"sort"
	"strings"
)

// Registry is an in-memory snapshot of every record and catalog entry. Values
// handed out by a Registry belong to it; callers mutate clones, never the
// originals.
type Registry struct {
	records    map[Ref]Record
	workers    map[string]Worker
	products   map[string]Product
	thresholds map[string]Threshold
	recipes    map[string]Recipe
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records:    make(map[Ref]Record),
		workers:    make(map[string]Worker),
		products:   make(map[string]Product),
		thresholds: make(map[string]Threshold),
		recipes:    make(map[string]Recipe),
	}
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	for ref, rec := range r.records {
		c.records[ref] = rec.Clone()
	}
	for id, w := range r.workers {
		c.workers[id] = w
	}
	for id, p := range r.products {
		c.products[id] = p
	}
	for id, t := range r.thresholds {
		c.thresholds[id] = t
	}
	for id, rc := range r.recipes {
		rc.Components = append([]RecipeComponent(nil), rc.Components...)
		c.recipes[id] = rc
	}
	return c
}

// Put stores rec, replacing any record with the same reference.
func (r *Registry) Put(rec Record) {
	r.records[rec.Ref()] = rec
}

// Remove drops the record addressed by ref.
func (r *Registry) Remove(ref Ref) {
	delete(r.records, ref)
}

// Get looks up a record by exact reference.
func (r *Registry) Get(ref Ref) (Record, bool) {
	rec, ok := r.records[ref]
	return rec, ok
}

// Len reports the number of stored records.
func (r *Registry) Len() int { return len(r.records) }

// Resolve finds the lot a consumption entry points at. Plant references are
// tried as a harvest lot first, then as a transformation output.
func (r *Registry) Resolve(ref Ref) (Stocked, bool) {
	if ref.Kind == KindPlant {
		if lot, ok := r.Resolve(Ref{Kind: KindHarvest, ID: ref.ID}); ok {
			return lot, true
		}
		return r.Resolve(Ref{Kind: KindTransformation, ID: ref.ID})
	}
	rec, ok := r.records[ref]
	if !ok {
		return nil, false
	}
	lot, ok := rec.(Stocked)
	return lot, ok
}

// Records returns every record of the given kind ordered by id.
func (r *Registry) Records(kind Kind) []Record {
	var out []Record
	for ref, rec := range r.records {
		if ref.Kind == kind {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID() < out[j].RecordID() })
	return out
}

// All returns every record ordered by kind then id.
func (r *Registry) All() []Record {
	var out []Record
	for _, k := range Kinds {
		out = append(out, r.Records(k)...)
	}
	return out
}

// Lots returns every stock-bearing record of the given kind ordered by id.
func (r *Registry) Lots(kind Kind) []Stocked {
	var out []Stocked
	for _, rec := range r.Records(kind) {
		if lot, ok := rec.(Stocked); ok {
			out = append(out, lot)
		}
	}
	return out
}

// Referrers lists the records that point at ref, either through a consumption
// entry or, for a cultivation project, as the parent of a harvest.
func (r *Registry) Referrers(ref Ref) []Ref {
	var out []Ref
	for _, rec := range r.All() {
		if rec.Ref() == ref {
			continue
		}
		if h, ok := rec.(*HarvestLot); ok && ref.Kind == KindCultivation && h.ProjectID == ref.ID {
			out = append(out, rec.Ref())
			continue
		}
		for _, c := range rec.Consumptions() {
			if r.pointsAt(c.SourceLot(), ref) {
				out = append(out, rec.Ref())
				break
			}
		}
	}
	return out
}

func (r *Registry) pointsAt(source, target Ref) bool {
	if source == target {
		return true
	}
	if source.Kind != KindPlant || source.ID != target.ID {
		return false
	}
	lot, ok := r.Resolve(source)
	return ok && lot.Ref() == target
}

func (r *Registry) Cultivation(id string) (*CultivationProject, bool) {
	rec, ok := r.records[Ref{Kind: KindCultivation, ID: id}]
	if !ok {
		return nil, false
	}
	p, ok := rec.(*CultivationProject)
	return p, ok
}

func (r *Registry) Harvest(id string) (*HarvestLot, bool) {
	rec, ok := r.records[Ref{Kind: KindHarvest, ID: id}]
	if !ok {
		return nil, false
	}
	h, ok := rec.(*HarvestLot)
	return h, ok
}

func (r *Registry) Transformation(id string) (*TransformationStep, bool) {
	rec, ok := r.records[Ref{Kind: KindTransformation, ID: id}]
	if !ok {
		return nil, false
	}
	t, ok := rec.(*TransformationStep)
	return t, ok
}

func (r *Registry) Manufacturing(id string) (*ManufacturingLot, bool) {
	rec, ok := r.records[Ref{Kind: KindManufacturing, ID: id}]
	if !ok {
		return nil, false
	}
	m, ok := rec.(*ManufacturingLot)
	return m, ok
}

func (r *Registry) Purchased(kind Kind, id string) (*PurchasedLot, bool) {
	rec, ok := r.records[Ref{Kind: kind, ID: id}]
	if !ok {
		return nil, false
	}
	l, ok := rec.(*PurchasedLot)
	return l, ok
}

// PutCatalog stores a reference entry.
func (r *Registry) PutCatalog(entry CatalogEntry) {
	_, id := entry.CatalogKey()
	switch e := WithID(entry, id).(type) {
	case Worker:
		r.workers[id] = e
	case Product:
		r.products[id] = e
	case Threshold:
		r.thresholds[id] = e
	case Recipe:
		r.recipes[id] = e
	}
}

func (r *Registry) Worker(id string) (Worker, bool) {
	w, ok := r.workers[id]
	return w, ok
}

func (r *Registry) Product(id string) (Product, bool) {
	p, ok := r.products[id]
	return p, ok
}

func (r *Registry) Recipe(id string) (Recipe, bool) {
	rc, ok := r.recipes[id]
	return rc, ok
}

func (r *Registry) Workers() []Worker {
	out := make([]Worker, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Products() []Product {
	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Thresholds() []Threshold {
	out := make([]Threshold, 0, len(r.thresholds))
	for _, t := range r.thresholds {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Recipes() []Recipe {
	out := make([]Recipe, 0, len(r.recipes))
	for _, rc := range r.recipes {
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SameName compares resource names the way operators type them.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
