package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LaborEntry records hours a worker spent on a stage.
type LaborEntry struct {
	WorkerID string          `json:"workerId" bson:"worker_id"`
	Hours    decimal.Decimal `json:"hours" bson:"hours"`
	Date     time.Time       `json:"date" bson:"date"`
	Activity string          `json:"activity,omitempty" bson:"activity,omitempty"`
}

// InputUsage draws from an agricultural input lot.
type InputUsage struct {
	InputLotID string          `json:"inputLotId" bson:"input_lot_id"`
	Quantity   decimal.Decimal `json:"quantity" bson:"quantity"`
	Date       time.Time       `json:"date" bson:"date"`
}

func (u InputUsage) SourceLot() Ref {
	return Ref{Kind: KindAgriculturalInput, ID: u.InputLotID}
}

func (u InputUsage) Amount() decimal.Decimal { return u.Quantity }

// ComponentSource tells which lot family a manufacturing component draws from.
type ComponentSource string

const (
	ComponentPurchased ComponentSource = "purchased"
	ComponentPlant     ComponentSource = "plant"
)

// Component is an ingredient or plant-origin lot used by a manufacturing lot.
type Component struct {
	Source   ComponentSource `json:"source" bson:"source"`
	LotID    string          `json:"lotId" bson:"lot_id"`
	Quantity decimal.Decimal `json:"quantity" bson:"quantity"`
}

func (c Component) SourceLot() Ref {
	if c.Source == ComponentPlant {
		return Ref{Kind: KindPlant, ID: c.LotID}
	}
	return Ref{Kind: KindIngredient, ID: c.LotID}
}

func (c Component) Amount() decimal.Decimal { return c.Quantity }

// PackagingUsage draws from a packaging lot.
type PackagingUsage struct {
	PackagingLotID string          `json:"packagingLotId" bson:"packaging_lot_id"`
	Quantity       decimal.Decimal `json:"quantity" bson:"quantity"`
}

func (p PackagingUsage) SourceLot() Ref {
	return Ref{Kind: KindPackaging, ID: p.PackagingLotID}
}

func (p PackagingUsage) Amount() decimal.Decimal { return p.Quantity }

// CultivationProject is a crop grown on a plot.
type CultivationProject struct {
	Meta `bson:",inline"`

	PlantName string            `json:"plantName" bson:"plant_name"`
	Plot      string            `json:"plot" bson:"plot"`
	PlantedAt time.Time         `json:"plantedAt" bson:"planted_at"`
	Status    CultivationStatus `json:"status" bson:"status"`
	Labor     []LaborEntry      `json:"labor" bson:"labor"`
	Inputs    []InputUsage      `json:"inputs" bson:"inputs"`

	// Cost is derived.
	Cost decimal.Decimal `json:"cost" bson:"cost"`
}

func (p *CultivationProject) Ref() Ref          { return Ref{Kind: KindCultivation, ID: p.ID} }
func (p *CultivationProject) Lifecycle() string { return string(p.Status) }

func (p *CultivationProject) Consumptions() []Consumption {
	out := make([]Consumption, 0, len(p.Inputs))
	for _, in := range p.Inputs {
		out = append(out, in)
	}
	return out
}

func (p *CultivationProject) Clone() Record {
	c := *p
	c.Labor = append([]LaborEntry(nil), p.Labor...)
	c.Inputs = append([]InputUsage(nil), p.Inputs...)
	return &c
}

// HarvestLot is a picking event of a cultivation project. Its dried weight is
// the lot's initial quantity.
type HarvestLot struct {
	Meta  `bson:",inline"`
	Stock `bson:",inline"`

	LotNumber   string          `json:"lotNumber" bson:"lot_number"`
	ProjectID   string          `json:"projectId" bson:"project_id"`
	HarvestedAt time.Time       `json:"harvestedAt" bson:"harvested_at"`
	RawWeight   decimal.Decimal `json:"rawWeight" bson:"raw_weight"`
	Status      HarvestStatus   `json:"status" bson:"status"`
	Labor       []LaborEntry    `json:"labor" bson:"labor"`
	Inputs      []InputUsage    `json:"inputs" bson:"inputs"`

	// Derived costs.
	TotalCost   decimal.Decimal `json:"totalCost" bson:"total_cost"`
	DryUnitCost decimal.Decimal `json:"dryUnitCost" bson:"dry_unit_cost"`
}

func (h *HarvestLot) Ref() Ref                     { return Ref{Kind: KindHarvest, ID: h.ID} }
func (h *HarvestLot) Lifecycle() string            { return string(h.Status) }
func (h *HarvestLot) LotName() string              { return h.LotNumber }
func (h *HarvestLot) LotUnitCost() decimal.Decimal { return h.DryUnitCost }

// DryWeight is the weight after drying.
func (h *HarvestLot) DryWeight() decimal.Decimal { return h.InitialQuantity }

func (h *HarvestLot) Consumptions() []Consumption {
	out := make([]Consumption, 0, len(h.Inputs))
	for _, in := range h.Inputs {
		out = append(out, in)
	}
	return out
}

func (h *HarvestLot) Clone() Record {
	c := *h
	c.Labor = append([]LaborEntry(nil), h.Labor...)
	c.Inputs = append([]InputUsage(nil), h.Inputs...)
	return &c
}

// TransformationSource tells which lot family a transformation reads from.
type TransformationSource string

const (
	FromHarvest        TransformationSource = "harvest"
	FromTransformation TransformationSource = "transformation"
)

// TransformationStep turns an upstream plant lot into a new output lot. The
// output quantity is the lot's initial quantity.
type TransformationStep struct {
	Meta  `bson:",inline"`
	Stock `bson:",inline"`

	OutputLotNumber string               `json:"outputLotNumber" bson:"output_lot_number"`
	Description     string               `json:"description" bson:"description"`
	Process         string               `json:"process" bson:"process"`
	SourceKind      TransformationSource `json:"sourceKind" bson:"source_kind"`
	SourceID        string               `json:"sourceId" bson:"source_id"`
	InputQuantity   decimal.Decimal      `json:"inputQuantity" bson:"input_quantity"`
	StartedAt       time.Time            `json:"startedAt" bson:"started_at"`
	Status          TransformationStatus `json:"status" bson:"status"`
	Labor           []LaborEntry         `json:"labor" bson:"labor"`

	// Derived costs.
	InputCost      decimal.Decimal `json:"inputCost" bson:"input_cost"`
	LaborCost      decimal.Decimal `json:"laborCost" bson:"labor_cost"`
	TotalCost      decimal.Decimal `json:"totalCost" bson:"total_cost"`
	OutputUnitCost decimal.Decimal `json:"outputUnitCost" bson:"output_unit_cost"`
}

func (t *TransformationStep) Ref() Ref                     { return Ref{Kind: KindTransformation, ID: t.ID} }
func (t *TransformationStep) Lifecycle() string            { return string(t.Status) }
func (t *TransformationStep) LotName() string              { return t.OutputLotNumber }
func (t *TransformationStep) LotUnitCost() decimal.Decimal { return t.OutputUnitCost }

// Source returns the upstream lot reference.
func (t *TransformationStep) Source() Ref {
	if t.SourceKind == FromTransformation {
		return Ref{Kind: KindTransformation, ID: t.SourceID}
	}
	return Ref{Kind: KindHarvest, ID: t.SourceID}
}

func (t *TransformationStep) Consumptions() []Consumption {
	return []Consumption{stepInput{source: t.Source(), quantity: t.InputQuantity}}
}

func (t *TransformationStep) Clone() Record {
	c := *t
	c.Labor = append([]LaborEntry(nil), t.Labor...)
	return &c
}

type stepInput struct {
	source   Ref
	quantity decimal.Decimal
}

func (s stepInput) SourceLot() Ref          { return s.source }
func (s stepInput) Amount() decimal.Decimal { return s.quantity }

// ManufacturingLot is a batch of finished product. Its produced quantity is
// the lot's initial quantity and QuantitySold always equals produced minus
// remaining.
type ManufacturingLot struct {
	Meta  `bson:",inline"`
	Stock `bson:",inline"`

	LotNumber    string              `json:"lotNumber" bson:"lot_number"`
	ProductID    string              `json:"productId" bson:"product_id"`
	ProductName  string              `json:"productName" bson:"product_name"`
	ProducedAt   time.Time           `json:"producedAt" bson:"produced_at"`
	BestBefore   *time.Time          `json:"bestBefore,omitempty" bson:"best_before,omitempty"`
	Status       ManufacturingStatus `json:"status" bson:"status"`
	Components   []Component         `json:"components" bson:"components"`
	Packaging    []PackagingUsage    `json:"packaging" bson:"packaging"`
	Labor        []LaborEntry        `json:"labor" bson:"labor"`
	QuantitySold decimal.Decimal     `json:"quantitySold" bson:"quantity_sold"`

	// Derived costs.
	ComponentCost decimal.Decimal `json:"componentCost" bson:"component_cost"`
	PackagingCost decimal.Decimal `json:"packagingCost" bson:"packaging_cost"`
	LaborCost     decimal.Decimal `json:"laborCost" bson:"labor_cost"`
	CostOfGoods   decimal.Decimal `json:"costOfGoods" bson:"cost_of_goods"`
	UnitCost      decimal.Decimal `json:"unitCost" bson:"unit_cost"`
}

func (m *ManufacturingLot) Ref() Ref                     { return Ref{Kind: KindManufacturing, ID: m.ID} }
func (m *ManufacturingLot) Lifecycle() string            { return string(m.Status) }
func (m *ManufacturingLot) LotName() string              { return m.LotNumber }
func (m *ManufacturingLot) LotUnitCost() decimal.Decimal { return m.UnitCost }

// SetRemaining keeps the sold counter in step with finished-goods stock.
func (m *ManufacturingLot) SetRemaining(d decimal.Decimal) {
	m.RemainingQuantity = d
	m.QuantitySold = m.InitialQuantity.Sub(d)
}

func (m *ManufacturingLot) Consumptions() []Consumption {
	out := make([]Consumption, 0, len(m.Components)+len(m.Packaging))
	for _, c := range m.Components {
		out = append(out, c)
	}
	for _, p := range m.Packaging {
		out = append(out, p)
	}
	return out
}

func (m *ManufacturingLot) Clone() Record {
	c := *m
	if m.BestBefore != nil {
		at := *m.BestBefore
		c.BestBefore = &at
	}
	c.Components = append([]Component(nil), m.Components...)
	c.Packaging = append([]PackagingUsage(nil), m.Packaging...)
	c.Labor = append([]LaborEntry(nil), m.Labor...)
	return &c
}

// Sale reserves finished goods from one manufacturing lot.
type Sale struct {
	Meta `bson:",inline"`

	InvoiceNumber      string          `json:"invoiceNumber" bson:"invoice_number"`
	Customer           string          `json:"customer" bson:"customer"`
	SoldAt             time.Time       `json:"soldAt" bson:"sold_at"`
	ManufacturingLotID string          `json:"manufacturingLotId" bson:"manufacturing_lot_id"`
	Quantity           decimal.Decimal `json:"quantity" bson:"quantity"`
	UnitPrice          decimal.Decimal `json:"unitPrice" bson:"unit_price"`
	Status             SaleStatus      `json:"status" bson:"status"`

	// Derived.
	TotalPrice      decimal.Decimal `json:"totalPrice" bson:"total_price"`
	CostOfGoodsSold decimal.Decimal `json:"costOfGoodsSold" bson:"cost_of_goods_sold"`
	MarginAbsolute  decimal.Decimal `json:"marginAbsolute" bson:"margin_absolute"`
	MarginPercent   decimal.Decimal `json:"marginPercent" bson:"margin_percent"`
}

func (s *Sale) Ref() Ref          { return Ref{Kind: KindSale, ID: s.ID} }
func (s *Sale) Lifecycle() string { return string(s.Status) }

func (s *Sale) Consumptions() []Consumption {
	return []Consumption{stepInput{
		source:   Ref{Kind: KindManufacturing, ID: s.ManufacturingLotID},
		quantity: s.Quantity,
	}}
}

func (s *Sale) Clone() Record {
	c := *s
	return &c
}
