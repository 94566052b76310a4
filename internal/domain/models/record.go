package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the collection a record belongs to.
type Kind string

const (
	KindIngredient        Kind = "ingredient"
	KindPackaging         Kind = "packaging"
	KindAgriculturalInput Kind = "agricultural_input"
	KindCultivation       Kind = "cultivation"
	KindHarvest           Kind = "harvest"
	KindTransformation    Kind = "transformation"
	KindManufacturing     Kind = "manufacturing"
	KindSale              Kind = "sale"

	// KindPlant is only valid inside a manufacturing component reference. It
	// resolves to a harvest lot first, then to a transformation output.
	KindPlant Kind = "plant"
)

// Kinds lists every storable record kind in dependency order.
var Kinds = []Kind{
	KindIngredient,
	KindPackaging,
	KindAgriculturalInput,
	KindCultivation,
	KindHarvest,
	KindTransformation,
	KindManufacturing,
	KindSale,
}

// ParseKind validates a storable kind name.
func ParseKind(value string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == value {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown record kind %q", value)
}

// Ref addresses a single record.
type Ref struct {
	Kind Kind   `json:"kind" bson:"kind"`
	ID   string `json:"id" bson:"id"`
}

func (r Ref) String() string {
	return string(r.Kind) + "/" + r.ID
}

// Meta carries identity and optimistic concurrency data shared by every record.
type Meta struct {
	ID        string    `json:"id" bson:"_id"`
	Version   int64     `json:"version" bson:"version"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

func (m *Meta) RecordID() string       { return m.ID }
func (m *Meta) SetID(id string)        { m.ID = id }
func (m *Meta) GetVersion() int64      { return m.Version }
func (m *Meta) SetVersion(v int64)     { m.Version = v }
func (m *Meta) Touch(at time.Time)     { m.UpdatedAt = at }
func (m *Meta) LastUpdated() time.Time { return m.UpdatedAt }

// Consumption is one quantity drawn from an upstream lot.
type Consumption interface {
	SourceLot() Ref
	Amount() decimal.Decimal
}

// Record is any entity held by the registry.
type Record interface {
	Ref() Ref
	RecordID() string
	SetID(id string)
	GetVersion() int64
	SetVersion(v int64)
	Touch(at time.Time)
	LastUpdated() time.Time
	// Lifecycle returns the status name, or "" for records without a lifecycle.
	Lifecycle() string
	Consumptions() []Consumption
	Clone() Record
}

// Stocked is a record that can be drawn from by downstream stages.
type Stocked interface {
	Record
	LotName() string
	Initial() decimal.Decimal
	Remaining() decimal.Decimal
	SetRemaining(decimal.Decimal)
	LotUnitCost() decimal.Decimal
}

// NewRecord returns an empty record of the given kind, ready for decoding.
func NewRecord(kind Kind) (Record, error) {
	switch kind {
	case KindIngredient, KindPackaging, KindAgriculturalInput:
		return &PurchasedLot{Category: kind}, nil
	case KindCultivation:
		return &CultivationProject{}, nil
	case KindHarvest:
		return &HarvestLot{}, nil
	case KindTransformation:
		return &TransformationStep{}, nil
	case KindManufacturing:
		return &ManufacturingLot{}, nil
	case KindSale:
		return &Sale{}, nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}
