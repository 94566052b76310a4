package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock holds the quantity pair of a consumable lot. Remaining is owned by the
// stock engine and is never taken from caller input.
type Stock struct {
	InitialQuantity   decimal.Decimal `json:"initialQuantity" bson:"initial_quantity"`
	RemainingQuantity decimal.Decimal `json:"remainingQuantity" bson:"remaining_quantity"`
}

func (s *Stock) Initial() decimal.Decimal       { return s.InitialQuantity }
func (s *Stock) Remaining() decimal.Decimal     { return s.RemainingQuantity }
func (s *Stock) SetRemaining(d decimal.Decimal) { s.RemainingQuantity = d }

// PurchasedLot is a bought ingredient, packaging or agricultural input lot.
type PurchasedLot struct {
	Meta     `bson:",inline"`
	Stock    `bson:",inline"`
	Category Kind `json:"category" bson:"category"`

	Name              string          `json:"name" bson:"name"`
	Unit              string          `json:"unit" bson:"unit"`
	Supplier          string          `json:"supplier,omitempty" bson:"supplier,omitempty"`
	SupplierLotNumber string          `json:"supplierLotNumber,omitempty" bson:"supplier_lot_number,omitempty"`
	PurchasedAt       time.Time       `json:"purchasedAt" bson:"purchased_at"`
	ExpiresAt         *time.Time      `json:"expiresAt,omitempty" bson:"expires_at,omitempty"`
	PurchaseCost      decimal.Decimal `json:"purchaseCost" bson:"purchase_cost"`
	// UnitCost is fixed when the lot is created.
	UnitCost decimal.Decimal `json:"unitCost" bson:"unit_cost"`
}

func (l *PurchasedLot) Ref() Ref                     { return Ref{Kind: l.Category, ID: l.ID} }
func (l *PurchasedLot) Lifecycle() string            { return "" }
func (l *PurchasedLot) Consumptions() []Consumption  { return nil }
func (l *PurchasedLot) LotName() string              { return l.Name }
func (l *PurchasedLot) LotUnitCost() decimal.Decimal { return l.UnitCost }

func (l *PurchasedLot) Clone() Record {
	c := *l
	if l.ExpiresAt != nil {
		at := *l.ExpiresAt
		c.ExpiresAt = &at
	}
	return &c
}
