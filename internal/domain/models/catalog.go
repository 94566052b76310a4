package models

import "github.com/shopspring/decimal"

// CatalogKind names a reference collection.
type CatalogKind string

const (
	CatalogWorkers    CatalogKind = "workers"
	CatalogProducts   CatalogKind = "products"
	CatalogThresholds CatalogKind = "thresholds"
	CatalogRecipes    CatalogKind = "recipes"
)

// CatalogEntry is reference data that never carries stock.
type CatalogEntry interface {
	CatalogKey() (CatalogKind, string)
}

// Worker is a member of the workforce directory.
type Worker struct {
	ID         string          `json:"id" bson:"_id"`
	Name       string          `json:"name" bson:"name"`
	Role       string          `json:"role" bson:"role"`
	HourlyRate decimal.Decimal `json:"hourlyRate" bson:"hourly_rate"`
	Active     bool            `json:"active" bson:"active"`
}

func (w Worker) CatalogKey() (CatalogKind, string) { return CatalogWorkers, w.ID }

// Product is a finished product sold from manufacturing lots.
type Product struct {
	ID                  string          `json:"id" bson:"_id"`
	Name                string          `json:"name" bson:"name"`
	Unit                string          `json:"unit" bson:"unit"`
	ReorderThreshold    decimal.Decimal `json:"reorderThreshold" bson:"reorder_threshold"`
	BestBeforeAlertDays int             `json:"bestBeforeAlertDays" bson:"best_before_alert_days"`
}

func (p Product) CatalogKey() (CatalogKind, string) { return CatalogProducts, p.ID }

// Threshold is a minimum stock level for a purchased resource name.
type Threshold struct {
	ID              string          `json:"id" bson:"_id"`
	Kind            Kind            `json:"kind" bson:"kind"`
	ResourceName    string          `json:"resourceName" bson:"resource_name"`
	Minimum         decimal.Decimal `json:"minimum" bson:"minimum"`
	Unit            string          `json:"unit" bson:"unit"`
	ExpiryAlertDays int             `json:"expiryAlertDays" bson:"expiry_alert_days"`
}

func (t Threshold) CatalogKey() (CatalogKind, string) { return CatalogThresholds, t.ID }

// RecipeComponentType distinguishes purchased ingredients from plant material.
type RecipeComponentType string

const (
	RecipeGeneric RecipeComponentType = "generic"
	RecipePlant   RecipeComponentType = "plant"
)

// RecipeComponent is one line of a recipe, named generically.
type RecipeComponent struct {
	Type     RecipeComponentType `json:"type" bson:"type"`
	Name     string              `json:"name" bson:"name"`
	Quantity decimal.Decimal     `json:"quantity" bson:"quantity"`
	Unit     string              `json:"unit" bson:"unit"`
}

// Recipe is a product formula used for planning estimates.
type Recipe struct {
	ID             string            `json:"id" bson:"_id"`
	ProductID      string            `json:"productId" bson:"product_id"`
	Name           string            `json:"name" bson:"name"`
	Components     []RecipeComponent `json:"components" bson:"components"`
	ReferenceYield decimal.Decimal   `json:"referenceYield" bson:"reference_yield"`
}

func (r Recipe) CatalogKey() (CatalogKind, string) { return CatalogRecipes, r.ID }

// NewCatalogEntry returns an empty entry of the given collection for decoding.
func NewCatalogEntry(kind CatalogKind) (CatalogEntry, bool) {
	switch kind {
	case CatalogWorkers:
		return &Worker{}, true
	case CatalogProducts:
		return &Product{}, true
	case CatalogThresholds:
		return &Threshold{}, true
	case CatalogRecipes:
		return &Recipe{}, true
	default:
		return nil, false
	}
}

// WithID returns a copy of the entry carrying the given id.
func WithID(entry CatalogEntry, id string) CatalogEntry {
	switch e := entry.(type) {
	case Worker:
		e.ID = id
		return e
	case *Worker:
		c := *e
		c.ID = id
		return c
	case Product:
		e.ID = id
		return e
	case *Product:
		c := *e
		c.ID = id
		return c
	case Threshold:
		e.ID = id
		return e
	case *Threshold:
		c := *e
		c.ID = id
		return c
	case Recipe:
		e.ID = id
		return e
	case *Recipe:
		c := *e
		c.ID = id
		return c
	default:
		return entry
	}
}
