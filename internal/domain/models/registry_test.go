package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func harvest(id, project string, dry int64) *HarvestLot {
	return &HarvestLot{
		Meta:      Meta{ID: id},
		Stock:     Stock{InitialQuantity: decimal.NewFromInt(dry), RemainingQuantity: decimal.NewFromInt(dry)},
		LotNumber: "H-" + id,
		ProjectID: project,
		Status:    HarvestDried,
	}
}

func TestResolvePlantPrefersHarvest(t *testing.T) {
	reg := NewRegistry()
	reg.Put(harvest("lav-1", "", 100))
	reg.Put(&TransformationStep{Meta: Meta{ID: "lav-1"}, OutputLotNumber: "T-lav-1"})
	reg.Put(&TransformationStep{Meta: Meta{ID: "oil-1"}, OutputLotNumber: "T-oil-1"})

	lot, ok := reg.Resolve(Ref{Kind: KindPlant, ID: "lav-1"})
	require.True(t, ok)
	assert.Equal(t, KindHarvest, lot.Ref().Kind)

	lot, ok = reg.Resolve(Ref{Kind: KindPlant, ID: "oil-1"})
	require.True(t, ok)
	assert.Equal(t, KindTransformation, lot.Ref().Kind)

	_, ok = reg.Resolve(Ref{Kind: KindPlant, ID: "missing"})
	assert.False(t, ok)
}

func TestResolveSkipsRecordsWithoutStock(t *testing.T) {
	reg := NewRegistry()
	reg.Put(&CultivationProject{Meta: Meta{ID: "p1"}})

	_, ok := reg.Resolve(Ref{Kind: KindCultivation, ID: "p1"})
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	reg := NewRegistry()
	reg.Put(harvest("h1", "", 100))
	reg.PutCatalog(&Recipe{ID: "r1", Components: []RecipeComponent{{Name: "lavender"}}})

	c := reg.Clone()
	lot, ok := c.Resolve(Ref{Kind: KindHarvest, ID: "h1"})
	require.True(t, ok)
	lot.SetRemaining(decimal.NewFromInt(10))
	rc, _ := c.Recipe("r1")
	rc.Components[0].Name = "mint"

	orig, _ := reg.Harvest("h1")
	assert.True(t, orig.RemainingQuantity.Equal(decimal.NewFromInt(100)))
	origRecipe, _ := reg.Recipe("r1")
	assert.Equal(t, "lavender", origRecipe.Components[0].Name)
}

func TestReferrers(t *testing.T) {
	reg := NewRegistry()
	reg.Put(&CultivationProject{Meta: Meta{ID: "p1"}})
	reg.Put(harvest("h1", "p1", 100))
	reg.Put(&PurchasedLot{Meta: Meta{ID: "sugar"}, Category: KindIngredient, Name: "Sugar"})
	reg.Put(&ManufacturingLot{
		Meta: Meta{ID: "m1"},
		Components: []Component{
			{Source: ComponentPlant, LotID: "h1", Quantity: decimal.NewFromInt(5)},
			{Source: ComponentPurchased, LotID: "sugar", Quantity: decimal.NewFromInt(2)},
		},
	})

	assert.Equal(t, []Ref{{Kind: KindHarvest, ID: "h1"}}, reg.Referrers(Ref{Kind: KindCultivation, ID: "p1"}))
	assert.Equal(t, []Ref{{Kind: KindManufacturing, ID: "m1"}}, reg.Referrers(Ref{Kind: KindHarvest, ID: "h1"}))
	assert.Equal(t, []Ref{{Kind: KindManufacturing, ID: "m1"}}, reg.Referrers(Ref{Kind: KindIngredient, ID: "sugar"}))
	assert.Empty(t, reg.Referrers(Ref{Kind: KindManufacturing, ID: "m1"}))
}

func TestManufacturingSetRemainingTracksSold(t *testing.T) {
	m := &ManufacturingLot{Stock: Stock{InitialQuantity: decimal.NewFromInt(20)}}
	m.SetRemaining(decimal.NewFromInt(12))
	assert.True(t, m.QuantitySold.Equal(decimal.NewFromInt(8)))
}

func TestPutCatalogNormalisesPointers(t *testing.T) {
	reg := NewRegistry()
	reg.PutCatalog(&Worker{ID: "w1", HourlyRate: decimal.NewFromInt(12)})
	reg.PutCatalog(Product{ID: "soap"})

	w, ok := reg.Worker("w1")
	require.True(t, ok)
	assert.True(t, w.HourlyRate.Equal(decimal.NewFromInt(12)))
	_, ok = reg.Product("soap")
	assert.True(t, ok)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("harvest")
	require.NoError(t, err)
	assert.Equal(t, KindHarvest, k)

	_, err = ParseKind("plant")
	assert.Error(t, err)
}

func TestSameName(t *testing.T) {
	assert.True(t, SameName(" Lavender ", "lavender"))
	assert.False(t, SameName("lavender", "mint"))
}
