package mongodb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/croptrace/internal/domain/models"
)

func TestDecimalCodecStoresDecimal128(t *testing.T) {
	reg := NewRegistry()
	in := &models.HarvestLot{
		Meta:        models.Meta{ID: "h1", Version: 3},
		Stock:       models.Stock{InitialQuantity: decimal.NewFromInt(100), RemainingQuantity: decimal.RequireFromString("62.5")},
		DryUnitCost: decimal.RequireFromString("0.5"),
		Status:      models.HarvestDried,
	}

	data, err := bson.MarshalWithRegistry(reg, in)
	require.NoError(t, err)

	raw := bson.Raw(data)
	assert.Equal(t, "h1", raw.Lookup("_id").StringValue())
	_, ok := raw.Lookup("remaining_quantity").Decimal128OK()
	assert.True(t, ok, "remaining quantity should be decimal128")

	var out models.HarvestLot
	require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out))
	assert.Equal(t, int64(3), out.Version)
	assert.True(t, out.RemainingQuantity.Equal(in.RemainingQuantity))
	assert.True(t, out.DryUnitCost.Equal(in.DryUnitCost))
	assert.Equal(t, models.HarvestDried, out.Status)
}

func TestDecimalCodecReadsLegacyNumbers(t *testing.T) {
	reg := NewRegistry()
	d128, err := primitive.ParseDecimal128("12.25")
	require.NoError(t, err)

	cases := map[string]interface{}{
		"double":  12.25,
		"string":  "12.25",
		"decimal": d128,
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			data, err := bson.Marshal(bson.M{"hourly_rate": v})
			require.NoError(t, err)

			var w models.Worker
			require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &w))
			assert.True(t, w.HourlyRate.Equal(decimal.RequireFromString("12.25")))
		})
	}

	data, err := bson.Marshal(bson.M{"hourly_rate": int32(9)})
	require.NoError(t, err)
	var w models.Worker
	require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &w))
	assert.True(t, w.HourlyRate.Equal(decimal.NewFromInt(9)))
}
