package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTotalMixesVariants(t *testing.T) {
	items := []LineItem{
		{Kind: KindCatalog, ID: "1", Name: "Wash", Price: 100, Quantity: 2},
		{Kind: KindCustom, Name: "Wax", Price: 50},
		{Kind: KindAdjustment, ID: "1700000000000", Name: "Discount", Price: -20},
		{Kind: KindLegacy, Name: "Old item"},
	}
	assert.Equal(t, 230.0, CalculateTotal(items))
}

func TestLineItemsDecodeEveryShape(t *testing.T) {
	raw := `[
		{"id":"1","name":"Wash","price":100,"quantity":2,"originalPrice":120},
		{"name":"Wax","price":"50","isCustom":true},
		{"id":"1700000000000","name":"Discount","price":-20,"isAdjustment":true},
		"Vacuum",
		null,
		{"name":"Polish","price":30}
	]`
	var items LineItems
	require.NoError(t, json.Unmarshal([]byte(raw), &items))
	require.Len(t, items, 5)

	assert.Equal(t, KindCatalog, items[0].Kind)
	assert.Equal(t, 2, items[0].Quantity)
	require.NotNil(t, items[0].OriginalPrice)
	assert.Equal(t, 120.0, *items[0].OriginalPrice)

	assert.Equal(t, KindCustom, items[1].Kind)
	assert.Equal(t, 50.0, items[1].Price)

	assert.Equal(t, KindAdjustment, items[2].Kind)
	assert.Equal(t, -20.0, items[2].Price)

	assert.Equal(t, LineItem{Kind: KindLegacy, Name: "Vacuum"}, items[3])
	assert.Equal(t, KindCustom, items[4].Kind)
}

func TestLineItemsDegradeOnBadShape(t *testing.T) {
	var items LineItems
	require.NoError(t, json.Unmarshal([]byte(`{"not":"a list"}`), &items))
	assert.Empty(t, items)
}

func TestLineItemMarshalKeepsVariant(t *testing.T) {
	items := LineItems{
		{Kind: KindCustom, Name: "Wax", Price: 50},
		{Kind: KindLegacy, Name: "Vacuum"},
		{Kind: KindAdjustment, ID: "9", Name: "Fix", Price: -5},
	}
	raw, err := json.Marshal(items)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"name":"Wax","price":50,"isCustom":true},
		"Vacuum",
		{"id":"9","name":"Fix","price":-5,"isAdjustment":true}
	]`, string(raw))

	var back LineItems
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, items, back)
}
