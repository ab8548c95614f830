package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductDefaults(t *testing.T) {
	p := NewProduct()

	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, StockUnknown, p.StockStatus)
	assert.True(t, p.Availability)
	assert.Equal(t, 1, p.MinOrderQuantity)
	assert.Equal(t, "new", p.Condition)
	assert.Equal(t, "kg", p.Shipping.WeightUnit)

	// Collections marshal as [] / {}, not null.
	assert.NotNil(t, p.Images)
	assert.NotNil(t, p.Videos)
	assert.NotNil(t, p.Variants)
	assert.NotNil(t, p.Options)
	assert.NotNil(t, p.Specifications)
	assert.NotNil(t, p.Tags)
	assert.NotNil(t, p.Attributes)
	assert.NotNil(t, p.CustomFields)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"images":[]`)
	assert.Contains(t, string(data), `"custom_fields":{}`)
}

func TestStockStatusIsValid(t *testing.T) {
	valid := []StockStatus{StockInStock, StockOutOfStock, StockLowStock, StockPreorder, StockBackorder, StockUnknown}
	for _, s := range valid {
		assert.True(t, s.IsValid(), string(s))
	}
	assert.False(t, StockStatus("available").IsValid())
	assert.False(t, StockStatus("").IsValid())
}

func TestProductValidate(t *testing.T) {
	t.Run("well-formed record", func(t *testing.T) {
		p := NewProduct()
		p.Title = "Thing"
		p.Platform = PlatformGeneric
		p.SourceURL = "https://example.com/p/1"
		assert.Empty(t, p.Validate())
	})

	t.Run("broken record lists every problem", func(t *testing.T) {
		badCompare := 5.0
		p := NewProduct()
		p.Price = 9.99
		p.StockStatus = "maybe"
		p.HasVariants = true
		p.CompareAtPrice = &badCompare
		p.Images = []string{"https://a.example/1.jpg", "https://a.example/1.jpg"}

		problems := p.Validate()
		assert.Contains(t, problems, "title is empty")
		assert.Contains(t, problems, "platform is empty")
		assert.Contains(t, problems, "source_url is empty")
		assert.Contains(t, problems, "stock_status is not a valid enum value")
		assert.Contains(t, problems, "has_variants does not match variants")
		assert.Contains(t, problems, "compare_at_price is not greater than price")
		assert.Contains(t, problems, "images contains duplicates")
	})
}
