package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webimport/product-extractor/internal/models"
)

const amazonProductHTML = `<html>
<head><title>Amazon.de: Wireless Mouse 2000</title></head>
<body>
	<span id="productTitle"> Wireless Mouse 2000 </span>
	<a id="bylineInfo" href="/stores/logi">Brand: Logi</a>
	<span class="a-price"><span class="a-offscreen">$19.99</span></span>
	<span class="basisPrice"><span class="a-offscreen">$29.99</span></span>
	<div id="availability">Only 3 left in stock - order soon.</div>
	<div id="feature-bullets"><ul>
		<li><span class="a-list-item">Ergonomic design for long sessions</span></li>
		<li><span class="a-list-item">2.4 GHz wireless connection</span></li>
	</ul></div>
	<div id="imageBlock">
		<img src="https://m.media-amazon.com/images/I/61abc._SY300_.jpg">
		<img src="https://m.media-amazon.com/images/I/61abc._SY300_.jpg">
		<img src="https://m.media-amazon.com/images/I/71def._SY300_.jpg">
	</div>
	<span id="acrPopover"><span class="a-icon-alt">4.5 out of 5 stars</span></span>
	<span id="acrCustomerReviewText">1,234 ratings</span>
	<div id="wayfinding-breadcrumbs_feature_div"><ul>
		<li><a href="/electronics">Electronics</a></li>
		<li><a href="/mice">Computer Mice</a></li>
	</ul></div>
	<table id="productDetails_techSpec_section_1">
		<tr><th>Item Weight</th><td>1.2 kg</td></tr>
		<tr><th>Model Number</th><td>LM-2000</td></tr>
		<tr><th>Manufacturer</th><td>Logi Inc</td></tr>
	</table>
</body></html>`

func TestAmazonStrategy(t *testing.T) {
	strategy := &amazonStrategy{opts: DefaultOptions()}

	pg := mustPage(t, amazonProductHTML, "https://www.amazon.com/dp/B08XYZ1234?ref=sr_1_1")
	product, err := strategy.Extract(context.Background(), pg)
	require.NoError(t, err)

	t.Run("identity", func(t *testing.T) {
		assert.Equal(t, "B08XYZ1234", product.ASIN)
		assert.Equal(t, product.ASIN, product.SKU)
		assert.Equal(t, product.ASIN, product.ExternalID)
		assert.Equal(t, "Wireless Mouse 2000", product.Title)
		assert.Equal(t, "Logi", product.Brand)
		assert.Equal(t, "Logi Inc", product.Manufacturer)
		assert.Equal(t, "LM-2000", product.MPN)
	})

	t.Run("pricing", func(t *testing.T) {
		assert.Equal(t, 19.99, product.Price)
		assert.Equal(t, "USD", product.Currency)
		require.NotNil(t, product.CompareAtPrice)
		assert.Equal(t, 29.99, *product.CompareAtPrice)
	})

	t.Run("stock", func(t *testing.T) {
		assert.Equal(t, models.StockLowStock, product.StockStatus)
		require.NotNil(t, product.StockQuantity)
		assert.Equal(t, 3, *product.StockQuantity)
		assert.True(t, product.Availability)
	})

	t.Run("images deduped and upgraded", func(t *testing.T) {
		require.Len(t, product.Images, 2)
		assert.Equal(t, "https://m.media-amazon.com/images/I/61abc._SL1500_.jpg", product.Images[0])
		assert.Equal(t, "https://m.media-amazon.com/images/I/71def._SL1500_.jpg", product.Images[1])
		assert.Equal(t, product.Images[0], product.Thumbnail)
	})

	t.Run("reputation", func(t *testing.T) {
		require.NotNil(t, product.Rating)
		assert.Equal(t, 4.5, *product.Rating)
		assert.Equal(t, 1234, product.ReviewsCount)
		assert.Equal(t, 1234, product.RatingCount)
	})

	t.Run("description", func(t *testing.T) {
		assert.Contains(t, product.Description, "• Ergonomic design for long sessions")
		assert.Contains(t, product.Description, "• 2.4 GHz wireless connection")
		assert.NotEmpty(t, product.ShortDescription)
	})

	t.Run("breadcrumbs and category", func(t *testing.T) {
		require.Len(t, product.Breadcrumbs, 2)
		assert.Equal(t, "Electronics", product.Breadcrumbs[0].Name)
		assert.Equal(t, "Computer Mice", product.Category)
	})

	t.Run("specifications enrich shipping", func(t *testing.T) {
		assert.Len(t, product.Specifications, 3)
		require.NotNil(t, product.Shipping.Weight)
		assert.Equal(t, 1.2, *product.Shipping.Weight)
		assert.Equal(t, "kg", product.Shipping.WeightUnit)
	})

	t.Run("no variants on this page", func(t *testing.T) {
		assert.Empty(t, product.Variants)
		assert.False(t, product.HasVariants)
	})
}

func TestAmazonStrategyASINSources(t *testing.T) {
	strategy := &amazonStrategy{opts: DefaultOptions()}

	t.Run("gp product path", func(t *testing.T) {
		pg := mustPage(t, "<html><body></body></html>", "https://www.amazon.fr/gp/product/b0abcdef12")
		product, err := strategy.Extract(context.Background(), pg)
		require.NoError(t, err)
		assert.Equal(t, "B0ABCDEF12", product.ASIN)
	})

	t.Run("data-asin attribute fallback", func(t *testing.T) {
		pg := mustPage(t, `<html><body><div data-asin="B099INLINE"></div></body></html>`,
			"https://www.amazon.de/some/other/path")
		product, err := strategy.Extract(context.Background(), pg)
		require.NoError(t, err)
		assert.Equal(t, "B099INLINE", product.ASIN)
	})

	t.Run("no asin anywhere", func(t *testing.T) {
		pg := mustPage(t, "<html><body></body></html>", "https://www.amazon.de/deals")
		product, err := strategy.Extract(context.Background(), pg)
		require.NoError(t, err)
		assert.Empty(t, product.ASIN)
	})
}

func TestAmazonStrategyVariants(t *testing.T) {
	html := `<html><body>
		<div id="variation_size_name"><ul>
			<li><span class="a-button-text">S</span></li>
			<li><span class="a-button-text">M</span></li>
			<li class="swatchUnavailable"><span class="a-button-text">XL</span></li>
		</ul></div>
		<div id="variation_color_name"><ul>
			<li data-asin="B0COLOR001"><img alt="Midnight Black" src="https://m.media-amazon.com/images/I/51color._SS40_.jpg"></li>
		</ul></div>
	</body></html>`

	strategy := &amazonStrategy{opts: DefaultOptions()}
	pg := mustPage(t, html, "https://www.amazon.com/dp/B08XYZ1234")
	product, err := strategy.Extract(context.Background(), pg)
	require.NoError(t, err)

	var sizes, colors []models.Variant
	for _, v := range product.Variants {
		switch v.Type {
		case "size":
			sizes = append(sizes, v)
		case "color":
			colors = append(colors, v)
		}
	}

	// Unavailable sizes are kept but flagged, same as colors.
	require.Len(t, sizes, 3)
	assert.Equal(t, "S", sizes[0].Value)
	assert.True(t, sizes[0].Available)
	assert.Equal(t, "XL", sizes[2].Value)
	assert.False(t, sizes[2].Available)

	require.Len(t, colors, 1)
	assert.Equal(t, "Midnight Black", colors[0].Name)
	assert.Equal(t, "B0COLOR001", colors[0].ID)
	assert.True(t, product.HasVariants)
}
