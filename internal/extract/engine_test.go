package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/page"
)

type panickingStrategy struct{}

func (panickingStrategy) Platform() models.Platform { return models.PlatformAmazon }
func (panickingStrategy) Extract(context.Context, *page.Page) (*models.Product, error) {
	panic("selector blew up")
}

type failingStrategy struct{}

func (failingStrategy) Platform() models.Platform { return models.PlatformAmazon }
func (failingStrategy) Extract(context.Context, *page.Page) (*models.Product, error) {
	return nil, fmt.Errorf("markup not recognized")
}

func TestEngineExtractNeverFails(t *testing.T) {
	html := `<html><head>
		<title>Gadget Pro | MegaShop</title>
		<meta property="og:title" content="Gadget Pro">
		<meta property="og:image" content="https://cdn.example.com/gadget.jpg">
	</head><body></body></html>`

	t.Run("panicking strategy falls back to generic", func(t *testing.T) {
		engine := NewEngine(DefaultOptions(), nil)
		engine.strategies[models.PlatformAmazon] = panickingStrategy{}

		pg := mustPage(t, html, "https://www.amazon.com/dp/B08XYZ1234")
		product := engine.Extract(context.Background(), pg)

		require.NotNil(t, product)
		assert.Equal(t, models.PlatformAmazon, product.Platform)
		assert.Equal(t, "Gadget Pro", product.Title)
		assert.Contains(t, product.CustomFields["extraction_error"], "strategy panic")
	})

	t.Run("erroring strategy falls back to generic", func(t *testing.T) {
		engine := NewEngine(DefaultOptions(), nil)
		engine.strategies[models.PlatformAmazon] = failingStrategy{}

		pg := mustPage(t, html, "https://www.amazon.com/dp/B08XYZ1234")
		product := engine.Extract(context.Background(), pg)

		require.NotNil(t, product)
		assert.Equal(t, models.PlatformAmazon, product.Platform)
		assert.Equal(t, "markup not recognized", product.CustomFields["extraction_error"])
	})
}

func TestEngineGenericDispatch(t *testing.T) {
	engine := NewEngine(DefaultOptions(), nil)

	t.Run("unknown host with structured data", func(t *testing.T) {
		html := `<html><head><title>ignored</title><script type="application/ld+json">
			{"@type":"Product","name":"Bamboo Cutting Board","sku":"BCB-1","brand":"WoodWorks",
			 "image":"https://cdn.example.com/board.jpg",
			 "offers":{"price":34.5,"priceCurrency":"USD","availability":"https://schema.org/InStock"},
			 "aggregateRating":{"ratingValue":4.8,"reviewCount":212}}
		</script></head><body></body></html>`

		pg := mustPage(t, html, "https://www.somekitchenshop.com/p/board")
		product := engine.Extract(context.Background(), pg)

		assert.Equal(t, models.PlatformGeneric, product.Platform)
		assert.Equal(t, "Bamboo Cutting Board", product.Title)
		assert.Equal(t, "WoodWorks", product.Brand)
		assert.Equal(t, 34.5, product.Price)
		assert.Equal(t, "USD", product.Currency)
		assert.Equal(t, models.StockInStock, product.StockStatus)
		require.NotNil(t, product.Rating)
		assert.Equal(t, 4.8, *product.Rating)
		assert.Equal(t, 212, product.ReviewsCount)
		assert.Equal(t, 212, product.RatingCount)
	})

	t.Run("metadata images are normalized", func(t *testing.T) {
		html := `<html><head><title>Desk Mat | Shop</title><script type="application/ld+json">
			{"@type":"Product","name":"Desk Mat",
			 "image":["/media/mat.jpg","https://cdn.example.com/mat.jpg?utm_source=feed"]}
		</script></head><body></body></html>`

		pg := mustPage(t, html, "https://www.somekitchenshop.com/p/mat")
		product := engine.Extract(context.Background(), pg)

		assert.Equal(t, []string{"https://cdn.example.com/mat.jpg"}, product.Images)
		assert.Equal(t, "https://cdn.example.com/mat.jpg", product.Thumbnail)
	})

	t.Run("protocol-relative social image becomes https", func(t *testing.T) {
		html := `<html><head><title>Wall Clock | Shop</title>
			<meta property="og:image" content="//cdn.example.com/clock.jpg">
		</head><body></body></html>`

		pg := mustPage(t, html, "https://www.somekitchenshop.com/p/clock")
		product := engine.Extract(context.Background(), pg)

		assert.Equal(t, []string{"https://cdn.example.com/clock.jpg"}, product.Images)
	})

	t.Run("bare page still yields a record", func(t *testing.T) {
		pg := mustPage(t, `<html><head><title>Some Thing | Shop</title></head><body></body></html>`,
			"https://www.nowhere-special.com/item/1")
		product := engine.Extract(context.Background(), pg)

		assert.Equal(t, models.PlatformGeneric, product.Platform)
		assert.Equal(t, "Some Thing", product.Title)
		assert.Equal(t, "https://www.nowhere-special.com/item/1", product.SourceURL)
		assert.Equal(t, "EUR", product.Currency)
		assert.False(t, product.ExtractedAt.IsZero())
		assert.Empty(t, product.Validate())
	})

	t.Run("totally empty page gets placeholder title", func(t *testing.T) {
		pg := mustPage(t, "<html><body></body></html>", "https://www.nowhere-special.com/item/2")
		product := engine.Extract(context.Background(), pg)
		assert.Equal(t, "Unknown Product", product.Title)
	})
}

func TestEngineValidation(t *testing.T) {
	engine := NewEngine(Options{MaxImages: 2}, nil)

	html := `<html><head>
		<meta property="og:title" content="Poster Set">
	</head><body>
		<div class="gallery">
			<img src="https://cdn.example.com/a.jpg">
			<img src="https://cdn.example.com/a.jpg">
			<img src="https://cdn.example.com/b.jpg">
			<img src="https://cdn.example.com/c.jpg">
		</div>
	</body></html>`

	pg := mustPage(t, html, "https://www.posters.example/p/7")
	product := engine.Extract(context.Background(), pg)

	t.Run("images deduped and capped", func(t *testing.T) {
		assert.Equal(t, []string{
			"https://cdn.example.com/a.jpg",
			"https://cdn.example.com/b.jpg",
		}, product.Images)
		assert.Equal(t, product.Images[0], product.Thumbnail)
	})

	t.Run("record passes its own validation", func(t *testing.T) {
		assert.Empty(t, product.Validate())
	})
}
