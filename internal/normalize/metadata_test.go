package normalize

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestProductJSONLD(t *testing.T) {
	t.Run("plain product block", func(t *testing.T) {
		doc := mustDoc(t, `<html><head><script type="application/ld+json">
			{"@type":"Product","name":"Desk Lamp","sku":"DL-1","brand":{"name":"Lumo"},
			 "image":["https://cdn.example.com/a.jpg","https://cdn.example.com/b.jpg"],
			 "offers":{"price":"24.99","priceCurrency":"EUR"}}
		</script></head><body></body></html>`)

		products := ProductJSONLD(doc)
		require.Len(t, products, 1)

		p := products[0]
		assert.Equal(t, "Desk Lamp", p.Str("name"))
		assert.Equal(t, "DL-1", p.Str("sku"))
		assert.Equal(t, "Lumo", p.BrandName())
		assert.Len(t, p.Images(), 2)

		offer := p.Offer()
		require.NotNil(t, offer)
		assert.Equal(t, "24.99", offer["price"])
	})

	t.Run("product inside graph container", func(t *testing.T) {
		doc := mustDoc(t, `<html><head><script type="application/ld+json">
			{"@context":"https://schema.org","@graph":[
				{"@type":"WebSite","name":"Shop"},
				{"@type":"Product","name":"Chair","offers":[{"price":89.0}]}
			]}
		</script></head><body></body></html>`)

		products := ProductJSONLD(doc)
		require.Len(t, products, 1)
		assert.Equal(t, "Chair", products[0].Str("name"))

		offer := products[0].Offer()
		require.NotNil(t, offer)
		assert.Equal(t, 89.0, offer["price"])
	})

	t.Run("array type and malformed blocks", func(t *testing.T) {
		doc := mustDoc(t, `<html><head>
			<script type="application/ld+json">not json at all</script>
			<script type="application/ld+json">{"@type":["Product","Thing"],"name":"Mug"}</script>
			<script type="application/ld+json">{"@type":"BreadcrumbList"}</script>
		</head><body></body></html>`)

		products := ProductJSONLD(doc)
		require.Len(t, products, 1)
		assert.Equal(t, "Mug", products[0].Str("name"))
	})

	t.Run("no blocks", func(t *testing.T) {
		doc := mustDoc(t, `<html><body><p>hi</p></body></html>`)
		assert.Empty(t, ProductJSONLD(doc))
	})
}

func TestOpenGraph(t *testing.T) {
	doc := mustDoc(t, `<html><head>
		<meta property="og:title" content="Desk Lamp">
		<meta property="og:title" content="Duplicate Ignored">
		<meta property="og:image" content="https://cdn.example.com/a.jpg">
		<meta property="product:price:amount" content="24.99">
		<meta property="product:price:currency" content="EUR">
		<meta property="og:empty" content="">
	</head><body></body></html>`)

	og := OpenGraph(doc)
	assert.Equal(t, "Desk Lamp", og["title"])
	assert.Equal(t, "https://cdn.example.com/a.jpg", og["image"])
	assert.Equal(t, "24.99", og["price:amount"])
	assert.Equal(t, "EUR", og["price:currency"])
	_, ok := og["empty"]
	assert.False(t, ok)
}
