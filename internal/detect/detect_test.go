package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/page"
)

func mustPage(t *testing.T, html, url string) *page.Page {
	t.Helper()
	pg, err := page.New(html, url)
	require.NoError(t, err)
	return pg
}

func TestPlatformByHostname(t *testing.T) {
	tests := []struct {
		url  string
		want models.Platform
	}{
		{"https://www.amazon.de/dp/B08XYZ1234", models.PlatformAmazon},
		{"https://www.amazon.co.uk/gp/product/B08XYZ1234", models.PlatformAmazon},
		{"https://fr.aliexpress.com/item/1005001234567890.html", models.PlatformAliExpress},
		{"https://www.ebay.fr/itm/123456789012", models.PlatformEbay},
		{"https://www.temu.com/some-product-g-601099511975440.html", models.PlatformTemu},
		{"https://www.walmart.com/ip/something/123456", models.PlatformWalmart},
		{"https://www.etsy.com/listing/1234567890/handmade-mug", models.PlatformEtsy},
		{"https://www.cdiscount.com/maison/f-117.html", models.PlatformCdiscount},
		{"https://www.fnac.com/a123456/produit", models.PlatformFnac},
		{"https://fr.shopping.rakuten.com/offer/buy/123", models.PlatformRakuten},
		{"https://fr.shein.com/item-p-12345.html", models.PlatformShein},
		{"https://www.alibaba.com/product-detail/x_123.html", models.PlatformAlibaba},
		{"https://detail.1688.com/offer/1234.html", models.PlatformAlibaba},
		{"https://cool-store.myshopify.com/products/mug", models.PlatformShopify},
		{"https://www.target.com/p/-/A-123456", models.PlatformTarget},
		{"https://www.bestbuy.com/site/thing/123.p", models.PlatformBestBuy},
		{"https://www.newegg.com/p/N82E16819113567", models.PlatformNewegg},
		{"https://www.banggood.com/item-p-12345.html", models.PlatformBanggood},
		{"https://www.dhgate.com/product/thing/12345.html", models.PlatformDHgate},
		{"https://www.wish.com/product/abcdef", models.PlatformWish},
		{"https://cjdropshipping.com/product/p-123.html", models.PlatformCJDropshipping},
		{"https://www.homedepot.com/p/123456789", models.PlatformHomeDepot},
		{"https://www.lowes.com/pd/thing/1234", models.PlatformLowes},
		{"https://www.costco.com/thing.product.100123.html", models.PlatformCostco},
		{"https://www.some-random-shop.com/product/1", models.PlatformGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			pg := mustPage(t, "<html><body></body></html>", tt.url)
			assert.Equal(t, tt.want, Platform(pg))
		})
	}
}

func TestPlatformShopifyFingerprints(t *testing.T) {
	t.Run("checkout token meta", func(t *testing.T) {
		pg := mustPage(t,
			`<html><head><meta name="shopify-checkout-api-token" content="abc"></head><body></body></html>`,
			"https://shop.example.com/products/mug")
		assert.Equal(t, models.PlatformShopify, Platform(pg))
	})

	t.Run("cdn asset link", func(t *testing.T) {
		pg := mustPage(t,
			`<html><head><link rel="stylesheet" href="https://cdn.shopify.com/s/files/1/theme.css"></head><body></body></html>`,
			"https://shop.example.com/products/mug")
		assert.Equal(t, models.PlatformShopify, Platform(pg))
	})

	t.Run("cdn script", func(t *testing.T) {
		pg := mustPage(t,
			`<html><head><script src="https://cdn.shopify.com/s/trekkie.js"></script></head><body></body></html>`,
			"https://shop.example.com/products/mug")
		assert.Equal(t, models.PlatformShopify, Platform(pg))
	})

	t.Run("hostname rules win over fingerprints", func(t *testing.T) {
		pg := mustPage(t,
			`<html><head><link href="https://cdn.shopify.com/s/theme.css"></head><body></body></html>`,
			"https://www.amazon.de/dp/B08XYZ1234")
		assert.Equal(t, models.PlatformAmazon, Platform(pg))
	})

	t.Run("deterministic", func(t *testing.T) {
		pg := mustPage(t, "<html><body></body></html>", "https://www.example.org/p/1")
		first := Platform(pg)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Platform(pg))
		}
	})
}
