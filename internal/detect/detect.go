// Package detect decides which extraction strategy a page belongs to.
package detect

import (
	"strings"

	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/page"
)

type hostRule struct {
	platform models.Platform
	markers  []string
}

// hostRules is checked in order; the first hostname marker hit wins.
// Order matters for hosts that embed another platform's name.
var hostRules = []hostRule{
	{models.PlatformAliExpress, []string{"aliexpress"}},
	{models.PlatformAmazon, []string{"amazon"}},
	{models.PlatformEbay, []string{"ebay"}},
	{models.PlatformTemu, []string{"temu"}},
	{models.PlatformWalmart, []string{"walmart"}},
	{models.PlatformEtsy, []string{"etsy"}},
	{models.PlatformCdiscount, []string{"cdiscount"}},
	{models.PlatformFnac, []string{"fnac"}},
	{models.PlatformRakuten, []string{"rakuten"}},
	{models.PlatformShein, []string{"shein"}},
	{models.PlatformAlibaba, []string{"alibaba", "1688"}},
	{models.PlatformShopify, []string{"myshopify"}},
	{models.PlatformTarget, []string{"target"}},
	{models.PlatformBestBuy, []string{"bestbuy"}},
	{models.PlatformNewegg, []string{"newegg"}},
	{models.PlatformBanggood, []string{"banggood"}},
	{models.PlatformDHgate, []string{"dhgate"}},
	{models.PlatformWish, []string{"wish"}},
	{models.PlatformCJDropshipping, []string{"cjdropshipping"}},
	{models.PlatformHomeDepot, []string{"homedepot"}},
	{models.PlatformLowes, []string{"lowes"}},
	{models.PlatformCostco, []string{"costco"}},
}

// Platform identifies the page's platform from its hostname, falling
// back to page fingerprints for white-label shops. Always returns a
// value; unknown pages are generic.
func Platform(pg *page.Page) models.Platform {
	hostname := pg.Hostname()

	for _, rule := range hostRules {
		for _, marker := range rule.markers {
			if strings.Contains(hostname, marker) {
				return rule.platform
			}
		}
	}

	// Shopify storefronts run on custom domains; the checkout token or
	// CDN assets give them away.
	if pg.Doc.Find(`meta[name="shopify-checkout-api-token"]`).Length() > 0 ||
		pg.Doc.Find(`link[href*="cdn.shopify.com"]`).Length() > 0 ||
		pg.Doc.Find(`script[src*="cdn.shopify.com"]`).Length() > 0 {
		return models.PlatformShopify
	}

	return models.PlatformGeneric
}
