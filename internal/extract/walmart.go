package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/normalize"
	"github.com/webimport/product-extractor/internal/page"
)

var walmartItemRe = regexp.MustCompile(`/ip/[^/]+/(\d+)`)

// walmartStrategy leans on structured data first: Walmart embeds a
// complete Product block, so the page tree is only a fallback.
type walmartStrategy struct {
	opts Options
}

func (s *walmartStrategy) Platform() models.Platform { return models.PlatformWalmart }

func (s *walmartStrategy) Extract(_ context.Context, pg *page.Page) (*models.Product, error) {
	doc := pg.Doc
	product := s.opts.newProduct(models.PlatformWalmart, pg)
	product.Currency = "USD"

	if m := walmartItemRe.FindStringSubmatch(pg.URL.Path); m != nil {
		product.ExternalID = m[1]
		product.SKU = m[1]
	}

	if jsonLD := normalize.ProductJSONLD(doc); len(jsonLD) > 0 {
		sku := product.SKU
		fromStructuredData(jsonLD[0], product, s.opts)
		if product.SKU == "" {
			product.SKU = sku
		}
	}

	if product.Title == "" {
		product.Title = firstText(doc, `h1[itemprop="name"]`, "h1")
	}

	if len(product.Images) == 0 {
		set := newImageSet(s.opts.MaxImages)
		doc.Find(`[data-testid="hero-image"] img, .prod-hero-image img`).Each(func(_ int, img *goquery.Selection) {
			src := img.AttrOr("src", "")
			if !strings.Contains(src, "placeholder") {
				set.add(normalize.NormalizeImageURL(src, ""))
			}
		})
		product.Images = set.list()
	}
	if product.Thumbnail == "" && len(product.Images) > 0 {
		product.Thumbnail = product.Images[0]
	}

	product.HasVariants = len(product.Variants) > 0
	return product, nil
}
