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

var etsyListingRe = regexp.MustCompile(`/listing/(\d+)`)

type etsyStrategy struct {
	opts Options
}

func (s *etsyStrategy) Platform() models.Platform { return models.PlatformEtsy }

func (s *etsyStrategy) Extract(_ context.Context, pg *page.Page) (*models.Product, error) {
	doc := pg.Doc
	product := s.opts.newProduct(models.PlatformEtsy, pg)

	if m := etsyListingRe.FindStringSubmatch(pg.URL.Path); m != nil {
		product.ExternalID = m[1]
		product.SKU = m[1]
	}

	product.Title = firstText(doc, "h1[data-buy-box-listing-title]", "h1")

	if price, ok := firstPrice(doc, s.opts.DefaultCurrency,
		`[data-buy-box-region="price"] .currency-value`,
		".wt-text-title-larger",
	); ok {
		product.Price = price.Amount
		product.Currency = price.Currency
	}

	set := newImageSet(s.opts.MaxImages)
	doc.Find(".listing-page-image-carousel-component img, .carousel-image img, "+
		`[data-component="listing-page-image-carousel"] img`).Each(func(_ int, img *goquery.Selection) {
		if normalized := normalize.NormalizeImageURL(img.AttrOr("src", ""), "etsy"); !strings.Contains(normalized, "placeholder") {
			set.add(normalized)
		}
	})
	product.Images = set.list()
	if len(product.Images) > 0 {
		product.Thumbnail = product.Images[0]
	}

	if shopEl := doc.Find("[data-shop-name], .shop-name-and-title-container a").First(); shopEl.Length() > 0 {
		product.Vendor = normalize.CleanText(shopEl.Text())
		product.Seller.StoreName = product.Vendor
		product.Seller.URL = shopEl.AttrOr("href", "")
	}

	product.Rating = normalize.ParseRating(doc.Find(`[data-buy-box-region="rating"] [aria-hidden="true"]`).First().Text())
	product.ReviewsCount = normalize.ParseNumber(doc.Find(`[data-buy-box-region="rating"] a, .reviews-total`).First().Text())

	desc := doc.Find(`[data-id="description-text"], .wt-text-body-01`).First().Text()
	product.Description = normalize.CleanText(truncate(desc, 8000))

	doc.Find(".variation-selector select option").Each(func(_ int, opt *goquery.Selection) {
		if _, hasValue := opt.Attr("value"); !hasValue || opt.AttrOr("value", "") == "" {
			return
		}
		_, disabled := opt.Attr("disabled")
		product.Variants = append(product.Variants, models.Variant{
			Type:      "option",
			Value:     normalize.CleanText(opt.Text()),
			Available: !disabled,
		})
	})
	product.HasVariants = len(product.Variants) > 0

	if shippingEl := doc.Find("[data-estimated-delivery], .estimated-delivery").First(); shippingEl.Length() > 0 {
		product.Shipping.EstimatedDelivery = normalize.CleanText(shippingEl.Text())
	}

	return product, nil
}
