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

var (
	aliItemRe     = regexp.MustCompile(`/(\d+)\.html`)
	aliItemPathRe = regexp.MustCompile(`item/(\d+)`)
	feedbackRe    = regexp.MustCompile(`(\d+[.,]?\d*)%`)
	shipsFromRe   = regexp.MustCompile(`(?i)(from|depuis)\s+([A-Za-z\s]+)`)
)

type aliexpressStrategy struct {
	opts Options
}

func (s *aliexpressStrategy) Platform() models.Platform { return models.PlatformAliExpress }

func (s *aliexpressStrategy) Extract(_ context.Context, pg *page.Page) (*models.Product, error) {
	doc := pg.Doc
	product := s.opts.newProduct(models.PlatformAliExpress, pg)

	href := pg.URL.String()
	if m := aliItemRe.FindStringSubmatch(href); m != nil {
		product.ExternalID = m[1]
	} else if m := aliItemPathRe.FindStringSubmatch(href); m != nil {
		product.ExternalID = m[1]
	}
	product.SKU = product.ExternalID

	product.Title = firstText(doc,
		`h1[data-pl="product-title"]`,
		".product-title-text",
		`[class*="product-title"]`,
		"h1",
	)

	if price, ok := firstPrice(doc, s.opts.DefaultCurrency,
		`[class*="price--current"]`,
		".product-price-value",
		".uniform-banner-box-price",
		`[data-spm="price"]`,
	); ok {
		product.Price = price.Amount
		product.Currency = price.Currency
	}

	origText := doc.Find(`[class*="price--original"], .product-price-del`).First().Text()
	if orig := normalize.ParsePrice(origText, s.opts.DefaultCurrency); s.opts.acceptCompare(product.Price, orig.Amount) {
		product.CompareAtPrice = &orig.Amount
	}

	if storeEl := doc.Find(`[class*="store-name"], .shop-name a`).First(); storeEl.Length() > 0 {
		product.Vendor = normalize.CleanText(storeEl.Text())
		product.Seller.Name = product.Vendor
		product.Seller.URL = storeEl.AttrOr("href", "")
	}

	if m := feedbackRe.FindStringSubmatch(doc.Find(`[class*="store-rating"], [class*="positive-feedback"]`).First().Text()); m != nil {
		feedback := normalize.ParseFloat(m[1])
		product.Seller.PositiveFeedback = &feedback
	}

	set := newImageSet(s.opts.MaxImages)
	doc.Find(".images-view-item img, .slider--img--item img, "+
		`[class*="gallery"] img, .product-img img, [class*="slider"] img, `+
		".sku-property-image img").Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("src", img.AttrOr("data-src", ""))
		if normalized := normalize.NormalizeImageURL(src, "aliexpress"); strings.Contains(normalized, "alicdn") {
			set.add(normalized)
		}
	})
	product.Images = set.list()
	if len(product.Images) > 0 {
		product.Thumbnail = product.Images[0]
	}

	doc.Find(`video source, [class*="video"] video`).Each(func(_ int, el *goquery.Selection) {
		src := el.AttrOr("src", "")
		if src == "" {
			src = el.Find("source").First().AttrOr("src", "")
		}
		if strings.Contains(src, ".mp4") {
			if strings.HasPrefix(src, "//") {
				src = "https:" + src
			}
			product.Videos = append(product.Videos, models.Video{URL: src, Type: "product_video"})
		}
	})
	if len(product.Videos) == 0 && doc.Find(`[class*="video-icon"]`).Length() > 0 {
		product.CustomFields["has_video"] = true
	}

	product.Rating = normalize.ParseRating(doc.Find(`[class*="rating"] strong, .overview-rating-average`).First().Text())
	product.ReviewsCount = normalize.ParseNumber(doc.Find(`[class*="reviews"] span`).First().Text())

	// Order volume is the dropshipping demand signal.
	if ordersEl := doc.Find(`[class*="trade"], [class*="sold"], [class*="orders"]`).First(); ordersEl.Length() > 0 {
		product.OrdersCount = normalize.ParseNumber(ordersEl.Text())
		product.SoldCount = product.OrdersCount
	}

	s.extractVariants(doc, product)
	product.HasVariants = len(product.Variants) > 0

	if shippingEl := doc.Find(`[class*="shipping"], [class*="delivery"], .product-shipping`).First(); shippingEl.Length() > 0 {
		text := shippingEl.Text()
		product.Shipping.EstimatedDelivery = normalize.CleanText(text)
		lower := strings.ToLower(text)
		product.Shipping.FreeShipping = strings.Contains(lower, "free") || strings.Contains(lower, "gratuit")
		if m := shipsFromRe.FindStringSubmatch(text); m != nil {
			product.Shipping.ShippingFrom = strings.TrimSpace(m[2])
		}
	}

	desc := doc.Find(`[class*="product-description"], [class*="desc-content"], ` +
		"#product-description, .detail-desc-decorate-richtext").First().Text()
	product.Description = normalize.CleanText(truncate(desc, 8000))

	doc.Find(`[class*="specification"] li, .product-specs li, .product-property li`).Each(func(_ int, row *goquery.Selection) {
		name := normalize.CleanText(row.Find(`[class*="name"], span:first-child`).First().Text())
		value := normalize.CleanText(row.Find(`[class*="value"], span:last-child`).First().Text())
		if name != "" && value != "" {
			product.Specifications = append(product.Specifications, models.Specification{Name: name, Value: value})
		}
	})

	doc.Find(`.breadcrumb a, [class*="Breadcrumb"] a`).Each(func(_ int, a *goquery.Selection) {
		product.Breadcrumbs = append(product.Breadcrumbs, models.Breadcrumb{
			Name: normalize.CleanText(a.Text()),
			URL:  a.AttrOr("href", ""),
		})
	})

	return product, nil
}

// extractVariants walks the SKU property groups. The group title decides
// the variant type; an unavailable marker class clears availability.
func (s *aliexpressStrategy) extractVariants(doc *goquery.Document, product *models.Product) {
	doc.Find(`[class*="sku-property"], [class*="sku-item"], .sku-property-item`).Each(func(_ int, container *goquery.Selection) {
		propertyName := normalize.CleanText(container.Find(`[class*="sku-title"], .sku-property-text`).First().Text())
		if propertyName == "" {
			propertyName = "Option"
		}

		variantType := "option"
		lower := strings.ToLower(propertyName)
		switch {
		case strings.Contains(lower, "color") || strings.Contains(lower, "couleur"):
			variantType = "color"
		case strings.Contains(lower, "size") || strings.Contains(lower, "taille"):
			variantType = "size"
		}

		container.Find(`[class*="sku-property-item"], [class*="property-item"], img[class*="sku"]`).Each(func(_ int, item *goquery.Selection) {
			text := item.AttrOr("title", "")
			if text == "" {
				text = normalize.CleanText(item.Text())
			}
			if text == "" {
				text = item.AttrOr("alt", "")
			}
			if text == "" || len(text) >= 100 {
				return
			}

			img := item
			if goquery.NodeName(item) != "img" {
				img = item.Find("img").First()
			}

			product.Variants = append(product.Variants, models.Variant{
				Type:      variantType,
				Name:      propertyName,
				Value:     text,
				Image:     normalize.NormalizeImageURL(img.AttrOr("src", ""), "aliexpress"),
				Available: !item.HasClass("disabled") && !item.HasClass("unavailable"),
			})
		})
	})
}
