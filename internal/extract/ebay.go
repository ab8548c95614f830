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

var ebayItemRe = regexp.MustCompile(`/itm/(\d+)`)

type ebayStrategy struct {
	opts Options
}

func (s *ebayStrategy) Platform() models.Platform { return models.PlatformEbay }

func (s *ebayStrategy) Extract(_ context.Context, pg *page.Page) (*models.Product, error) {
	doc := pg.Doc
	product := s.opts.newProduct(models.PlatformEbay, pg)

	if m := ebayItemRe.FindStringSubmatch(pg.URL.Path); m != nil {
		product.ExternalID = m[1]
		product.SKU = m[1]
	}

	product.Title = firstText(doc, "h1.x-item-title__mainTitle", ".it-ttl", `h1[itemprop="name"]`)

	if price, ok := firstPrice(doc, s.opts.DefaultCurrency,
		".x-price-primary", "#prcIsum", `[itemprop="price"]`,
	); ok {
		product.Price = price.Amount
		product.Currency = price.Currency
	}

	set := newImageSet(s.opts.MaxImages)
	doc.Find(".ux-image-carousel img, .img-wrapper img, [data-zoom-image], #icImg").Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("data-zoom-image", img.AttrOr("src", ""))
		if normalized := normalize.NormalizeImageURL(src, "ebay"); !strings.Contains(normalized, "placeholder") {
			set.add(normalized)
		}
	})
	product.Images = set.list()
	if len(product.Images) > 0 {
		product.Thumbnail = product.Images[0]
	}

	if condition := doc.Find(".x-item-condition-text, #vi-itm-cond").First().Text(); condition != "" {
		lower := strings.ToLower(condition)
		switch {
		case strings.Contains(lower, "new") || strings.Contains(lower, "neuf"):
			product.Condition = "new"
		case strings.Contains(lower, "refurbished") || strings.Contains(lower, "reconditionné"):
			product.Condition = "refurbished"
		case strings.Contains(lower, "used") || strings.Contains(lower, "occasion"):
			product.Condition = "used"
		}
	}

	if sellerEl := doc.Find(".x-sellercard-atf__info a, .mbg-l a").First(); sellerEl.Length() > 0 {
		product.Seller.Name = normalize.CleanText(sellerEl.Text())
		product.Seller.URL = sellerEl.AttrOr("href", "")
	}
	if m := feedbackRe.FindStringSubmatch(doc.Find(".x-sellercard-atf__data-item, .mbg-l").First().Text()); m != nil {
		feedback := normalize.ParseFloat(m[1])
		product.Seller.PositiveFeedback = &feedback
	}

	if qtyText := doc.Find("#qtySubTxt, .x-quantity__availability").First().Text(); qtyText != "" {
		lower := strings.ToLower(qtyText)
		switch {
		case strings.Contains(lower, "available") || strings.Contains(lower, "disponible"):
			product.StockStatus = models.StockInStock
			product.Availability = true
			if qty := normalize.ParseNumber(qtyText); qty > 0 {
				product.StockQuantity = &qty
				if qty < s.opts.LowStockThreshold {
					product.StockStatus = models.StockLowStock
				}
			}
		case strings.Contains(lower, "sold out") || strings.Contains(lower, "épuisé"):
			product.StockStatus = models.StockOutOfStock
			product.Availability = false
		}
	}

	if shippingEl := doc.Find("#fshippingCost, .ux-labels-values--shipping .ux-textspans").First(); shippingEl.Length() > 0 {
		text := strings.ToLower(shippingEl.Text())
		product.Shipping.FreeShipping = strings.Contains(text, "free") || strings.Contains(text, "gratuit")
		if !product.Shipping.FreeShipping {
			if cost := normalize.ParsePrice(shippingEl.Text(), s.opts.DefaultCurrency); cost.Amount > 0 {
				product.Shipping.ShippingCost = &cost.Amount
			}
		}
	}

	// Item specifics render as parallel label/value column lists.
	labels := doc.Find(".ux-labels-values--specifics .ux-labels-values__labels")
	values := doc.Find(".ux-labels-values--specifics .ux-labels-values__values-content")
	values.Each(func(i int, value *goquery.Selection) {
		label := labels.Eq(i)
		if label.Length() == 0 {
			return
		}
		name := normalize.CleanText(label.Text())
		val := normalize.CleanText(value.Text())
		if name != "" && val != "" {
			product.Specifications = append(product.Specifications, models.Specification{Name: name, Value: val})
		}
	})

	product.HasVariants = len(product.Variants) > 0
	return product, nil
}
