package extract

import (
	"context"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/normalize"
	"github.com/webimport/product-extractor/internal/page"
)

var sheinSkuRe = regexp.MustCompile(`-p-(\d+)\.html`)

type sheinStrategy struct {
	opts Options
}

func (s *sheinStrategy) Platform() models.Platform { return models.PlatformShein }

func (s *sheinStrategy) Extract(_ context.Context, pg *page.Page) (*models.Product, error) {
	doc := pg.Doc
	product := s.opts.newProduct(models.PlatformShein, pg)

	if m := sheinSkuRe.FindStringSubmatch(pg.URL.String()); m != nil {
		product.ExternalID = m[1]
		product.SKU = m[1]
	}

	product.Title = firstText(doc, ".product-intro__head-name", "h1")

	if price, ok := firstPrice(doc, s.opts.DefaultCurrency,
		".product-intro__head-price", `[class*="price"]`,
	); ok {
		product.Price = price.Amount
		product.Currency = price.Currency
	}

	set := newImageSet(s.opts.MaxImages)
	doc.Find(".product-intro__thumbs-item img, .crop-image-container img, "+
		".product-intro__main-image img").Each(func(_ int, img *goquery.Selection) {
		set.add(normalize.NormalizeImageURL(img.AttrOr("src", ""), "shein"))
	})
	product.Images = set.list()
	if len(product.Images) > 0 {
		product.Thumbnail = product.Images[0]
	}

	product.Rating = normalize.ParseRating(doc.Find(".product-intro__head-star-comment .rate-num").First().Text())
	product.ReviewsCount = normalize.ParseNumber(doc.Find(".product-intro__head-star-comment a").First().Text())

	doc.Find(".product-intro__color-radio-item").Each(func(_ int, item *goquery.Selection) {
		img := item.Find("img").First()
		value := img.AttrOr("alt", "")
		if value == "" {
			value = "Color"
		}
		product.Variants = append(product.Variants, models.Variant{
			Type:      "color",
			Value:     value,
			Image:     normalize.NormalizeImageURL(img.AttrOr("src", ""), "shein"),
			Available: true,
		})
	})

	doc.Find(".product-intro__size-radio-item").Each(func(_ int, item *goquery.Selection) {
		product.Variants = append(product.Variants, models.Variant{
			Type:      "size",
			Value:     normalize.CleanText(item.Text()),
			Available: !item.HasClass("disabled"),
		})
	})

	product.HasVariants = len(product.Variants) > 0
	return product, nil
}
