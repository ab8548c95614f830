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
	temuGoodsRe    = regexp.MustCompile(`-g-(\d+)\.html`)
	temuImgSizeRe  = regexp.MustCompile(`_\d+\.`)
	temuImgQueryRe = regexp.MustCompile(`\?.*$`)
)

type temuStrategy struct {
	opts Options
}

func (s *temuStrategy) Platform() models.Platform { return models.PlatformTemu }

func (s *temuStrategy) Extract(_ context.Context, pg *page.Page) (*models.Product, error) {
	doc := pg.Doc
	product := s.opts.newProduct(models.PlatformTemu, pg)

	if m := temuGoodsRe.FindStringSubmatch(pg.URL.String()); m != nil {
		product.ExternalID = m[1]
		product.SKU = m[1]
	}

	product.Title = firstText(doc, "h1", `[class*="ProductTitle"]`, `[class*="title"]`)

	if price, ok := firstPrice(doc, s.opts.DefaultCurrency, `[class*="price"]`, `[class*="Price"]`); ok {
		product.Price = price.Amount
		product.Currency = price.Currency
	}

	origText := doc.Find(`[class*="original-price"], [class*="del"]`).First().Text()
	if orig := normalize.ParsePrice(origText, s.opts.DefaultCurrency); s.opts.acceptCompare(product.Price, orig.Amount) {
		product.CompareAtPrice = &orig.Amount
	}

	// Temu serves product media from its own CDN; avatars and icons share
	// the host and are filtered by path.
	set := newImageSet(s.opts.MaxImages)
	doc.Find(`img[src*="img.kwcdn.com"]`).Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("src", "")
		if src == "" || strings.Contains(src, "avatar") || strings.Contains(src, "icon") {
			return
		}
		src = temuImgQueryRe.ReplaceAllString(temuImgSizeRe.ReplaceAllString(src, "."), "")
		set.add(normalize.NormalizeImageURL(src, ""))
	})
	product.Images = set.list()
	if len(product.Images) > 0 {
		product.Thumbnail = product.Images[0]
	}

	doc.Find("video source").Each(func(_ int, el *goquery.Selection) {
		if src := el.AttrOr("src", ""); strings.Contains(src, ".mp4") {
			product.Videos = append(product.Videos, models.Video{URL: src, Type: "product_video"})
		}
	})

	if soldEl := doc.Find(`[class*="sold"], [class*="Sold"]`).First(); soldEl.Length() > 0 {
		product.SoldCount = normalize.ParseNumber(soldEl.Text())
	}

	product.Rating = normalize.ParseRating(doc.Find(`[class*="rating"], [class*="star"]`).First().Text())
	product.ReviewsCount = normalize.ParseNumber(doc.Find(`[class*="review-count"], [class*="Reviews"]`).First().Text())

	doc.Find(`[class*="sku-item"], [class*="option-item"]`).Each(func(_ int, item *goquery.Selection) {
		text := normalize.CleanText(item.Text())
		if text == "" {
			text = item.AttrOr("title", "")
		}
		if text == "" || len(text) >= 100 {
			return
		}
		product.Variants = append(product.Variants, models.Variant{
			Type:      "option",
			Value:     text,
			Image:     normalize.NormalizeImageURL(item.Find("img").First().AttrOr("src", ""), ""),
			Available: true,
		})
	})
	product.HasVariants = len(product.Variants) > 0

	if shippingEl := doc.Find(`[class*="shipping"], [class*="delivery"]`).First(); shippingEl.Length() > 0 {
		product.Shipping.EstimatedDelivery = normalize.CleanText(shippingEl.Text())
		product.Shipping.FreeShipping = strings.Contains(strings.ToLower(shippingEl.Text()), "free")
	}

	return product, nil
}
