package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/normalize"
	"github.com/webimport/product-extractor/internal/page"
)

// genericStrategy is both the strategy for platforms without a dedicated
// one and the universal fault fallback. It layers structured data, then
// social metadata, then increasingly permissive page-tree heuristics,
// never overwriting a field an earlier layer already filled.
type genericStrategy struct {
	opts Options
}

func (s *genericStrategy) Platform() models.Platform { return models.PlatformGeneric }

func (s *genericStrategy) Extract(_ context.Context, pg *page.Page) (*models.Product, error) {
	doc := pg.Doc
	product := s.opts.newProduct(models.PlatformGeneric, pg)

	if jsonLD := normalize.ProductJSONLD(doc); len(jsonLD) > 0 {
		fromStructuredData(jsonLD[0], product, s.opts)
	}

	og := normalize.OpenGraph(doc)
	if product.Title == "" {
		product.Title = og["title"]
	}
	if product.Description == "" {
		product.Description = og["description"]
	}
	if len(product.Images) == 0 {
		if img := normalize.NormalizeImageURL(og["image"], ""); img != "" {
			product.Images = append(product.Images, img)
		}
	}
	if product.Price == 0 {
		if price := normalize.ParsePrice(og["price:amount"], s.opts.DefaultCurrency); price.Amount > 0 {
			product.Price = price.Amount
		}
	}
	if cur := og["price:currency"]; cur != "" {
		product.Currency = cur
	}

	if product.Title == "" {
		product.Title = firstText(doc, "h1", ".product-title", `[class*="title"]`)
	}
	if product.Title == "" {
		title, _, _ := strings.Cut(pg.Title(), "|")
		product.Title = strings.TrimSpace(title)
	}

	if product.Price == 0 {
		if price, ok := firstPrice(doc, s.opts.DefaultCurrency, `[class*="price"]`, `[itemprop="price"]`); ok {
			product.Price = price.Amount
			product.Currency = price.Currency
		}
	}

	if len(product.Images) == 0 {
		set := newImageSet(s.opts.MaxImages)
		doc.Find(`[class*="gallery"] img, [class*="product"] img, main img`).Each(func(_ int, img *goquery.Selection) {
			src := img.AttrOr("src", "")
			if strings.Contains(src, "http") && !strings.Contains(src, "placeholder") &&
				!strings.Contains(src, "icon") && !strings.Contains(src, "logo") {
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

// fromStructuredData maps a schema.org Product entry onto the record.
// Shared by the generic, Shopify and Walmart strategies.
func fromStructuredData(data normalize.ProductData, product *models.Product, opts Options) {
	product.Title = data.Str("name")
	product.Description = normalize.CleanText(data.Str("description"))
	product.SKU = data.Str("sku")
	product.Brand = data.BrandName()
	product.MPN = data.Str("mpn")

	for _, key := range []string{"gtin", "gtin13", "gtin12", "gtin8"} {
		if v := data.Str(key); v != "" {
			product.GTIN = v
			break
		}
	}

	if offer := data.Offer(); offer != nil {
		switch price := offer["price"].(type) {
		case float64:
			product.Price = price
		case string:
			product.Price = normalize.ParseFloat(price)
		}
		if cur, ok := offer["priceCurrency"].(string); ok && cur != "" {
			product.Currency = cur
		}
		availability, _ := offer["availability"].(string)
		product.Availability = strings.Contains(availability, "InStock")
		if product.Availability {
			product.StockStatus = models.StockInStock
		} else {
			product.StockStatus = models.StockOutOfStock
		}
	}

	for _, img := range data.Images() {
		normalized := normalize.NormalizeImageURL(img, string(product.Platform))
		if normalized != "" && len(product.Images) < opts.MaxImages {
			product.Images = append(product.Images, normalized)
		}
	}

	if rating, ok := data["aggregateRating"].(map[string]any); ok {
		switch value := rating["ratingValue"].(type) {
		case float64:
			product.Rating = &value
		case string:
			if v := normalize.ParseFloat(value); v > 0 {
				product.Rating = &v
			}
		}
		switch count := rating["reviewCount"].(type) {
		case float64:
			product.ReviewsCount = int(count)
		case string:
			product.ReviewsCount = normalize.ParseNumber(count)
		}
	}
}
