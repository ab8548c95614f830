package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/normalize"
	"github.com/webimport/product-extractor/internal/page"
)

var shopifyHandleRe = regexp.MustCompile(`/products/([^/?]+)`)

// shopifyProduct is the payload of the storefront's /products/{handle}.js
// resource. Prices are in minor units.
type shopifyProduct struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Handle      string   `json:"handle"`
	Description string   `json:"description"`
	BodyHTML    string   `json:"body_html"`
	Vendor      string   `json:"vendor"`
	ProductType string   `json:"product_type"`
	Tags        []string `json:"tags"`
	Price       float64  `json:"price"`
	CompareAt   *float64 `json:"compare_at_price"`
	PublishedAt string   `json:"published_at"`
	CreatedAt   string   `json:"created_at"`
	Images      []string `json:"images"`
	Media       []struct {
		MediaType  string `json:"media_type"`
		ExternalID string `json:"external_id"`
		Alt        string `json:"alt"`
		Sources    []struct {
			URL string `json:"url"`
		} `json:"sources"`
	} `json:"media"`
	Variants []struct {
		ID            int64    `json:"id"`
		SKU           string   `json:"sku"`
		Title         string   `json:"title"`
		Price         float64  `json:"price"`
		CompareAt     *float64 `json:"compare_at_price"`
		Available     *bool    `json:"available"`
		Option1       string   `json:"option1"`
		FeaturedImage *struct {
			Src string `json:"src"`
		} `json:"featured_image"`
		InventoryQuantity *int `json:"inventory_quantity"`
	} `json:"variants"`
	Options []struct {
		Name   string   `json:"name"`
		Values []string `json:"values"`
	} `json:"options"`
}

// shopifyStrategy tries the storefront JSON resource first, then
// structured data, then the page tree, in that fixed order. The JSON
// fetch is the engine's only network operation.
type shopifyStrategy struct {
	opts Options
}

func (s *shopifyStrategy) Platform() models.Platform { return models.PlatformShopify }

func (s *shopifyStrategy) Extract(ctx context.Context, pg *page.Page) (*models.Product, error) {
	product := s.opts.newProduct(models.PlatformShopify, pg)

	if data, err := s.fetchProductJSON(ctx, pg); err == nil {
		s.fromJSON(data, product, pg)
		return product, nil
	}

	if jsonLD := normalize.ProductJSONLD(pg.Doc); len(jsonLD) > 0 {
		fromStructuredData(jsonLD[0], product, s.opts)
		return product, nil
	}

	s.fromDOM(pg.Doc, product)
	return product, nil
}

func (s *shopifyStrategy) fetchProductJSON(ctx context.Context, pg *page.Page) (*shopifyProduct, error) {
	m := shopifyHandleRe.FindStringSubmatch(pg.URL.Path)
	if m == nil {
		return nil, fmt.Errorf("no product handle in path %q", pg.URL.Path)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	body, err := pg.FetchSameOrigin(ctx, "/products/"+m[1]+".js")
	if err != nil {
		return nil, err
	}

	var data shopifyProduct
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode product JSON: %w", err)
	}
	return &data, nil
}

func (s *shopifyStrategy) fromJSON(data *shopifyProduct, product *models.Product, pg *page.Page) {
	if data.ID != 0 {
		product.ExternalID = strconv.FormatInt(data.ID, 10)
	}
	product.Title = data.Title
	desc := data.Description
	if desc == "" {
		desc = data.BodyHTML
	}
	product.Description = normalize.CleanText(desc)
	product.Vendor = data.Vendor
	product.Brand = data.Vendor
	product.ProductType = data.ProductType
	if data.Tags != nil {
		product.Tags = data.Tags
	}

	// Storefront prices are minor units.
	product.Price = data.Price / 100
	if data.CompareAt != nil && s.opts.acceptCompare(product.Price, *data.CompareAt/100) {
		compare := *data.CompareAt / 100
		product.CompareAtPrice = &compare
	}

	for _, img := range data.Images {
		if normalized := normalize.NormalizeImageURL(img, "shopify"); normalized != "" {
			if len(product.Images) < s.opts.MaxImages {
				product.Images = append(product.Images, normalized)
			}
		}
	}
	if len(product.Images) > 0 {
		product.Thumbnail = product.Images[0]
	}

	for _, m := range data.Media {
		if m.MediaType == "video" || m.MediaType == "external_video" {
			url := m.ExternalID
			if len(m.Sources) > 0 {
				url = m.Sources[0].URL
			}
			product.Videos = append(product.Videos, models.Video{URL: url, Type: m.MediaType})
		}
	}

	for _, v := range data.Variants {
		available := v.Available == nil || *v.Available
		variant := models.Variant{
			Type:      "option",
			Name:      v.Title,
			Value:     v.Option1,
			Available: available,
			SKU:       v.SKU,
			Price:     v.Price / 100,
			Quantity:  v.InventoryQuantity,
		}
		if variant.Value == "" {
			variant.Value = v.Title
		}
		if v.ID != 0 {
			variant.ID = strconv.FormatInt(v.ID, 10)
		}
		if v.FeaturedImage != nil {
			variant.Image = normalize.NormalizeImageURL(v.FeaturedImage.Src, "shopify")
		}
		product.Variants = append(product.Variants, variant)

		if product.StockStatus == models.StockUnknown {
			if available {
				product.StockStatus = models.StockInStock
				product.Availability = true
			} else {
				product.StockStatus = models.StockOutOfStock
				product.Availability = false
			}
		}
	}
	product.HasVariants = len(product.Variants) > 0
	if len(product.Variants) > 0 {
		product.SKU = product.Variants[0].SKU
	}

	for _, opt := range data.Options {
		product.Options = append(product.Options, models.Option{Name: opt.Name, Values: opt.Values})
	}

	product.CustomFields["handle"] = data.Handle
	if data.PublishedAt != "" {
		product.CustomFields["published_at"] = data.PublishedAt
	}
	if data.CreatedAt != "" {
		product.CustomFields["created_at"] = data.CreatedAt
	}
	product.Seller.StoreName = pg.URL.Hostname()
}

func (s *shopifyStrategy) fromDOM(doc *goquery.Document, product *models.Product) {
	product.Title = firstText(doc,
		"h1.product-title",
		".product__title h1",
		"[data-product-title]",
		".product-single__title",
		`h1[itemprop="name"]`,
		"h1",
	)

	if price, ok := firstPrice(doc, s.opts.DefaultCurrency,
		"[data-product-price]",
		".product__price",
		".price--show-badge",
		`[itemprop="price"]`,
		".product-price",
	); ok {
		product.Price = price.Amount
		product.Currency = price.Currency
	}

	set := newImageSet(s.opts.MaxImages)
	doc.Find(".product__media img, .product-gallery img, [data-product-media] img").Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("data-src", img.AttrOr("src", ""))
		if normalized := normalize.NormalizeImageURL(src, "shopify"); !strings.Contains(normalized, "placeholder") {
			set.add(normalized)
		}
	})
	product.Images = set.list()
	if len(product.Images) > 0 {
		product.Thumbnail = product.Images[0]
	}
}
