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
	asinPathRe      = regexp.MustCompile(`(?i)/dp/([A-Z0-9]{10})`)
	asinGpRe        = regexp.MustCompile(`(?i)/gp/product/([A-Z0-9]{10})`)
	amazonBylineRe  = regexp.MustCompile(`(?i)^(Marque|Brand|Visit the|Visiter la boutique|Par)\s*:?\s*`)
	weightSpecRe    = regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s*(kg|g|lb|oz)`)
	histogramStarRe = regexp.MustCompile(`(?i)(\d)\s*(star|étoile)`)
	percentRe       = regexp.MustCompile(`(\d+)%`)
	soldByRe        = regexp.MustCompile(`(?i)^(Vendu par|Sold by|Ships from and sold by)\s*`)
)

type amazonStrategy struct {
	opts Options
}

func (s *amazonStrategy) Platform() models.Platform { return models.PlatformAmazon }

func (s *amazonStrategy) Extract(_ context.Context, pg *page.Page) (*models.Product, error) {
	doc := pg.Doc
	product := s.opts.newProduct(models.PlatformAmazon, pg)

	product.ASIN = s.extractASIN(pg)
	product.SKU = product.ASIN
	product.ExternalID = product.ASIN

	product.Title = firstText(doc, "#productTitle", "#title", ".product-title-word-break")

	if brand := firstText(doc, "#bylineInfo", ".po-brand .a-span9", "a#brand"); brand != "" {
		brand = amazonBylineRe.ReplaceAllString(brand, "")
		brand = strings.TrimSuffix(brand, " Store")
		product.Brand = strings.TrimSpace(brand)
	}

	if price, ok := firstPrice(doc, s.opts.DefaultCurrency,
		".a-price .a-offscreen",
		"#priceblock_ourprice",
		"#priceblock_dealprice",
		"#priceblock_saleprice",
		".apexPriceToPay .a-offscreen",
		"#corePrice_feature_div .a-offscreen",
		".priceToPay .a-offscreen",
		".reinventPricePriceToPayMargin .a-offscreen",
		"#apex_desktop .a-price .a-offscreen",
		`[data-a-color="price"] .a-offscreen`,
	); ok {
		product.Price = price.Amount
		product.Currency = price.Currency
	}

	wasText := doc.Find(".basisPrice .a-offscreen, .a-text-price .a-offscreen").First().Text()
	if was := normalize.ParsePrice(wasText, s.opts.DefaultCurrency); s.opts.acceptCompare(product.Price, was.Amount) {
		product.CompareAtPrice = &was.Amount
	}

	if avail := doc.Find("#availability, #outOfStock").First().Text(); avail != "" {
		status, qty := classifyStock(avail, s.opts.LowStockThreshold)
		if status != models.StockUnknown {
			product.StockStatus = status
			product.StockQuantity = qty
			product.Availability = status != models.StockOutOfStock
		}
	}

	s.extractDescription(doc, product)
	s.extractImages(doc, product)
	s.extractVideos(doc, product)
	s.extractReputation(doc, product)
	s.extractVariants(doc, product)
	s.extractSpecifications(doc, product)

	doc.Find("#wayfinding-breadcrumbs_feature_div li a").Each(func(_ int, a *goquery.Selection) {
		product.Breadcrumbs = append(product.Breadcrumbs, models.Breadcrumb{
			Name: normalize.CleanText(a.Text()),
			URL:  a.AttrOr("href", ""),
		})
	})
	if n := len(product.Breadcrumbs); n > 0 {
		product.Category = product.Breadcrumbs[n-1].Name
	}

	if delivery := doc.Find("#deliveryBlockMessage, #mir-layout-DELIVERY_BLOCK").First().Text(); delivery != "" {
		product.Shipping.EstimatedDelivery = normalize.CleanText(delivery)
		lower := strings.ToLower(delivery)
		product.Shipping.FreeShipping = strings.Contains(lower, "gratuit") || strings.Contains(lower, "free")
	}

	if sellerEl := doc.Find("#merchant-info, #sellerProfileTriggerId").First(); sellerEl.Length() > 0 {
		product.Seller.Name = soldByRe.ReplaceAllString(normalize.CleanText(sellerEl.Text()), "")
		product.Seller.URL = sellerEl.AttrOr("href", "")
	}

	if bsr := doc.Find("#SalesRank, #detailBulletsWrapper_feature_div").First().Text(); strings.Contains(bsr, "Best Seller") || strings.Contains(bsr, "Meilleures ventes") {
		product.CustomFields["best_seller_rank"] = normalize.CleanText(bsr)
	}

	product.HasVariants = len(product.Variants) > 0
	return product, nil
}

func (s *amazonStrategy) extractASIN(pg *page.Page) string {
	href := pg.URL.String()
	if m := asinPathRe.FindStringSubmatch(href); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := asinGpRe.FindStringSubmatch(href); m != nil {
		return strings.ToUpper(m[1])
	}
	return pg.Doc.Find("[data-asin]").First().AttrOr("data-asin", "")
}

func (s *amazonStrategy) extractDescription(doc *goquery.Document, product *models.Product) {
	var parts []string
	doc.Find("#feature-bullets li span.a-list-item").Each(func(_ int, li *goquery.Selection) {
		text := normalize.CleanText(li.Text())
		if text != "" && !strings.Contains(text, "›") && len(text) > 5 {
			parts = append(parts, "• "+text)
		}
	})

	if full := normalize.CleanText(doc.Find("#productDescription p, #productDescription_feature_div").First().Text()); full != "" {
		parts = append(parts, "\n"+full)
	}

	product.Description = truncate(strings.Join(parts, "\n"), 8000)
	short := parts
	if len(short) > 3 {
		short = short[:3]
	}
	product.ShortDescription = truncate(strings.Join(short, " "), 500)
}

func (s *amazonStrategy) extractImages(doc *goquery.Document, product *models.Product) {
	set := newImageSet(s.opts.MaxImages)

	doc.Find("#altImages img, #imageBlock img, .imgTagWrapper img, " +
		".a-dynamic-image, #landingImage, [data-old-hires], [data-a-hires], " +
		"li.image img, .ig-thumb-image").Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("data-old-hires", img.AttrOr("data-a-hires", img.AttrOr("src", "")))
		normalized := normalize.NormalizeImageURL(src, "amazon")
		if normalized != "" && strings.Contains(normalized, "images") &&
			!strings.Contains(normalized, "sprite") && !strings.Contains(normalized, "grey-pixel") {
			set.add(normalized)
		}
	})

	// Zoom markers carry the largest alternates.
	doc.Find("[data-zoom-image], [data-old-hires]").Each(func(_ int, el *goquery.Selection) {
		src := el.AttrOr("data-zoom-image", el.AttrOr("data-old-hires", ""))
		set.add(normalize.NormalizeImageURL(src, "amazon"))
	})

	product.Images = set.list()
	if len(product.Images) > 0 {
		product.Thumbnail = product.Images[0]
	}
}

func (s *amazonStrategy) extractVideos(doc *goquery.Document, product *models.Product) {
	doc.Find("[data-video-url], video source").Each(func(_ int, el *goquery.Selection) {
		url := el.AttrOr("data-video-url", el.AttrOr("src", ""))
		if url != "" && (strings.Contains(url, ".mp4") || strings.Contains(url, "video")) {
			product.Videos = append(product.Videos, models.Video{
				URL:       url,
				Type:      "product_video",
				Thumbnail: el.AttrOr("data-poster-url", ""),
			})
		}
	})
}

func (s *amazonStrategy) extractReputation(doc *goquery.Document, product *models.Product) {
	product.Rating = normalize.ParseRating(doc.Find("#acrPopover .a-icon-alt, .a-icon-star .a-icon-alt").First().Text())
	product.ReviewsCount = normalize.ParseNumber(doc.Find("#acrCustomerReviewText").First().Text())
	product.RatingCount = product.ReviewsCount

	rows := doc.Find("#histogramTable tr, .cr-widget-FocalReviews tr")
	if rows.Length() > 0 {
		dist := make(map[string]int)
		rows.Each(func(_ int, row *goquery.Selection) {
			text := row.Text()
			star := histogramStarRe.FindStringSubmatch(text)
			percent := percentRe.FindStringSubmatch(text)
			if star != nil && percent != nil {
				dist[star[1]] = normalize.ParseNumber(percent[1])
			}
		})
		if len(dist) > 0 {
			product.RatingDistribution = dist
		}
	}
}

func (s *amazonStrategy) extractVariants(doc *goquery.Document, product *models.Product) {
	addSwatch := func(variantType string, v *goquery.Selection, text, image string) {
		text = normalize.CleanText(text)
		if text == "" || len(text) >= 50 {
			return
		}
		product.Variants = append(product.Variants, models.Variant{
			Type:      variantType,
			Name:      text,
			Value:     text,
			Image:     image,
			Available: !v.HasClass("swatchUnavailable"),
			ID:        v.AttrOr("data-asin", ""),
		})
	}

	doc.Find("#variation_size_name li, #twister-plus-inline-twister-card li").Each(func(_ int, v *goquery.Selection) {
		addSwatch("size", v, v.Find(".a-button-text, .a-size-base").First().Text(), "")
	})

	doc.Find("#variation_color_name li, #variation-color li").Each(func(_ int, v *goquery.Selection) {
		img := v.Find("img").First()
		text := img.AttrOr("alt", "")
		if text == "" {
			text = v.Find(".a-button-text").First().Text()
		}
		addSwatch("color", v, text, normalize.NormalizeImageURL(img.AttrOr("src", ""), "amazon"))
	})

	doc.Find("#variation_style_name li").Each(func(_ int, v *goquery.Selection) {
		text := v.Find("img").First().AttrOr("alt", "")
		if text == "" {
			text = v.Find(".a-button-text").First().Text()
		}
		addSwatch("style", v, text, "")
	})
}

// extractSpecifications walks the technical detail tables. Weight,
// dimensions, manufacturer and model rows also enrich the shipping and
// identity fields in the same pass.
func (s *amazonStrategy) extractSpecifications(doc *goquery.Document, product *models.Product) {
	doc.Find("#productDetails_techSpec_section_1 tr, " +
		"#productDetails_detailBullets_sections1 tr, " +
		".prodDetTable tr, " +
		"#detailBullets_feature_div li").Each(func(_ int, row *goquery.Selection) {
		var name, value string
		if goquery.NodeName(row) == "tr" {
			name = normalize.CleanText(row.Find("th, td:first-child").First().Text())
			value = normalize.CleanText(row.Find("td:last-child, td:nth-child(2)").First().Text())
		} else {
			name, value, _ = strings.Cut(row.Text(), ":")
			name = normalize.CleanText(name)
			value = normalize.CleanText(value)
		}

		if name == "" || value == "" || len(name) >= 100 {
			return
		}
		product.Specifications = append(product.Specifications, models.Specification{Name: name, Value: value})

		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "weight") || strings.Contains(lower, "poids"):
			if m := weightSpecRe.FindStringSubmatch(value); m != nil {
				w := normalize.ParseFloat(m[1])
				product.Shipping.Weight = &w
				product.Shipping.WeightUnit = strings.ToLower(m[2])
			}
		case strings.Contains(lower, "dimension"):
			product.Shipping.Dimensions = value
		case strings.Contains(lower, "manufacturer") || strings.Contains(lower, "fabricant"):
			product.Manufacturer = value
		case strings.Contains(lower, "model") || strings.Contains(lower, "modèle"):
			product.MPN = value
		}
	})
}
