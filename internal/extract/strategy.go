// Package extract contains the per-platform extraction strategies and
// the engine that dispatches, validates and falls back between them.
package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/normalize"
	"github.com/webimport/product-extractor/internal/page"
)

// Strategy is one platform-specific implementation of the extraction
// contract. A strategy populates a fresh record from the page; the
// engine treats any returned error (or panic) as a fault and substitutes
// the generic strategy.
type Strategy interface {
	Platform() models.Platform
	Extract(ctx context.Context, pg *page.Page) (*models.Product, error)
}

// Options are the engine tunables. Thresholds are policy, not
// architecture, so they are configuration rather than constants.
type Options struct {
	// DefaultCurrency is assumed when a price carries no currency
	// marker. ISO-like 3-letter code.
	DefaultCurrency string

	// LowStockThreshold downgrades in_stock to low_stock when a numeric
	// quantity below it is visible on the page.
	LowStockThreshold int

	// MaxImages caps the collected image list.
	MaxImages int

	// AllowEqualComparePrice accepts an original price equal to the
	// current price. The default drops it unless strictly greater,
	// which silently hides promotions priced at the original.
	AllowEqualComparePrice bool

	// FetchTimeout bounds the one network call a strategy may make,
	// the Shopify same-origin product JSON fetch.
	FetchTimeout time.Duration
}

// DefaultOptions mirror the reference behavior.
func DefaultOptions() Options {
	return Options{
		DefaultCurrency:   "EUR",
		LowStockThreshold: 10,
		MaxImages:         25,
		FetchTimeout:      15 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	if o.DefaultCurrency == "" {
		o.DefaultCurrency = "EUR"
	}
	if o.LowStockThreshold <= 0 {
		o.LowStockThreshold = 10
	}
	if o.MaxImages <= 0 {
		o.MaxImages = 25
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 15 * time.Second
	}
	return o
}

// newProduct seeds an empty record with everything every strategy
// stamps the same way.
func (o Options) newProduct(platform models.Platform, pg *page.Page) *models.Product {
	p := models.NewProduct()
	p.Platform = platform
	p.SourceURL = pg.URL.String()
	p.Currency = o.DefaultCurrency
	return p
}

// acceptCompare reports whether a discovered original price may be kept
// next to the current price.
func (o Options) acceptCompare(current, original float64) bool {
	if original <= 0 {
		return false
	}
	if o.AllowEqualComparePrice {
		return original >= current
	}
	return original > current
}

// firstText returns the first non-empty cleaned text among selectors,
// tried in priority order.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := normalize.CleanText(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstPrice tries selectors in order and returns the first candidate
// parsing to a price greater than zero. First match wins; later
// candidates are never merged in.
func firstPrice(doc *goquery.Document, defaultCurrency string, selectors ...string) (normalize.Price, bool) {
	for _, sel := range selectors {
		var found normalize.Price
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := s.Text()
			if text == "" {
				text = s.AttrOr("content", "")
			}
			price := normalize.ParsePrice(text, defaultCurrency)
			if price.Amount > 0 {
				found = price
				return false
			}
			return true
		})
		if found.Amount > 0 {
			return found, true
		}
	}
	return normalize.Price{}, false
}

var quantityRe = regexp.MustCompile(`(?i)(\d+)\s*(en stock|left|disponible)`)

// classifyStock maps free-text availability to the closed enum using
// localized keywords. A visible quantity below the threshold downgrades
// in_stock to low_stock.
func classifyStock(text string, threshold int) (models.StockStatus, *int) {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "rupture"),
		strings.Contains(lower, "out of stock"),
		strings.Contains(lower, "sold out"),
		strings.Contains(lower, "épuisé"),
		strings.Contains(lower, "unavailable"),
		strings.Contains(lower, "indisponible"):
		return models.StockOutOfStock, nil
	case strings.Contains(lower, "précommande"),
		strings.Contains(lower, "pre-order"),
		strings.Contains(lower, "preorder"):
		return models.StockPreorder, nil
	case strings.Contains(lower, "backorder"),
		strings.Contains(lower, "réapprovisionnement"):
		return models.StockBackorder, nil
	case strings.Contains(lower, "en stock"), strings.Contains(lower, "in stock"):
		if m := quantityRe.FindStringSubmatch(text); m != nil {
			qty := normalize.ParseNumber(m[1])
			if qty > 0 && qty < threshold {
				return models.StockLowStock, &qty
			}
			if qty > 0 {
				return models.StockInStock, &qty
			}
		}
		return models.StockInStock, nil
	}

	return models.StockUnknown, nil
}

// truncate cuts text to at most n runes.
func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

// imageSet is a duplicate-free ordered URL collection with a hard cap.
type imageSet struct {
	seen map[string]bool
	urls []string
	cap  int
}

func newImageSet(cap int) *imageSet {
	return &imageSet{seen: make(map[string]bool), cap: cap}
}

// add inserts a normalized URL, ignoring empties, duplicates and
// anything past the cap.
func (s *imageSet) add(url string) {
	if url == "" || s.seen[url] || len(s.urls) >= s.cap {
		return
	}
	s.seen[url] = true
	s.urls = append(s.urls, url)
}

func (s *imageSet) list() []string {
	if s.urls == nil {
		return []string{}
	}
	return s.urls
}
