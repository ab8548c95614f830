package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/webimport/product-extractor/internal/detect"
	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/page"
)

// Engine dispatches a page to the right strategy and guarantees the
// caller always gets a record satisfying the schema invariants. It holds
// no state across calls; a single Engine is safe for concurrent use.
type Engine struct {
	opts       Options
	strategies map[models.Platform]Strategy
	generic    Strategy
	logger     *slog.Logger
}

// NewEngine builds an engine with the dedicated strategies registered.
// Platforms without a dedicated strategy dispatch to generic with the
// detected platform stamped onto the result.
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	dedicated := []Strategy{
		&amazonStrategy{opts: opts},
		&aliexpressStrategy{opts: opts},
		&shopifyStrategy{opts: opts},
		&temuStrategy{opts: opts},
		&ebayStrategy{opts: opts},
		&etsyStrategy{opts: opts},
		&sheinStrategy{opts: opts},
		&walmartStrategy{opts: opts},
	}

	strategies := make(map[models.Platform]Strategy, len(dedicated))
	for _, s := range dedicated {
		strategies[s.Platform()] = s
	}

	return &Engine{
		opts:       opts,
		strategies: strategies,
		generic:    &genericStrategy{opts: opts},
		logger:     logger.With("component", "extract_engine"),
	}
}

// Extract runs detection, the selected strategy and the validation pass.
// It never returns an error: strategy faults fall back to the generic
// strategy and are recorded in custom_fields.extraction_error.
func (e *Engine) Extract(ctx context.Context, pg *page.Page) *models.Product {
	platform := detect.Platform(pg)
	e.logger.Info("platform detected", "platform", platform, "host", pg.Hostname())

	strategy, ok := e.strategies[platform]
	if !ok {
		strategy = e.generic
	}

	product, err := e.runStrategy(ctx, strategy, pg)
	if err != nil {
		e.logger.Warn("strategy failed, falling back to generic",
			"platform", platform, "error", err)
		// The partial result is discarded; generic rebuilds from scratch.
		product, _ = e.generic.Extract(ctx, pg)
		if product == nil {
			product = e.opts.newProduct(platform, pg)
		}
		product.CustomFields["extraction_error"] = err.Error()
	}

	product.Platform = platform
	e.validate(pg, product)

	e.logger.Info("extraction complete",
		"platform", platform,
		"title", product.Title,
		"images", len(product.Images),
		"videos", len(product.Videos),
		"variants", len(product.Variants),
		"specs", len(product.Specifications))

	return product
}

// runStrategy invokes a strategy, converting panics into errors so a
// misbehaving selector can never cross the engine boundary.
func (e *Engine) runStrategy(ctx context.Context, strategy Strategy, pg *page.Page) (product *models.Product, err error) {
	defer func() {
		if r := recover(); r != nil {
			product = nil
			err = fmt.Errorf("strategy panic: %v", r)
		}
	}()

	product, err = strategy.Extract(ctx, pg)
	if err == nil && product == nil {
		err = fmt.Errorf("strategy returned no product")
	}
	return product, err
}

// validate is the final enrichment pass. It repairs every invariant a
// strategy may have left broken and stamps provenance.
func (e *Engine) validate(pg *page.Page, product *models.Product) {
	if product.Title == "" {
		title, _, _ := strings.Cut(pg.Title(), "|")
		product.Title = strings.TrimSpace(title)
	}
	if product.Title == "" {
		product.Title = "Unknown Product"
	}

	deduped := make([]string, 0, len(product.Images))
	seen := make(map[string]bool, len(product.Images))
	for _, img := range product.Images {
		if img == "" || seen[img] {
			continue
		}
		seen[img] = true
		deduped = append(deduped, img)
	}
	if len(deduped) > e.opts.MaxImages {
		deduped = deduped[:e.opts.MaxImages]
	}
	product.Images = deduped

	if product.Thumbnail == "" && len(product.Images) > 0 {
		product.Thumbnail = product.Images[0]
	}

	if !product.StockStatus.IsValid() || product.StockStatus == "" {
		if product.Availability {
			product.StockStatus = models.StockInStock
		} else {
			product.StockStatus = models.StockUnknown
		}
	}

	product.HasVariants = len(product.Variants) > 0

	if product.Price < 0 {
		product.Price = 0
	}
	if product.RatingCount == 0 {
		product.RatingCount = product.ReviewsCount
	}
	if product.Currency == "" {
		product.Currency = e.opts.DefaultCurrency
	}
	if product.CompareAtPrice != nil && !e.opts.acceptCompare(product.Price, *product.CompareAtPrice) {
		product.CompareAtPrice = nil
	}
	if product.SourceURL == "" {
		product.SourceURL = pg.URL.String()
	}

	product.ExtractedAt = time.Now().UTC()
}
