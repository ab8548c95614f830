package models

import (
	"time"
)

// Platform identifies the shop system a product was extracted from.
type Platform string

const (
	PlatformAliExpress     Platform = "aliexpress"
	PlatformAmazon         Platform = "amazon"
	PlatformEbay           Platform = "ebay"
	PlatformTemu           Platform = "temu"
	PlatformWalmart        Platform = "walmart"
	PlatformEtsy           Platform = "etsy"
	PlatformCdiscount      Platform = "cdiscount"
	PlatformFnac           Platform = "fnac"
	PlatformRakuten        Platform = "rakuten"
	PlatformShein          Platform = "shein"
	PlatformAlibaba        Platform = "alibaba"
	PlatformShopify        Platform = "shopify"
	PlatformTarget         Platform = "target"
	PlatformBestBuy        Platform = "bestbuy"
	PlatformNewegg         Platform = "newegg"
	PlatformBanggood       Platform = "banggood"
	PlatformDHgate         Platform = "dhgate"
	PlatformWish           Platform = "wish"
	PlatformCJDropshipping Platform = "cjdropshipping"
	PlatformHomeDepot      Platform = "homedepot"
	PlatformLowes          Platform = "lowes"
	PlatformCostco         Platform = "costco"
	PlatformGeneric        Platform = "generic"
)

// StockStatus is the closed availability classification.
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockLowStock   StockStatus = "low_stock"
	StockPreorder   StockStatus = "preorder"
	StockBackorder  StockStatus = "backorder"
	StockUnknown    StockStatus = "unknown"
)

// IsValid reports whether s is one of the closed enum values.
func (s StockStatus) IsValid() bool {
	switch s {
	case StockInStock, StockOutOfStock, StockLowStock, StockPreorder, StockBackorder, StockUnknown:
		return true
	}
	return false
}

// Variant is one purchasable variation of a product (size, color, style
// or a platform-specific option).
type Variant struct {
	Type      string  `json:"type"`
	Name      string  `json:"name,omitempty"`
	Value     string  `json:"value"`
	Image     string  `json:"image,omitempty"`
	Available bool    `json:"available"`
	ID        string  `json:"id,omitempty"`
	SKU       string  `json:"sku,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Quantity  *int    `json:"inventory_quantity,omitempty"`
}

// Option is a named variant axis with its value set (Shopify options and
// equivalents elsewhere).
type Option struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type Video struct {
	URL       string `json:"url"`
	Type      string `json:"type"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type Specification struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Breadcrumb struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// BulkPricingTier is one quantity-break price row.
type BulkPricingTier struct {
	MinQuantity int     `json:"min_quantity"`
	MaxQuantity int     `json:"max_quantity,omitempty"`
	Price       float64 `json:"price"`
}

type Shipping struct {
	FreeShipping      bool     `json:"free_shipping"`
	ShippingCost      *float64 `json:"shipping_cost"`
	EstimatedDelivery string   `json:"estimated_delivery"`
	ShippingFrom      string   `json:"shipping_from"`
	Weight            *float64 `json:"weight"`
	WeightUnit        string   `json:"weight_unit"`
	Dimensions        string   `json:"dimensions,omitempty"`
	HandlingTime      string   `json:"handling_time,omitempty"`
}

type Seller struct {
	Name             string   `json:"name"`
	ID               string   `json:"id"`
	URL              string   `json:"url"`
	Rating           *float64 `json:"rating"`
	FeedbackScore    *float64 `json:"feedback_score"`
	PositiveFeedback *float64 `json:"positive_feedback"`
	StoreName        string   `json:"store_name"`
	Location         string   `json:"location"`
}

// Product is the unified record every strategy populates. It is created
// empty by NewProduct, filled by exactly one strategy, validated once by
// the engine and then owned by the caller.
type Product struct {
	// Identity
	ExternalID string `json:"external_id"`
	SKU        string `json:"sku"`
	GTIN       string `json:"gtin"`
	UPC        string `json:"upc"`
	EAN        string `json:"ean"`
	MPN        string `json:"mpn"`
	ASIN       string `json:"asin"`

	// Descriptive
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"short_description"`
	Brand            string   `json:"brand"`
	Manufacturer     string   `json:"manufacturer"`
	Vendor           string   `json:"vendor"`
	Category         string   `json:"category"`
	Subcategory      string   `json:"subcategory"`
	ProductType      string   `json:"product_type"`
	Tags             []string `json:"tags"`

	// Commercial
	Price          float64           `json:"price"`
	CompareAtPrice *float64          `json:"compare_at_price"`
	Currency       string            `json:"currency"`
	BulkPricing    []BulkPricingTier `json:"bulk_pricing"`

	// Availability
	StockQuantity    *int        `json:"stock_quantity"`
	StockStatus      StockStatus `json:"stock_status"`
	Availability     bool        `json:"availability"`
	MinOrderQuantity int         `json:"min_order_quantity"`
	MaxOrderQuantity *int        `json:"max_order_quantity"`

	// Media
	Images    []string `json:"images"`
	Videos    []Video  `json:"videos"`
	Thumbnail string   `json:"thumbnail"`

	// Variants
	Variants    []Variant `json:"variants"`
	Options     []Option  `json:"options"`
	HasVariants bool      `json:"has_variants"`

	// Reputation
	Rating             *float64       `json:"rating"`
	RatingCount        int            `json:"rating_count"`
	ReviewsCount       int            `json:"reviews_count"`
	RatingDistribution map[string]int `json:"rating_distribution"`

	// Logistics
	Shipping Shipping `json:"shipping"`
	Seller   Seller   `json:"seller"`

	Specifications []Specification   `json:"specifications"`
	Attributes     map[string]string `json:"attributes"`
	Materials      []string          `json:"materials"`

	// Navigation / SEO
	Breadcrumbs  []Breadcrumb `json:"breadcrumbs"`
	CanonicalURL string       `json:"canonical_url,omitempty"`

	// Marketplace signals
	Condition   string `json:"condition"`
	OrdersCount int    `json:"orders_count"`
	SoldCount   int    `json:"sold_count"`

	// Provenance
	Platform     Platform       `json:"platform"`
	SourceURL    string         `json:"source_url"`
	ExtractedAt  time.Time      `json:"extracted_at"`
	CustomFields map[string]any `json:"custom_fields"`
}

// NewProduct returns an empty record with every collection initialized so
// strategies can append without nil checks and JSON output stays stable.
func NewProduct() *Product {
	return &Product{
		Currency:         "EUR",
		StockStatus:      StockUnknown,
		Availability:     true,
		MinOrderQuantity: 1,
		Condition:        "new",
		Tags:             make([]string, 0),
		BulkPricing:      make([]BulkPricingTier, 0),
		Images:           make([]string, 0),
		Videos:           make([]Video, 0),
		Variants:         make([]Variant, 0),
		Options:          make([]Option, 0),
		Specifications:   make([]Specification, 0),
		Attributes:       make(map[string]string),
		Materials:        make([]string, 0),
		Breadcrumbs:      make([]Breadcrumb, 0),
		Shipping:         Shipping{WeightUnit: "kg"},
		CustomFields:     make(map[string]any),
	}
}

// Validate lists the invariants the record currently breaks. The engine's
// validation pass repairs these before a record leaves the engine.
func (p *Product) Validate() []string {
	var problems []string

	if p.Title == "" {
		problems = append(problems, "title is empty")
	}
	if p.Platform == "" {
		problems = append(problems, "platform is empty")
	}
	if p.SourceURL == "" {
		problems = append(problems, "source_url is empty")
	}
	if p.Price < 0 {
		problems = append(problems, "price is negative")
	}
	if !p.StockStatus.IsValid() {
		problems = append(problems, "stock_status is not a valid enum value")
	}
	if p.HasVariants != (len(p.Variants) > 0) {
		problems = append(problems, "has_variants does not match variants")
	}
	if p.CompareAtPrice != nil && *p.CompareAtPrice <= p.Price {
		problems = append(problems, "compare_at_price is not greater than price")
	}

	seen := make(map[string]bool, len(p.Images))
	for _, img := range p.Images {
		if img == "" {
			problems = append(problems, "images contains an empty entry")
			break
		}
		if seen[img] {
			problems = append(problems, "images contains duplicates")
			break
		}
		seen[img] = true
	}

	return problems
}
