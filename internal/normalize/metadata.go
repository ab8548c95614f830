package normalize

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ProductData is one schema.org Product entry harvested from an embedded
// ld+json block, kept as the raw decoded object so strategies can pick
// the keys they understand.
type ProductData map[string]any

// Str returns the string at key, or "" when absent or not a string.
func (p ProductData) Str(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Offer returns the first offer object, unwrapping both a single offer
// and an offer array.
func (p ProductData) Offer() map[string]any {
	switch offers := p["offers"].(type) {
	case map[string]any:
		return offers
	case []any:
		if len(offers) > 0 {
			if offer, ok := offers[0].(map[string]any); ok {
				return offer
			}
		}
	}
	return nil
}

// Images returns the image field as a flat list, accepting both a single
// URL and an array.
func (p ProductData) Images() []string {
	var out []string
	switch img := p["image"].(type) {
	case string:
		if img != "" {
			out = append(out, img)
		}
	case []any:
		for _, entry := range img {
			if s, ok := entry.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// BrandName unwraps brand, which sites emit either as a plain string or
// as a nested {"name": ...} object.
func (p ProductData) BrandName() string {
	switch brand := p["brand"].(type) {
	case string:
		return brand
	case map[string]any:
		if name, ok := brand["name"].(string); ok {
			return name
		}
	}
	return ""
}

// ProductJSONLD parses every application/ld+json block in the document,
// flattens @graph containers and returns the entries declared as
// Product. Malformed blocks are skipped silently.
func ProductJSONLD(doc *goquery.Document) []ProductData {
	var products []ProductData

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var decoded any
		if err := json.Unmarshal([]byte(s.Text()), &decoded); err != nil {
			return
		}

		items, ok := decoded.([]any)
		if !ok {
			items = []any{decoded}
		}

		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if isProductType(obj["@type"]) {
				products = append(products, ProductData(obj))
			}
			if graph, ok := obj["@graph"].([]any); ok {
				for _, node := range graph {
					if g, ok := node.(map[string]any); ok && isProductType(g["@type"]) {
						products = append(products, ProductData(g))
					}
				}
			}
		}
	})

	return products
}

func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Product"
	case []any:
		for _, entry := range v {
			if s, ok := entry.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

// OpenGraph collects og:* and product:* meta tag values keyed by the
// property's local name. Later tags do not overwrite earlier ones, which
// matches how link-preview consumers read duplicated properties.
func OpenGraph(doc *goquery.Document) map[string]string {
	og := make(map[string]string)

	doc.Find(`meta[property^="og:"], meta[property^="product:"]`).Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		key := strings.TrimPrefix(strings.TrimPrefix(prop, "og:"), "product:")
		if key == "" || content == "" {
			return
		}
		if _, seen := og[key]; !seen {
			og[key] = content
		}
	})

	return og
}
