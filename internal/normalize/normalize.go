// Package normalize holds the pure helpers every extraction strategy
// shares: price and number parsing, image URL canonicalization and text
// cleanup. All helpers return safe defaults instead of errors because
// they run against arbitrary page text.
package normalize

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Price is the result of ParsePrice.
type Price struct {
	Amount   float64
	Currency string
}

// currencyTable maps symbols and codes to ISO currency codes. Order
// matters: the first symbol found in the text wins, so ambiguous inputs
// resolve the same way every time.
var currencyTable = []struct {
	symbol string
	code   string
}{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"₽", "RUB"},
	{"CHF", "CHF"},
	{"CAD", "CAD"},
	{"AUD", "AUD"},
	{"CNY", "CNY"},
	{"BRL", "BRL"},
	{"MXN", "MXN"},
}

var (
	priceRunRe   = regexp.MustCompile(`\d+[.,]?\d*`)
	nonPriceRe   = regexp.MustCompile(`[^\d.,]`)
	ratingRe     = regexp.MustCompile(`\d+[.,]?\d*`)
	nonDigitRe   = regexp.MustCompile(`\D`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// ParsePrice scans text for a currency marker and the first numeric run.
// A comma decimal separator is converted to a dot. Empty or unparsable
// input yields {0, defaultCurrency}; ParsePrice never fails.
func ParsePrice(text, defaultCurrency string) Price {
	if text == "" {
		return Price{Amount: 0, Currency: defaultCurrency}
	}

	currency := defaultCurrency
	for _, entry := range currencyTable {
		if strings.Contains(text, entry.symbol) {
			currency = entry.code
			break
		}
	}

	run := priceRunRe.FindString(nonPriceRe.ReplaceAllString(text, ""))
	if run == "" {
		return Price{Amount: 0, Currency: currency}
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(run, ",", "."), 64)
	if err != nil || amount < 0 {
		return Price{Amount: 0, Currency: currency}
	}

	return Price{Amount: amount, Currency: currency}
}

// trackingParams are query parameters stripped from image URLs. utm_*
// is handled by prefix.
var trackingParams = []string{"ref", "ref_", "spm"}

type imageRewrite struct {
	marker  string
	pattern *regexp.Regexp
	repl    string
}

// imageRewrites upgrade platform thumbnail tokens to the largest image
// variant each CDN serves. A rewrite applies when either the platform
// hint or the URL itself names the platform.
var imageRewrites = []imageRewrite{
	{"amazon", regexp.MustCompile(`\._[A-Z]{2}\d+_\.`), "._SL1500_."},
	{"amazon", regexp.MustCompile(`_AC_US\d+_`), "_AC_SL1500_"},
	{"amazon", regexp.MustCompile(`_AC_S[XY]\d+_`), "_AC_SL1500_"},
	{"amazon", regexp.MustCompile(`_SS\d+_`), "_SL1500_"},
	{"amazon", regexp.MustCompile(`_S[XY]\d+_`), "_SL1500_"},
	{"alicdn", regexp.MustCompile(`\.jpg_\d+x\d+\.jpg`), ".jpg"},
	{"alicdn", regexp.MustCompile(`_\d+x\d+\.`), "."},
	{"ebayimg", regexp.MustCompile(`/s-l\d+`), "/s-l1600"},
	{"etsystatic", regexp.MustCompile(`il_\d+x\d+`), "il_fullxfull"},
	{"shein", regexp.MustCompile(`_thumbnail_\d+x\d+`), ""},
	{"shopify", regexp.MustCompile(`_\d+x\d*\.`), "."},
}

// rewriteAliases lets a platform hint trigger rewrites registered under
// the CDN host marker.
var rewriteAliases = map[string]string{
	"aliexpress": "alicdn",
	"ebay":       "ebayimg",
	"etsy":       "etsystatic",
}

// NormalizeImageURL canonicalizes an image URL: protocol-relative URLs
// become https, platform thumbnail tokens are rewritten to the
// high-resolution variant and tracking parameters are removed. Returns
// "" when the input is empty or not an absolute http(s) URL. The
// function is idempotent.
func NormalizeImageURL(raw, platformHint string) string {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		return ""
	}

	if strings.HasPrefix(normalized, "//") {
		normalized = "https:" + normalized
	}

	hint := platformHint
	if alias, ok := rewriteAliases[hint]; ok {
		hint = alias
	}

	stripQuery := false
	for _, rw := range imageRewrites {
		if hint == rw.marker || strings.Contains(normalized, rw.marker) {
			normalized = rw.pattern.ReplaceAllString(normalized, rw.repl)
			if rw.marker == "alicdn" {
				stripQuery = true
			}
		}
	}

	u, err := url.Parse(normalized)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}

	if stripQuery {
		u.RawQuery = ""
	} else if u.RawQuery != "" {
		q := u.Query()
		for _, param := range trackingParams {
			q.Del(param)
		}
		for key := range q {
			if strings.HasPrefix(key, "utm_") {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// CleanText collapses runs of whitespace into single spaces and trims.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// ParseFloat parses a lenient decimal, converting a comma separator to
// a dot. Returns 0 on malformed input.
func ParseFloat(text string) float64 {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	val, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return val
}

// ParseRating extracts the first decimal number from text, accepting a
// comma separator. Returns nil when nothing numeric is present.
func ParseRating(text string) *float64 {
	match := ratingRe.FindString(text)
	if match == "" {
		return nil
	}
	val, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &val
}

// ParseNumber extracts an integer from text, ignoring grouping and any
// surrounding words ("1,234 ratings" -> 1234). Returns 0 on no match.
func ParseNumber(text string) int {
	digits := nonDigitRe.ReplaceAllString(text, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
