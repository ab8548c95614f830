// Package page wraps the rendered page handed to the extraction engine:
// the parsed document, the page's location, and a same-origin HTTP
// client used by the one strategy that fetches a JSON resource.
package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a snapshot of one rendered product page. It is read-only for
// strategies; nothing in the engine mutates it.
type Page struct {
	Doc *goquery.Document
	URL *url.URL

	client *http.Client
}

// Option configures a Page.
type Option func(*Page)

// WithHTTPClient replaces the client used for same-origin fetches.
// Tests use this to point the Shopify JSON fetch at a local server.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Page) {
		p.client = client
	}
}

// New parses the rendered HTML and the page URL. The URL must be
// absolute; it is the basis for platform detection and same-origin
// requests.
func New(html, pageURL string, opts ...Option) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("page URL %q is not absolute", pageURL)
	}

	p := &Page{
		Doc:    doc,
		URL:    u,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Hostname returns the lowercased host without port.
func (p *Page) Hostname() string {
	return strings.ToLower(p.URL.Hostname())
}

// Title returns the document's <title> text.
func (p *Page) Title() string {
	return strings.TrimSpace(p.Doc.Find("title").First().Text())
}

// FetchSameOrigin issues a GET against a path on the page's own origin
// and returns the body. Non-2xx responses are errors.
func (p *Page) FetchSameOrigin(ctx context.Context, path string) ([]byte, error) {
	target := &url.URL{Scheme: p.URL.Scheme, Host: p.URL.Host, Path: path}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("same-origin fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("same-origin fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
