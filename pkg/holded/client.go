// Package holded provides a client for the Holded invoicing API, covering
// the product catalog listing and the price/stock update calls the sync
// job needs.
package holded

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// OfferTag is appended to a product's tags when a price drop is applied.
const OfferTag = "oferta"

// Product is one catalog product as returned by the products listing.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Barcode  string          `json:"barcode,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Stock    float64         `json:"stock"`
	Tags     []string        `json:"tags,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Variants []Variant       `json:"variants,omitempty"`
}

// Variant is a product variant with its own identifiers and figures.
type Variant struct {
	ID      string          `json:"id"`
	SKU     string          `json:"sku"`
	Barcode string          `json:"barcode,omitempty"`
	Price   decimal.Decimal `json:"price"`
	Stock   float64         `json:"stock"`
}

// StockMovement is an additive stock adjustment: Units is a signed delta
// the warehouse figure is moved by, never an absolute target.
type StockMovement struct {
	ProductID   string `json:"-"`
	VariantID   string `json:"variantId,omitempty"`
	WarehouseID string `json:"warehouseId,omitempty"`
	Units       int    `json:"units"`
}

// Client defines the Holded operations used by the sync job. Update calls
// are issued exactly once; transient failures surface to the caller.
type Client interface {
	// ListProducts fetches the full catalog snapshot, paging through the
	// products endpoint.
	ListProducts(ctx context.Context) ([]Product, error)
	// GetProduct fetches a single product by internal id.
	GetProduct(ctx context.Context, productID string) (*Product, error)
	// UpdatePrice sets a product's price, or a single variant's when
	// variantID is non-empty. With addOfferTag the product's existing tags
	// are preserved and the offer tag appended once; tags live on the
	// parent product even for variant updates.
	UpdatePrice(ctx context.Context, productID, variantID string, price decimal.Decimal, addOfferTag bool) error
	// UpdateStock posts an additive stock movement.
	UpdateStock(ctx context.Context, m StockMovement) error
	// TestConnection verifies the API key against the products endpoint.
	TestConnection(ctx context.Context) error
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Holded API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.holded.com/api/invoicing/v1",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(4, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const perPage = 100

func (c *httpClient) ListProducts(ctx context.Context) ([]Product, error) {
	var all []Product
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/products?page=%d&perpage=%d", c.baseURL, page, perPage)
		body, err := c.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "holded: list products page %d", page)
		}

		var products []Product
		if err := json.Unmarshal(body, &products); err != nil {
			return nil, eris.Wrapf(err, "holded: unmarshal products page %d", page)
		}
		if len(products) == 0 {
			break
		}
		all = append(all, products...)
		if len(products) < perPage {
			break
		}
	}
	return all, nil
}

func (c *httpClient) GetProduct(ctx context.Context, productID string) (*Product, error) {
	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/products/"+productID, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "holded: get product %s", productID)
	}
	var p Product
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, eris.Wrap(err, "holded: unmarshal product")
	}
	return &p, nil
}

func (c *httpClient) UpdatePrice(ctx context.Context, productID, variantID string, price decimal.Decimal, addOfferTag bool) error {
	if variantID != "" {
		body, err := json.Marshal(map[string]any{"price": price})
		if err != nil {
			return eris.Wrap(err, "holded: marshal price update")
		}
		url := c.baseURL + "/products/" + productID + "/variants/" + variantID
		if _, err := c.do(ctx, http.MethodPut, url, body); err != nil {
			return eris.Wrapf(err, "holded: update price for %s variant %s", productID, variantID)
		}
		if addOfferTag {
			return c.tagOffer(ctx, productID)
		}
		return nil
	}

	payload := map[string]any{"price": price}
	if addOfferTag {
		payload["tags"] = c.mergedOfferTags(ctx, productID)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "holded: marshal price update")
	}
	if _, err := c.do(ctx, http.MethodPut, c.baseURL+"/products/"+productID, body); err != nil {
		return eris.Wrapf(err, "holded: update price for %s", productID)
	}
	return nil
}

// tagOffer writes the merged tag list to the parent product.
func (c *httpClient) tagOffer(ctx context.Context, productID string) error {
	body, err := json.Marshal(map[string]any{"tags": c.mergedOfferTags(ctx, productID)})
	if err != nil {
		return eris.Wrap(err, "holded: marshal tag update")
	}
	if _, err := c.do(ctx, http.MethodPut, c.baseURL+"/products/"+productID, body); err != nil {
		return eris.Wrapf(err, "holded: tag product %s", productID)
	}
	return nil
}

// mergedOfferTags preserves existing tags; a product already tagged stays
// tagged once.
func (c *httpClient) mergedOfferTags(ctx context.Context, productID string) []string {
	tags := []string{OfferTag}
	if current, err := c.GetProduct(ctx, productID); err == nil {
		tags = appendOfferTag(current.Tags)
	}
	return tags
}

func (c *httpClient) UpdateStock(ctx context.Context, m StockMovement) error {
	body, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "holded: marshal stock movement")
	}
	if _, err := c.do(ctx, http.MethodPost, c.baseURL+"/products/"+m.ProductID+"/stock", body); err != nil {
		return eris.Wrapf(err, "holded: update stock for %s", m.ProductID)
	}
	return nil
}

func (c *httpClient) TestConnection(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, c.baseURL+"/products?page=1&perpage=1", nil); err != nil {
		return eris.Wrap(err, "holded: connection test")
	}
	return nil
}

// do performs one rate-limited request and returns the response body.
// There is deliberately no retry here: update calls must be applied at
// most once per run.
func (c *httpClient) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func appendOfferTag(tags []string) []string {
	for _, t := range tags {
		if strings.EqualFold(t, OfferTag) {
			return tags
		}
	}
	return append(tags, OfferTag)
}
