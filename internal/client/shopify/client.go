package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Client talks to the Shopify Admin REST API. It paces its own requests so
// bursts of pagination stay under the shop's call budget; a 429 from upstream
// is surfaced as *RateLimitError for the caller to back off on.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	minInterval time.Duration
	mu          sync.Mutex
	nextAllowed time.Time
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify API error (%d): %s", e.Status, e.Body)
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("shopify rate limited (retry after %s)", e.RetryAfter)
}

func NewClient(httpClient *http.Client, shop, token, apiVersion string, minInterval time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if apiVersion == "" {
		apiVersion = "2024-01"
	}
	base := shop
	if !strings.Contains(base, "://") {
		base = "https://" + strings.TrimSuffix(base, ".myshopify.com") + ".myshopify.com"
	}
	base = strings.TrimRight(base, "/") + "/admin/api/" + apiVersion
	return &Client{
		baseURL:     base,
		token:       token,
		httpClient:  httpClient,
		minInterval: minInterval,
	}
}

func (c *Client) pace(ctx context.Context) error {
	if c.minInterval <= 0 {
		return nil
	}
	c.mu.Lock()
	now := time.Now()
	wait := c.nextAllowed.Sub(now)
	if wait < 0 {
		wait = 0
	}
	c.nextAllowed = now.Add(wait + c.minInterval)
	c.mu.Unlock()
	if wait == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, string, error) {
	if err := c.pace(ctx); err != nil {
		return nil, "", err
	}
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, "", &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nextPageInfo(resp.Header.Get("Link")), nil
}

func (c *Client) list(ctx context.Context, resource string, q ListQuery, extra url.Values) ([]json.RawMessage, string, error) {
	query := url.Values{}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.PageInfo != "" {
		query.Set("page_info", q.PageInfo)
	} else {
		query.Set("order", "updated_at asc")
		if q.UpdatedAtMin != nil {
			query.Set("updated_at_min", q.UpdatedAtMin.UTC().Format(time.RFC3339))
		}
		if q.UpdatedAtMax != nil {
			query.Set("updated_at_max", q.UpdatedAtMax.UTC().Format(time.RFC3339))
		}
		for key, vals := range extra {
			for _, val := range vals {
				query.Add(key, val)
			}
		}
	}
	body, next, err := c.doRequest(ctx, "/"+resource+".json", query)
	if err != nil {
		return nil, "", err
	}
	var envelope map[string][]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", fmt.Errorf("malformed %s payload: %w", resource, err)
	}
	return envelope[resource], next, nil
}

func (c *Client) ListOrders(ctx context.Context, q ListQuery) ([]Order, string, error) {
	items, next, err := c.list(ctx, "orders", q, url.Values{"status": []string{"any"}})
	if err != nil {
		return nil, "", err
	}
	out := make([]Order, 0, len(items))
	for _, raw := range items {
		var order Order
		if err := json.Unmarshal(raw, &order); err != nil {
			return nil, "", fmt.Errorf("malformed order payload: %w", err)
		}
		order.Raw = raw
		out = append(out, order)
	}
	return out, next, nil
}

func (c *Client) ListCustomers(ctx context.Context, q ListQuery) ([]Customer, string, error) {
	items, next, err := c.list(ctx, "customers", q, nil)
	if err != nil {
		return nil, "", err
	}
	out := make([]Customer, 0, len(items))
	for _, raw := range items {
		var customer Customer
		if err := json.Unmarshal(raw, &customer); err != nil {
			return nil, "", fmt.Errorf("malformed customer payload: %w", err)
		}
		customer.Raw = raw
		out = append(out, customer)
	}
	return out, next, nil
}

func (c *Client) ListProducts(ctx context.Context, q ListQuery) ([]Product, string, error) {
	items, next, err := c.list(ctx, "products", q, nil)
	if err != nil {
		return nil, "", err
	}
	out := make([]Product, 0, len(items))
	for _, raw := range items {
		var product Product
		if err := json.Unmarshal(raw, &product); err != nil {
			return nil, "", fmt.Errorf("malformed product payload: %w", err)
		}
		product.Raw = raw
		out = append(out, product)
	}
	return out, next, nil
}

// nextPageInfo extracts the page_info cursor from the rel="next" link, if any.
func nextPageInfo(linkHeader string) string {
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end < 0 || end <= start {
			continue
		}
		parsed, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		return parsed.Query().Get("page_info")
	}
	return ""
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 2 * time.Second
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}
