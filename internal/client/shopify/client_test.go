package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(serverURL string) *Client {
	return &Client{
		baseURL:    serverURL + "/admin/api/2024-01",
		token:      "shpat_test_token",
		httpClient: http.DefaultClient,
	}
}

func TestListCustomersSendsTokenAndWindow(t *testing.T) {
	var gotToken, gotMin, gotOrder string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Shopify-Access-Token")
		gotMin = r.URL.Query().Get("updated_at_min")
		gotOrder = r.URL.Query().Get("order")
		fmt.Fprint(w, `{"customers":[{"id":1,"email":"a@example.com"}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	since := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	customers, next, err := client.ListCustomers(context.Background(), ListQuery{Limit: 50, UpdatedAtMin: &since})
	if err != nil {
		t.Fatalf("ListCustomers: %v", err)
	}
	if gotToken != "shpat_test_token" {
		t.Fatalf("missing access token header, got %q", gotToken)
	}
	if gotMin != "2025-07-01T00:00:00Z" {
		t.Fatalf("unexpected updated_at_min: %q", gotMin)
	}
	if gotOrder != "updated_at asc" {
		t.Fatalf("unexpected order param: %q", gotOrder)
	}
	if len(customers) != 1 || customers[0].ID != 1 {
		t.Fatalf("unexpected customers: %+v", customers)
	}
	if len(customers[0].Raw) == 0 {
		t.Fatalf("raw payload should be carried along")
	}
	if next != "" {
		t.Fatalf("expected no next page, got %q", next)
	}
}

func TestListOrdersRequestsAnyStatus(t *testing.T) {
	var gotStatus string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStatus = r.URL.Query().Get("status")
		fmt.Fprint(w, `{"orders":[]}`)
	}))
	defer server.Close()

	if _, _, err := newTestClient(server.URL).ListOrders(context.Background(), ListQuery{Limit: 10}); err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if gotStatus != "any" {
		t.Fatalf("orders list should request status=any, got %q", gotStatus)
	}
}

func TestListFollowsLinkHeaderPagination(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)
		if r.URL.Query().Get("page_info") == "" {
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/admin/api/2024-01/products.json?page_info=abc123&limit=2>; rel="next"`, r.Host))
			fmt.Fprint(w, `{"products":[{"id":1},{"id":2}]}`)
			return
		}
		fmt.Fprint(w, `{"products":[{"id":3}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, next, err := client.ListProducts(context.Background(), ListQuery{Limit: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if next != "abc123" {
		t.Fatalf("expected next cursor abc123, got %q", next)
	}

	products, next, err := client.ListProducts(context.Background(), ListQuery{Limit: 2, PageInfo: next})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if next != "" {
		t.Fatalf("expected pagination to end, got %q", next)
	}
	if len(products) != 1 || products[0].ID != 3 {
		t.Fatalf("unexpected second page: %+v", products)
	}
	// The page_info request must not repeat the filter params.
	secondQuery := requests[1]
	for _, forbidden := range []string{"updated_at_min", "order="} {
		if strings.Contains(secondQuery, forbidden) {
			t.Fatalf("page_info request carries %s: %s", forbidden, secondQuery)
		}
	}
}

func TestRateLimitSurfacedWithRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, _, err := newTestClient(server.URL).ListCustomers(context.Background(), ListQuery{Limit: 10})
	var rateLimited *RateLimitError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rateLimited.RetryAfter != 3*time.Second {
		t.Fatalf("expected 3s retry-after, got %s", rateLimited.RetryAfter)
	}
}

func TestServerErrorSurfacedAsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, _, err := newTestClient(server.URL).ListCustomers(context.Background(), ListQuery{Limit: 10})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", apiErr.Status)
	}
}

func TestNewClientBuildsBaseURL(t *testing.T) {
	cases := []struct {
		shop string
		want string
	}{
		{"acme", "https://acme.myshopify.com/admin/api/2024-01"},
		{"acme.myshopify.com", "https://acme.myshopify.com/admin/api/2024-01"},
		{"https://acme.myshopify.com", "https://acme.myshopify.com/admin/api/2024-01"},
	}
	for _, tc := range cases {
		client := NewClient(nil, tc.shop, "token", "2024-01", 0)
		if client.baseURL != tc.want {
			t.Fatalf("shop %q: got %q, want %q", tc.shop, client.baseURL, tc.want)
		}
	}
}

func TestNextPageInfo(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{``, ""},
		{`<https://acme.myshopify.com/admin/api/2024-01/orders.json?page_info=xyz>; rel="next"`, "xyz"},
		{`<https://acme.myshopify.com/admin/api/2024-01/orders.json?page_info=prev1>; rel="previous", <https://acme.myshopify.com/admin/api/2024-01/orders.json?page_info=next1>; rel="next"`, "next1"},
		{`<https://acme.myshopify.com/admin/api/2024-01/orders.json?page_info=prev1>; rel="previous"`, ""},
	}
	for _, tc := range cases {
		if got := nextPageInfo(tc.header); got != tc.want {
			t.Fatalf("header %q: got %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		header string
		want   time.Duration
	}{
		{"", 2 * time.Second},
		{"garbage", 2 * time.Second},
		{"1.5", 1500 * time.Millisecond},
		{"10", 10 * time.Second},
	}
	for _, tc := range cases {
		if got := parseRetryAfter(tc.header); got != tc.want {
			t.Fatalf("header %q: got %s, want %s", tc.header, got, tc.want)
		}
	}
}

func TestPaceSpacesRequests(t *testing.T) {
	client := &Client{minInterval: 30 * time.Millisecond}
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := client.pace(context.Background()); err != nil {
			t.Fatalf("pace: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Fatalf("three paced calls finished too fast: %s", elapsed)
	}
}
