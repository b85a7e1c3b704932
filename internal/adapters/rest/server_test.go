package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cantina/internal/catalog"
	"cantina/internal/orders"
	"cantina/internal/reliability"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	products := catalog.NewProductMemoryStore(catalog.SeedProducts()...)
	categories := catalog.NewCategoryMemoryStore(catalog.SeedCategories()...)
	store := orders.NewStore()
	breaker := reliability.NewCircuitBreaker(reliability.BreakerConfig{
		Name:             "catalog",
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	})

	srv := NewServer(Options{
		Products:   products,
		Categories: categories,
		Menu:       catalog.NewMenuService(products, categories),
		Workflow:   orders.NewWorkflow(products, store, orders.WorkflowOptions{Logf: t.Logf}),
		Breakers:   map[string]*reliability.CircuitBreaker{"catalog": breaker},
		Logf:       t.Logf,
	})
	return srv, srv.Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	rr := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestProductCRUD(t *testing.T) {
	_, h := newTestServer(t)

	rr := doJSON(t, h, http.MethodGet, "/api/v1/products", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	if got := decodeBody[[]catalog.Product](t, rr); len(got) != 8 {
		t.Fatalf("expected 8 products, got %d", len(got))
	}

	rr = doJSON(t, h, http.MethodPost, "/api/v1/products", map[string]any{
		"name":        "Flat White",
		"price":       "38.00",
		"category_id": 1,
		"available":   true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeBody[catalog.Product](t, rr)
	if created.ID != 9 {
		t.Fatalf("created id = %d, want 9", created.ID)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/products/9", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}

	created.Description = "Silky microfoam"
	rr = doJSON(t, h, http.MethodPut, "/api/v1/products/9", created)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodDelete, "/api/v1/products/9", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/api/v1/products/9", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rr.Code)
	}
}

func TestProductValidationAnd404(t *testing.T) {
	_, h := newTestServer(t)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/products", map[string]any{
		"name":        "",
		"price":       "10.00",
		"category_id": 1,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid product status = %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/products/999", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing product status = %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodDelete, "/api/v1/products/999", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete missing status = %d", rr.Code)
	}
}

func TestProductQueryFilters(t *testing.T) {
	_, h := newTestServer(t)

	rr := doJSON(t, h, http.MethodGet, "/api/v1/products?category_id=1", nil)
	if got := decodeBody[[]catalog.Product](t, rr); len(got) != 3 {
		t.Fatalf("expected 3 coffee products, got %d", len(got))
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/products?available=true", nil)
	if got := decodeBody[[]catalog.Product](t, rr); len(got) != 7 {
		t.Fatalf("expected 7 available products, got %d", len(got))
	}
}

func TestCategoryEndpoints(t *testing.T) {
	_, h := newTestServer(t)

	rr := doJSON(t, h, http.MethodGet, "/api/v1/categories?active=true", nil)
	if got := decodeBody[[]catalog.Category](t, rr); len(got) != 5 {
		t.Fatalf("expected 5 active categories, got %d", len(got))
	}

	rr = doJSON(t, h, http.MethodPost, "/api/v1/categories", map[string]any{
		"name":   "Breakfast",
		"kind":   "breakfast",
		"active": true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodPost, "/api/v1/categories", map[string]any{"name": ""})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty name status = %d", rr.Code)
	}
}

func TestMenuEndpoints(t *testing.T) {
	_, h := newTestServer(t)

	rr := doJSON(t, h, http.MethodGet, "/api/v1/menu", nil)
	if got := decodeBody[[]catalog.MenuSection](t, rr); len(got) != 5 {
		t.Fatalf("expected 5 menu sections, got %d", len(got))
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/menu/search?q=latte", nil)
	if got := decodeBody[[]catalog.Product](t, rr); len(got) != 1 {
		t.Fatalf("expected 1 search hit, got %d", len(got))
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/menu/filter?min_price=30&max_price=45", nil)
	if got := decodeBody[[]catalog.Product](t, rr); len(got) != 3 {
		t.Fatalf("expected 3 products in band, got %d", len(got))
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/menu/filter?min_price=bogus", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad price status = %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/menu/statistics", nil)
	stats := decodeBody[catalog.Stats](t, rr)
	if stats.TotalProducts != 8 {
		t.Fatalf("stats products = %d, want 8", stats.TotalProducts)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/menu/kind/hot_drinks", nil)
	if got := decodeBody[[]catalog.Product](t, rr); len(got) != 3 {
		t.Fatalf("expected 3 hot drinks, got %d", len(got))
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/menu/products/2", nil)
	detail := decodeBody[catalog.ProductDetail](t, rr)
	if detail.Product.Name != "Cappuccino" || detail.Category == nil {
		t.Fatalf("unexpected detail %+v", detail)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/menu/products/2/recommendations", nil)
	if got := decodeBody[[]catalog.Product](t, rr); len(got) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(got))
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/menu/category/999", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing category status = %d", rr.Code)
	}
}

func TestOrderLifecycle(t *testing.T) {
	_, h := newTestServer(t)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/orders", submitOrderRequest{
		Client: "ana",
		Items:  []orders.ItemRequest{{ProductID: 1, Quantity: 2}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit status = %d: %s", rr.Code, rr.Body.String())
	}
	res := decodeBody[orders.Result](t, rr)
	if !res.Success || res.Order == nil || res.Order.Status != orders.StatusConfirmed {
		t.Fatalf("unexpected result %+v", res)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/orders", nil)
	if got := decodeBody[[]orders.Order](t, rr); len(got) != 1 {
		t.Fatalf("expected 1 order, got %d", len(got))
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/orders/reservations", nil)
	ledger := decodeBody[map[string]int](t, rr)
	if ledger["1"] != 2 {
		t.Fatalf("unexpected ledger %v", ledger)
	}

	rr = doJSON(t, h, http.MethodDelete, "/api/v1/orders/1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("cancel status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/orders/999", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing order status = %d", rr.Code)
	}
}

func TestSubmitOrderValidationStatus(t *testing.T) {
	_, h := newTestServer(t)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/orders", submitOrderRequest{
		Client: "ana",
		Items:  []orders.ItemRequest{{ProductID: 999, Quantity: 1}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("validation status = %d: %s", rr.Code, rr.Body.String())
	}
	res := decodeBody[orders.Result](t, rr)
	if res.Success {
		t.Fatal("result marked success")
	}
	if len(res.Saga.Steps) != 4 {
		t.Fatalf("expected saga snapshot in error payload, got %+v", res.Saga)
	}
}

func TestBreakerEndpoints(t *testing.T) {
	srv, h := newTestServer(t)

	// Trip the registered breaker.
	breaker := srv.breakers["catalog"]
	for i := 0; i < 3; i++ {
		_ = breaker.Do(func() error { return errTest })
	}
	if breaker.State() != reliability.BreakerOpen {
		t.Fatalf("breaker state = %s, want open", breaker.State())
	}

	rr := doJSON(t, h, http.MethodGet, "/api/v1/circuit-breakers", nil)
	stats := decodeBody[[]reliability.BreakerStats](t, rr)
	if len(stats) != 1 || stats[0].State != reliability.BreakerOpen {
		t.Fatalf("unexpected stats %+v", stats)
	}

	rr = doJSON(t, h, http.MethodPost, "/api/v1/circuit-breakers/catalog/reset", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rr.Code)
	}
	if breaker.State() != reliability.BreakerClosed {
		t.Fatalf("breaker state after reset = %s", breaker.State())
	}

	rr = doJSON(t, h, http.MethodPost, "/api/v1/circuit-breakers/nope/reset", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown breaker status = %d", rr.Code)
	}
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "induced failure" }
