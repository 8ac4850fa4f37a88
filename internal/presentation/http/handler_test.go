package httppresentation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appOrder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability"
	httppresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type api struct {
	srv    *httptest.Server
	reg    *prometheus.Registry
	policy *payment.FixedPolicy
}

func newAPI(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()

	products := memory.NewCatalogRepository()
	for _, p := range []struct {
		id, name, price string
		stock           int
	}{
		{"p-laptop", "Laptop Pro", "1000.00", 3},
		{"p-mouse", "Wireless Mouse", "50.00", 10},
	} {
		prod, err := catalog.NewProduct(p.id, p.name, "", money.MustParse(p.price), p.stock, "electronics")
		require.NoError(t, err)
		require.NoError(t, products.Add(ctx, prod))
	}

	policy := payment.ApprovingPolicy()
	engine, err := payment.NewEngine(payment.DefaultInterestPercent, payment.DefaultDiscountPercent, policy)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	tel := infraobs.WithPrometheus(reg, "", nil, nil)
	svc := appOrder.NewService(appOrder.Dependencies{
		Catalog:   products,
		Orders:    memory.NewOrderRepository(),
		Engine:    engine,
		IDs:       id.NewUUIDGenerator(),
		Telemetry: tel,
	})

	srv := httptest.NewServer(httppresentation.NewHandler(svc, products, nil, tel).Router())
	t.Cleanup(srv.Close)
	return &api{srv: srv, reg: reg, policy: policy}
}

func (a *api) do(t *testing.T, method, path, body string, headers ...string) (*http.Response, map[string]any) {
	t.Helper()
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, a.srv.URL+path, nil)
	} else {
		req, err = http.NewRequest(method, a.srv.URL+path, strings.NewReader(body))
	}
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var raw any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
		if m, ok := raw.(map[string]any); ok {
			out = m
		} else {
			out = map[string]any{"list": raw}
		}
	}
	return resp, out
}

func (a *api) createOrder(t *testing.T, method string) string {
	t.Helper()
	resp, body := a.do(t, http.MethodPost, "/orders", `{
		"customer_id": "cust-1",
		"items": [{"product_id": "p-laptop", "quantity": 1}, {"product_id": "p-mouse", "quantity": 2}],
		"shipping_address": {"city": "Porto"},
		"payment_method": "`+method+`"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func TestProducts(t *testing.T) {
	a := newAPI(t)

	resp, body := a.do(t, http.MethodGet, "/products?q=MOUSE", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := body["list"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "p-mouse", list[0].(map[string]any)["id"])

	resp, body = a.do(t, http.MethodGet, "/products/p-laptop", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 1000.0, body["price"], 1e-9)

	resp, _ = a.do(t, http.MethodGet, "/products/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCheckoutFlow(t *testing.T) {
	a := newAPI(t)
	orderID := a.createOrder(t, "credit_card")

	resp, body := a.do(t, http.MethodGet, "/orders/"+orderID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])
	assert.InDelta(t, 1115.0, body["total"], 1e-9)
	assert.Nil(t, body["paid_at"])

	resp, _ = a.do(t, http.MethodGet, "/orders/"+orderID+"/invoice", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = a.do(t, http.MethodPost, "/orders/"+orderID+"/payment", `{"installment_count": 3, "card_number": "4111111111111111"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "paid", body["status"])
	assert.InDelta(t, 3, body["installment_count"], 1e-9)

	resp, _ = a.do(t, http.MethodGet, "/orders/"+orderID+"/invoice", "", "Accept", "text/plain")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = a.do(t, http.MethodGet, "/reports/sales", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 1, body["order_count"], 1e-9)

	resp, body = a.do(t, http.MethodPost, "/orders/"+orderID+"/cancel", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["refund_due"])
	assert.Equal(t, "cancelled", body["status"])

	resp, body = a.do(t, http.MethodPost, "/orders/"+orderID+"/refund", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "refunded", body["refund_status"])

	resp, body = a.do(t, http.MethodGet, "/products/p-laptop", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 3, body["stock"], 1e-9)
}

func TestCreateOrder_Errors(t *testing.T) {
	a := newAPI(t)

	resp, _ := a.do(t, http.MethodPost, "/orders", `{"customer_id": "c", "items": [], "payment_method": "credit_card"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = a.do(t, http.MethodPost, "/orders", `{"customer_id": "c", "items": [{"product_id": "p-laptop", "quantity": 4}], "payment_method": "credit_card"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = a.do(t, http.MethodPost, "/orders", `{"customer_id": "c", "items": [{"product_id": "p-ghost", "quantity": 1}], "payment_method": "credit_card"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = a.do(t, http.MethodPost, "/orders", `{"unknown": true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProcessPayment_DeclinedIsReportedInBody(t *testing.T) {
	a := newAPI(t)
	orderID := a.createOrder(t, "instant_transfer")
	a.policy.Set(false, true, true)

	resp, body := a.do(t, http.MethodPost, "/orders/"+orderID+"/payment", "", "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "payment_failed", body["status"])
	assert.Equal(t, payment.MsgFraudSuspected, body["message"])

	resp, body = a.do(t, http.MethodPost, "/orders/"+orderID+"/payment", "", "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["replayed"])
}

func TestFulfillmentAndCustomerOrders(t *testing.T) {
	a := newAPI(t)
	orderID := a.createOrder(t, "credit_card")

	resp, body := a.do(t, http.MethodPost, "/orders/"+orderID+"/fulfillment", `{"status": "shipped"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, false, body["transitioned"])

	resp, _ = a.do(t, http.MethodPost, "/orders/"+orderID+"/fulfillment", `{"status": "cancelled"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = a.do(t, http.MethodPost, "/orders/"+orderID+"/payment", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = a.do(t, http.MethodPost, "/orders/"+orderID+"/fulfillment", `{"status": "picking_packing"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["transitioned"])

	resp, body = a.do(t, http.MethodGet, "/customers/cust-1/orders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["list"], 1)
}

func TestMiddleware_RequestIDAndMetrics(t *testing.T) {
	a := newAPI(t)

	resp, _ := a.do(t, http.MethodGet, "/health", "", "X-Request-ID", "req-42")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))

	resp, _ = a.do(t, http.MethodGet, "/health", "")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	n, err := testutil.GatherAndCount(a.reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "both calls share one route label set")
}
