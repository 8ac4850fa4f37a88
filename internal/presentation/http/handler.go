package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	appOrder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	domainCart "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	domainCatalog "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	domainOrder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

// ProductCatalog is the read side of the catalog the API exposes.
type ProductCatalog interface {
	FindByID(ctx context.Context, id string) (*domainCatalog.Product, error)
	ListAll(ctx context.Context) ([]*domainCatalog.Product, error)
	FindByNameSubstring(ctx context.Context, term string) ([]*domainCatalog.Product, error)
}

type Handler struct {
	orders   *appOrder.Service
	products ProductCatalog
	log      observability.Logger
	tel      observability.Observability
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"
	headerIdempotencyKey = "Idempotency-Key"
)

func NewHandler(orders *appOrder.Service, products ProductCatalog, logger observability.Logger,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = tel.Logger()
	}
	return &Handler{
		orders:   orders,
		products: products,
		log:      baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:      tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	h.muxHandle(mux, "GET /products", h.handleListProducts)
	h.muxHandle(mux, "GET /products/{id}", h.handleGetProduct)
	h.muxHandle(mux, "POST /orders", h.handleCreateOrder)
	h.muxHandle(mux, "GET /orders/{id}", h.handleGetOrder)
	h.muxHandle(mux, "GET /orders/{id}/invoice", h.handleInvoice)
	h.muxHandle(mux, "POST /orders/{id}/payment", h.handleProcessPayment)
	h.muxHandle(mux, "POST /orders/{id}/cancel", h.handleCancelOrder)
	h.muxHandle(mux, "POST /orders/{id}/refund", h.handleProcessRefund)
	h.muxHandle(mux, "POST /orders/{id}/fulfillment", h.handleAdvanceFulfillment)
	h.muxHandle(mux, "GET /customers/{id}/orders", h.handleListCustomerOrders)
	h.muxHandle(mux, "GET /reports/sales", h.handleSalesReport)
	h.muxHandle(mux, "GET /health", h.handleHealth)

	return mux
}

// muxHandle registers pattern behind Trace → Request Logger → Metrics →
// Access Log. The pattern doubles as the low-cardinality route label.
func (h *Handler) muxHandle(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			func(r *http.Request) string { return r.Header.Get(headerTenantID) },
		)(
			h.withHTTPMetrics(
				h.withAccessLog(handler),
			),
		),
	)
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), pattern)))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, appOrder.ErrNotFound),
		errors.Is(err, domainCatalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, appOrder.ErrValidation),
		errors.Is(err, appOrder.ErrEmptyCart),
		errors.Is(err, domainCart.ErrInvalidQuantity),
		errors.Is(err, domainCart.ErrInvalidProduct):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domainCatalog.ErrInsufficientStock),
		errors.Is(err, appOrder.ErrNotCancellable),
		errors.Is(err, appOrder.ErrPaymentNotEligible),
		errors.Is(err, appOrder.ErrNoRefundDue),
		errors.Is(err, domainOrder.ErrInvalidStateForInvoice):
		writeError(w, http.StatusConflict, err)
	default:
		logctx.FromOr(r.Context(), h.log).Error("http_internal_error",
			observability.Err(err),
		)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
