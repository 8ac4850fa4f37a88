package order

import (
	"context"
	"strings"
	"sync"
	"time"

	domcatalog "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService   = "order-service"
	spanPrefix     = "UC."
	publishPeer    = "outbox"
	paymentPeer    = "payment-gateway"
	publishTimeout = 300 * time.Millisecond

	useCaseOrderCreate       = "order.create"
	useCaseOrderPay          = "order.pay"
	useCaseOrderCancel       = "order.cancel"
	useCaseOrderRefund       = "order.refund"
	useCaseOrderFulfillment  = "order.fulfillment"
	useCaseOrderGet          = "order.get"
	useCaseOrderListCustomer = "order.list_customer"
	useCaseSalesReport       = "order.sales_report"
)

// Dependencies wires the orchestrator. Guard defaults to lenient; a zero
// Shipping rate falls back to the default rate.
type Dependencies struct {
	Catalog   domcatalog.Repository
	Orders    domain.Repository
	Engine    Settlement
	IDs       IDGenerator
	Publisher domoutbox.Publisher
	Telemetry observability.Observability
	Shipping  domain.ShippingRate
	Guard     domain.PaymentGuard
}

// Service orchestrates checkout: order creation against the catalog, payment,
// cancellation with restock, refunds and fulfillment. Payment, cancellation,
// refund and fulfillment on one order run one at a time.
type Service struct {
	catalog   domcatalog.Repository
	orders    domain.Repository
	engine    Settlement
	ids       IDGenerator
	publisher domoutbox.Publisher
	shipping  domain.ShippingRate
	guard     domain.PaymentGuard

	locks    sync.Map // order id -> *sync.Mutex
	attempts sync.Map // order id + attempt key -> ProcessPaymentResult

	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	payAttempts  observability.Counter   // payment_attempts_total{method,result}
	settled      observability.Counter   // payment_settled_amount_total{method}
	stockRejects observability.Counter   // stock_rejections_total{reason}
}

func NewService(deps Dependencies) *Service {
	tel := deps.Telemetry
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()

	shipping := deps.Shipping
	if shipping.UnitRate.IsZero() && shipping.Cap.IsZero() {
		shipping = domain.DefaultShippingRate()
	}
	guard := deps.Guard
	if !guard.Valid() {
		guard = domain.GuardLenient
	}

	return &Service{
		catalog:      deps.Catalog,
		orders:       deps.Orders,
		engine:       deps.Engine,
		ids:          deps.IDs,
		publisher:    deps.Publisher,
		shipping:     shipping,
		guard:        guard,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", orderService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
		payAttempts:  metrics.Counter(observability.MPaymentAttempts),
		settled:      metrics.Counter(observability.MSettledAmount),
		stockRejects: metrics.Counter(observability.MStockRejections),
	}
}

// lockOrder serialises mutations of one order. Locks are kept for the life of
// the process.
func (s *Service) lockOrder(orderID string) func() {
	v, _ := s.locks.LoadOrStore(orderID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// run carries the per-use-case span, RED metrics and the closing
// use_case_done record.
type run struct {
	s       *Service
	useCase string
	ctx     context.Context
	span    trace.Span
	logger  observability.Logger
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
}

func (s *Service) begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *run) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := s.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	ctx, logger := logctx.Extend(ctx, s.log, observability.F("use_case", useCase))
	return ctx, &run{
		s:       s,
		useCase: useCase,
		ctx:     ctx,
		span:    span,
		logger:  logger,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
	}
}

func (r *run) fail(status string) {
	r.outcome, r.status = "error", status
}

func (r *run) with(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

func (r *run) end(err error) {
	lat := time.Since(r.start).Seconds()

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	r.s.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.s.durHistogram.Observe(lat,
		observability.L("use_case", r.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.Err(err))
	}
	r.logger.Info("use_case_done", fields...)
}

// publish is best effort: a failed publish is recorded but never fails the
// use case.
func (s *Service) publish(ctx context.Context, r *run, event domoutbox.Event) {
	if s.publisher == nil || event == nil {
		return
	}
	endpoint := event.EventName()
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	start := time.Now()
	outcome := "success"

	err := s.publisher.Publish(pubCtx, event)
	if err != nil {
		outcome = "error"
	} else if pubCtx.Err() != nil {
		outcome = "canceled"
		err = pubCtx.Err()
	}
	cancel()

	s.observeExternal(publishPeer, endpoint, outcome, start)
	if err != nil {
		if r.span != nil {
			r.span.RecordError(err)
		}
		r.logger.Warn("event_publish_failed",
			observability.F("event", endpoint),
			observability.Err(err),
		)
		r.with(observability.F("event_publish_error", err.Error()))
	}
}

func (s *Service) observeExternal(peer, endpoint, outcome string, start time.Time) {
	s.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	s.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}

// shortID is the first n hex digits of a fresh id.
func (s *Service) shortID(n int) string {
	hex := strings.ReplaceAll(s.ids.NewID(), "-", "")
	if len(hex) > n {
		return hex[:n]
	}
	return hex
}
