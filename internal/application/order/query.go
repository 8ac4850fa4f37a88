package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

func (s *Service) GetOrder(ctx context.Context, orderID string) (o *domain.Order, err error) {
	ctx, r := s.begin(ctx, useCaseOrderGet, "GetOrder",
		attribute.String("order.id", orderID),
	)
	defer func() { r.end(err) }()

	if orderID == "" {
		r.fail("INVALID_ARGUMENT")
		return nil, newValidation("order_id is required")
	}
	return s.load(ctx, r, orderID)
}

// ListCustomerOrders returns the customer's orders oldest first.
func (s *Service) ListCustomerOrders(ctx context.Context, customerID string) (orders []*domain.Order, err error) {
	ctx, r := s.begin(ctx, useCaseOrderListCustomer, "ListCustomerOrders",
		attribute.String("customer.id", customerID),
	)
	defer func() { r.end(err) }()

	if customerID == "" {
		r.fail("INVALID_ARGUMENT")
		return nil, newValidation("customer_id is required")
	}
	orders, err = s.orders.ListByCustomer(ctx, customerID)
	if err != nil {
		r.fail("INTERNAL")
		return nil, wrapRepositoryError(err)
	}
	r.with(observability.F("count", len(orders)))
	return orders, nil
}

// SalesLine is one settled order in a report.
type SalesLine struct {
	OrderID    string
	CustomerID string
	Status     domain.Status
	Settled    decimal.Decimal
}

type SalesReport struct {
	OrderCount   int
	TotalSettled decimal.Decimal
	Lines        []SalesLine
}

func (r SalesReport) Text() string {
	var b strings.Builder
	b.WriteString("--- Sales report ---\n")
	fmt.Fprintf(&b, "Settled orders: %d\n", r.OrderCount)
	fmt.Fprintf(&b, "Total settled: %s\n", r.TotalSettled.StringFixed(2))
	for _, l := range r.Lines {
		fmt.Fprintf(&b, "- %s %s %s %s\n", l.OrderID, l.CustomerID, l.Status, l.Settled.StringFixed(2))
	}
	return b.String()
}

// SalesReport sums the settled totals of every paid or fulfilled order.
// Cancelled orders are excluded even when they had been paid.
func (s *Service) SalesReport(ctx context.Context) (rep *SalesReport, err error) {
	ctx, r := s.begin(ctx, useCaseSalesReport, "SalesReport")
	defer func() { r.end(err) }()

	all, err := s.orders.ListAll(ctx)
	if err != nil {
		r.fail("INTERNAL")
		return nil, wrapRepositoryError(err)
	}

	rep = &SalesReport{TotalSettled: decimal.Zero}
	for _, o := range all {
		if !o.Settled() {
			continue
		}
		rep.OrderCount++
		rep.TotalSettled = rep.TotalSettled.Add(o.Total)
		rep.Lines = append(rep.Lines, SalesLine{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			Status:     o.Status,
			Settled:    o.Total,
		})
	}
	rep.TotalSettled = money.Round(rep.TotalSettled)
	r.with(
		observability.F("order_count", rep.OrderCount),
		observability.F("total_settled", rep.TotalSettled.StringFixed(2)),
	)
	return rep, nil
}
