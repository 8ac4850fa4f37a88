package order

import (
	"context"
	"time"

	domcatalog "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

type CancelOrderInput struct {
	OrderID string
}

type CancelOrderResult struct {
	Order     *domain.Order
	RefundDue bool
}

// CancelOrder cancels the order and puts every item back in stock. A paid
// order is left with a pending refund.
func (s *Service) CancelOrder(ctx context.Context, in CancelOrderInput) (res *CancelOrderResult, err error) {
	ctx, r := s.begin(ctx, useCaseOrderCancel, "CancelOrder",
		attribute.String("order.id", in.OrderID),
	)
	defer func() { r.end(err) }()
	r.with(observability.F("order_id", in.OrderID))

	if in.OrderID == "" {
		r.fail("INVALID_ARGUMENT")
		return nil, newValidation("order_id is required")
	}

	unlock := s.lockOrder(in.OrderID)
	defer unlock()

	o, err := s.load(ctx, r, in.OrderID)
	if err != nil {
		return nil, err
	}

	from := o.Status
	if err := o.Cancel(); err != nil {
		r.fail("FAILED_PRECONDITION")
		r.with(observability.F("order_status", string(from)))
		return nil, err
	}

	back := make([]domcatalog.Adjustment, 0, len(o.Items))
	for _, it := range o.Items {
		back = append(back, domcatalog.Adjustment{ProductID: it.ProductID, Delta: it.Quantity})
	}
	if err := s.catalog.ApplyAdjustments(ctx, back); err != nil {
		r.fail("INTERNAL")
		return nil, wrapRepositoryError(err)
	}
	if err := s.orders.Update(ctx, o); err != nil {
		// Take the returned stock out again.
		s.restock(ctx, r, o, back)
		r.fail("INTERNAL")
		return nil, wrapRepositoryError(err)
	}

	if o.RefundDue() {
		r.logger.Info("refund_pending",
			observability.F("order_id", o.ID),
			observability.F("transaction_id", o.TransactionID),
			observability.F("amount", o.Total.StringFixed(2)),
		)
	}

	s.publish(ctx, r, domain.NewOrderCancelledEvent(o))
	s.publish(ctx, r, domcatalog.NewStockAdjustedEvent(o.ID, domcatalog.ReasonOrderCancelled, back))

	r.with(
		observability.F("from_status", string(from)),
		observability.F("refund_due", o.RefundDue()),
	)
	return &CancelOrderResult{Order: o.Clone(), RefundDue: o.RefundDue()}, nil
}

type ProcessRefundInput struct {
	OrderID string
}

type ProcessRefundResult struct {
	OrderID string
	Refund  domain.RefundStatus
	Success bool
}

// ProcessRefund asks the engine to reverse a cancelled paid order's
// settlement. A failed attempt leaves the refund due for a later retry.
func (s *Service) ProcessRefund(ctx context.Context, in ProcessRefundInput) (res *ProcessRefundResult, err error) {
	ctx, r := s.begin(ctx, useCaseOrderRefund, "ProcessRefund",
		attribute.String("order.id", in.OrderID),
	)
	defer func() { r.end(err) }()
	r.with(observability.F("order_id", in.OrderID))

	if in.OrderID == "" {
		r.fail("INVALID_ARGUMENT")
		return nil, newValidation("order_id is required")
	}

	unlock := s.lockOrder(in.OrderID)
	defer unlock()

	o, err := s.load(ctx, r, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.RefundDue() {
		r.fail("FAILED_PRECONDITION")
		return nil, ErrNoRefundDue
	}

	start := time.Now()
	ok := s.engine.ProcessRefund(ctx, o.TransactionID, o.Total)
	outcome := "success"
	if !ok {
		outcome = "declined"
	}
	s.observeExternal(paymentPeer, "refund", outcome, start)

	if err := o.SettleRefund(ok); err != nil {
		r.fail("FAILED_PRECONDITION")
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		r.fail("INTERNAL")
		return nil, wrapRepositoryError(err)
	}
	if !ok {
		r.status = "REFUND_FAILED"
	}

	s.publish(ctx, r, domain.NewOrderRefundSettledEvent(o))
	r.with(observability.F("refund", string(o.Refund)))
	return &ProcessRefundResult{OrderID: o.ID, Refund: o.Refund, Success: ok}, nil
}

func (s *Service) load(ctx context.Context, r *run, orderID string) (*domain.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		err = wrapRepositoryError(err)
		if err == ErrNotFound {
			r.fail("NOT_FOUND")
		} else {
			r.fail("INTERNAL")
		}
		return nil, err
	}
	return o, nil
}
