package order

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

type AdvanceFulfillmentInput struct {
	OrderID string
	Target  domain.Status
}

// AdvanceFulfillmentResult mirrors TransitionTo: a refused move is reported
// with Transitioned=false and the status unchanged.
type AdvanceFulfillmentResult struct {
	OrderID      string
	From         domain.Status
	Status       domain.Status
	Transitioned bool
}

// AdvanceFulfillment moves a paid order along picking, shipping and delivery.
func (s *Service) AdvanceFulfillment(ctx context.Context, in AdvanceFulfillmentInput) (res *AdvanceFulfillmentResult, err error) {
	ctx, r := s.begin(ctx, useCaseOrderFulfillment, "AdvanceFulfillment",
		attribute.String("order.id", in.OrderID),
		attribute.String("order.target_status", string(in.Target)),
	)
	defer func() { r.end(err) }()
	r.with(
		observability.F("order_id", in.OrderID),
		observability.F("target_status", string(in.Target)),
	)

	if in.OrderID == "" {
		r.fail("INVALID_ARGUMENT")
		return nil, newValidation("order_id is required")
	}
	switch in.Target {
	case domain.StatusPickingPacking, domain.StatusShipped, domain.StatusDelivered:
	default:
		r.fail("INVALID_ARGUMENT")
		return nil, newValidation(fmt.Sprintf("%q is not a fulfillment status", in.Target))
	}

	unlock := s.lockOrder(in.OrderID)
	defer unlock()

	o, err := s.load(ctx, r, in.OrderID)
	if err != nil {
		return nil, err
	}

	from := o.Status
	res = &AdvanceFulfillmentResult{OrderID: o.ID, From: from}
	if !o.TransitionTo(in.Target) {
		r.status = "TRANSITION_REFUSED"
		res.Status = o.Status
		return res, nil
	}
	if err := s.orders.Update(ctx, o); err != nil {
		r.fail("INTERNAL")
		return nil, wrapRepositoryError(err)
	}

	s.publish(ctx, r, domain.NewOrderStatusChangedEvent(o, from))
	res.Status = o.Status
	res.Transitioned = true
	return res, nil
}
