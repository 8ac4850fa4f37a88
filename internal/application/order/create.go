package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	domcatalog "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

type CreateOrderInput struct {
	CustomerID      string
	Cart            *cart.Cart
	ShippingAddress map[string]string
	PaymentMethod   payment.Method
}

type CreateOrderResult struct {
	Order *domain.Order
}

// CreateOrder turns a cart into a pending order. Cart lines are only a hint:
// every product is resolved again and the whole stock decrement is applied as
// one batch, so a rejected order leaves the catalog untouched.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (res *CreateOrderResult, err error) {
	ctx, r := s.begin(ctx, useCaseOrderCreate, "CreateOrder",
		attribute.String("customer.id", in.CustomerID),
	)
	defer func() { r.end(err) }()

	if in.CustomerID == "" {
		r.fail("INVALID_ARGUMENT")
		return nil, newValidation("customer_id is required")
	}
	if !in.PaymentMethod.Supported() {
		r.fail("INVALID_ARGUMENT")
		return nil, newValidation(fmt.Sprintf("unsupported payment method %q", in.PaymentMethod))
	}
	if in.Cart == nil || in.Cart.IsEmpty() {
		r.fail("EMPTY_CART")
		return nil, ErrEmptyCart
	}

	lines := in.Cart.Lines()
	items := make([]domain.Item, 0, len(lines))
	adjustments := make([]domcatalog.Adjustment, 0, len(lines))
	for _, line := range lines {
		product, err := s.resolve(ctx, r, in.CustomerID, line)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.Item{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
		})
		adjustments = append(adjustments, domcatalog.Adjustment{ProductID: product.ID, Delta: -line.Quantity})
	}

	o, err := domain.New(s.ids.NewID(), in.CustomerID, items, in.ShippingAddress, in.PaymentMethod, s.shipping)
	if err != nil {
		r.fail("INVALID_ARGUMENT")
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	r.span.SetAttributes(attribute.String("order.id", o.ID))
	r.with(observability.F("order_id", o.ID))

	if err := s.catalog.ApplyAdjustments(ctx, adjustments); err != nil {
		r.logger.Warn("stock_batch_rejected",
			observability.F("order_id", o.ID),
			observability.Err(err),
		)
		reason := domcatalog.FailureReason(err)
		s.stockRejects.Add(1, observability.L("reason", reason))
		switch {
		case errors.Is(err, domcatalog.ErrNegativeStock):
			r.fail("INSUFFICIENT_STOCK")
			return nil, fmt.Errorf("%w: %w", ErrInsufficientStock, err)
		case errors.Is(err, domcatalog.ErrNotFound):
			r.fail("NOT_FOUND")
			return nil, err
		default:
			r.fail("INTERNAL")
			return nil, fmt.Errorf("%w: %w", ErrRepository, err)
		}
	}

	if err := s.orders.Save(ctx, o); err != nil {
		s.restock(ctx, r, o, adjustments)
		r.fail("INTERNAL")
		return nil, wrapRepositoryError(err)
	}

	in.Cart.Clear()

	s.publish(ctx, r, domain.NewOrderCreatedEvent(o))
	s.publish(ctx, r, domcatalog.NewStockAdjustedEvent(o.ID, domcatalog.ReasonOrderCreated, adjustments))

	r.with(
		observability.F("items", len(o.Items)),
		observability.F("total", o.Total.StringFixed(2)),
	)
	return &CreateOrderResult{Order: o.Clone()}, nil
}

// resolve re-reads a cart line's product and checks it still has the stock.
func (s *Service) resolve(ctx context.Context, r *run, customerID string, line cart.Line) (*domcatalog.Product, error) {
	productID := ""
	if line.Product != nil {
		productID = line.Product.ID
	}
	reject := func(err error, status string) error {
		reason := domcatalog.FailureReason(err)
		s.stockRejects.Add(1, observability.L("reason", reason))
		s.publish(ctx, r, domcatalog.NewStockRejectedEvent(customerID, productID, line.Quantity, reason))
		r.fail(status)
		return err
	}

	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domcatalog.ErrNotFound) {
			return nil, reject(fmt.Errorf("%w: %s", ErrProductNotFound, productID), "NOT_FOUND")
		}
		r.fail("INTERNAL")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	ok, err := product.CheckAvailable(line.Quantity)
	if err != nil {
		return nil, reject(fmt.Errorf("%w: %w", ErrValidation, err), "INVALID_ARGUMENT")
	}
	if !ok {
		return nil, reject(
			fmt.Errorf("%w: %s wants %d, has %d", ErrInsufficientStock, product.ID, line.Quantity, product.Stock),
			"INSUFFICIENT_STOCK",
		)
	}
	return product, nil
}

// restock applies the inverse of the given adjustments.
func (s *Service) restock(ctx context.Context, r *run, o *domain.Order, taken []domcatalog.Adjustment) {
	back := make([]domcatalog.Adjustment, len(taken))
	for i, a := range taken {
		back[i] = domcatalog.Adjustment{ProductID: a.ProductID, Delta: -a.Delta}
	}
	if err := s.catalog.ApplyAdjustments(ctx, back); err != nil {
		r.logger.Error("restock_failed",
			observability.F("order_id", o.ID),
			observability.Err(err),
		)
	}
}
