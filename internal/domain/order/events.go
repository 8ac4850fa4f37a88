package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is emitted once the order is stored and its stock taken.
type OrderCreatedEvent struct {
	OrderID    string
	CustomerID string
	Items      []Item
	Total      decimal.Decimal
	OccurredAt time.Time
}

func (OrderCreatedEvent) EventName() string  { return "order.created" }
func (e OrderCreatedEvent) EventKey() string { return e.OrderID }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Items:      append([]Item(nil), o.Items...),
		Total:      o.Total,
		OccurredAt: time.Now().UTC(),
	}
}

type OrderPaidEvent struct {
	OrderID       string
	TransactionID string
	Settled       decimal.Decimal
	OccurredAt    time.Time
}

func (OrderPaidEvent) EventName() string  { return "order.paid" }
func (e OrderPaidEvent) EventKey() string { return e.OrderID }

func NewOrderPaidEvent(o *Order) OrderPaidEvent {
	return OrderPaidEvent{
		OrderID:       o.ID,
		TransactionID: o.TransactionID,
		Settled:       o.Total,
		OccurredAt:    time.Now().UTC(),
	}
}

type OrderPaymentFailedEvent struct {
	OrderID    string
	Reason     string
	OccurredAt time.Time
}

func (OrderPaymentFailedEvent) EventName() string  { return "order.payment_failed" }
func (e OrderPaymentFailedEvent) EventKey() string { return e.OrderID }

func NewOrderPaymentFailedEvent(o *Order, reason string) OrderPaymentFailedEvent {
	return OrderPaymentFailedEvent{
		OrderID:    o.ID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderCancelledEvent carries whether the customer is owed money back.
type OrderCancelledEvent struct {
	OrderID       string
	CustomerID    string
	RefundDue     bool
	TransactionID string
	Amount        decimal.Decimal
	OccurredAt    time.Time
}

func (OrderCancelledEvent) EventName() string  { return "order.cancelled" }
func (e OrderCancelledEvent) EventKey() string { return e.OrderID }

func NewOrderCancelledEvent(o *Order) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		RefundDue:     o.RefundDue(),
		TransactionID: o.TransactionID,
		Amount:        o.Total,
		OccurredAt:    time.Now().UTC(),
	}
}

type OrderStatusChangedEvent struct {
	OrderID    string
	From       Status
	To         Status
	OccurredAt time.Time
}

func (OrderStatusChangedEvent) EventName() string  { return "order.status_changed" }
func (e OrderStatusChangedEvent) EventKey() string { return e.OrderID }

func NewOrderStatusChangedEvent(o *Order, from Status) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:    o.ID,
		From:       from,
		To:         o.Status,
		OccurredAt: time.Now().UTC(),
	}
}

type OrderRefundSettledEvent struct {
	OrderID    string
	Refund     RefundStatus
	OccurredAt time.Time
}

func (OrderRefundSettledEvent) EventName() string  { return "order.refund_settled" }
func (e OrderRefundSettledEvent) EventKey() string { return e.OrderID }

func NewOrderRefundSettledEvent(o *Order) OrderRefundSettledEvent {
	return OrderRefundSettledEvent{
		OrderID:    o.ID,
		Refund:     o.Refund,
		OccurredAt: time.Now().UTC(),
	}
}
