package catalog

import (
	"errors"
	"time"
)

const (
	FailureReasonNotFound          = "not_found"
	FailureReasonInsufficientStock = "insufficient_stock"
	FailureReasonNegativeStock     = "negative_stock"
	FailureReasonInvalidQuantity   = "invalid_quantity"
	FailureReasonPersistenceError  = "persist_error"
)

const (
	ReasonOrderCreated   = "order_created"
	ReasonOrderCancelled = "order_cancelled"
)

// StockAdjustedEvent is emitted after a stock batch has been applied.
type StockAdjustedEvent struct {
	OrderID     string
	Reason      string
	Adjustments []Adjustment
	OccurredAt  time.Time
}

func (StockAdjustedEvent) EventName() string  { return "catalog.stock_adjusted" }
func (e StockAdjustedEvent) EventKey() string { return e.OrderID }

func NewStockAdjustedEvent(orderID, reason string, adjustments []Adjustment) StockAdjustedEvent {
	return StockAdjustedEvent{
		OrderID:     orderID,
		Reason:      reason,
		Adjustments: append([]Adjustment(nil), adjustments...),
		OccurredAt:  time.Now().UTC(),
	}
}

// StockRejectedEvent is emitted when a checkout could not reserve stock.
type StockRejectedEvent struct {
	CustomerID string
	ProductID  string
	Quantity   int
	Reason     string
	OccurredAt time.Time
}

func (StockRejectedEvent) EventName() string  { return "catalog.stock_rejected" }
func (e StockRejectedEvent) EventKey() string { return e.ProductID }

func NewStockRejectedEvent(customerID, productID string, quantity int, reason string) StockRejectedEvent {
	return StockRejectedEvent{
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   quantity,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

// FailureReason maps a catalog error onto a low-cardinality label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return FailureReasonNotFound
	case errors.Is(err, ErrInsufficientStock):
		return FailureReasonInsufficientStock
	case errors.Is(err, ErrNegativeStock):
		return FailureReasonNegativeStock
	case errors.Is(err, ErrInvalidQuantity):
		return FailureReasonInvalidQuantity
	default:
		return FailureReasonPersistenceError
	}
}
