package order

import (
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrInvalidID              = errors.New("order: id is required")
	ErrEmptyItems             = errors.New("order: at least one item is required")
	ErrInvalidQuantity        = errors.New("order: quantity must be greater than zero")
	ErrInvalidPrice           = errors.New("order: unit price must be greater than zero")
	ErrInvalidShippingRate    = errors.New("order: shipping rate and cap cannot be negative")
	ErrInvalidStateForInvoice = errors.New("order: invoice requires a paid order")
	ErrPaymentNotEligible     = errors.New("order: status does not accept payment")
	ErrNotCancellable         = errors.New("order: status cannot be cancelled")
	ErrNoRefundDue            = errors.New("order: no refund is due")
)

// Item is the immutable snapshot of one cart line taken at order creation.
type Item struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

func (i Item) LineTotal() decimal.Decimal {
	return money.Round(i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))))
}

// ShippingRate charges UnitRate per unit up to Cap.
type ShippingRate struct {
	UnitRate decimal.Decimal
	Cap      decimal.Decimal
}

func DefaultShippingRate() ShippingRate {
	return ShippingRate{UnitRate: money.MustParse("5.00"), Cap: money.MustParse("50.00")}
}

func (r ShippingRate) Validate() error {
	if r.UnitRate.IsNegative() || r.Cap.IsNegative() {
		return ErrInvalidShippingRate
	}
	return nil
}

// Fee is min(units × UnitRate, Cap) rounded to cents.
func (r ShippingRate) Fee(units int) decimal.Decimal {
	if units <= 0 {
		return decimal.Zero
	}
	fee := r.UnitRate.Mul(decimal.NewFromInt(int64(units)))
	if fee.GreaterThan(r.Cap) {
		fee = r.Cap
	}
	return money.Round(fee)
}

type RefundStatus string

const (
	RefundNone     RefundStatus = "none"
	RefundPending  RefundStatus = "pending"
	RefundRefunded RefundStatus = "refunded"
	RefundFailed   RefundStatus = "failed"
)

// PaymentOutcome is what the settlement engine reported for one attempt.
type PaymentOutcome struct {
	Success           bool
	TransactionID     string
	Settled           decimal.Decimal
	InstallmentCount  int
	InstallmentAmount *decimal.Decimal
}

// PaymentGuard decides what RegisterPayment does outside the payable statuses.
type PaymentGuard string

const (
	// GuardLenient registers anyway; the caller is expected to log it.
	GuardLenient PaymentGuard = "lenient"
	GuardStrict  PaymentGuard = "strict"
)

func (g PaymentGuard) Valid() bool {
	return g == GuardLenient || g == GuardStrict
}

type Order struct {
	ID                string
	CustomerID        string
	Items             []Item
	ShippingAddress   map[string]string
	PaymentMethod     payment.Method
	ShippingFee       decimal.Decimal
	Total             decimal.Decimal
	Status            Status
	TransactionID     string
	InstallmentCount  int
	InstallmentAmount *decimal.Decimal
	Refund            RefundStatus
	CreatedAt         time.Time
	PaidAt            *time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	UpdatedAt         time.Time
}

// New snapshots items and computes the shipping fee once. Total starts as
// subtotal + shipping and is replaced by the settled amount on payment.
func New(id, customerID string, items []Item, address map[string]string, method payment.Method, shipping ShippingRate) (*Order, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	if err := shipping.Validate(); err != nil {
		return nil, err
	}
	snapshot := make([]Item, len(items))
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if !it.UnitPrice.IsPositive() {
			return nil, ErrInvalidPrice
		}
		snapshot[i] = it
	}

	now := time.Now().UTC()
	o := &Order{
		ID:              id,
		CustomerID:      customerID,
		Items:           snapshot,
		ShippingAddress: copyAddress(address),
		PaymentMethod:   method,
		Status:          StatusPending,
		Refund:          RefundNone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.ShippingFee = shipping.Fee(o.ItemCount())
	o.Total = money.Round(o.Subtotal().Add(o.ShippingFee))
	return o, nil
}

func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.LineTotal())
	}
	return money.Round(sum)
}

// ItemCount is the number of units across all lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// PaymentEligible reports whether the order is in a status meant to receive a
// payment registration.
func (o *Order) PaymentEligible() bool {
	switch o.Status {
	case StatusPending, StatusProcessingPayment, StatusPaymentFailed:
		return true
	default:
		return false
	}
}

// RegisterPayment records one settlement outcome. Under GuardStrict an
// ineligible order is rejected untouched; under GuardLenient it is processed
// and whatever transition the table allows happens. It reports whether the
// status changed.
func (o *Order) RegisterPayment(p PaymentOutcome, guard PaymentGuard) (bool, error) {
	if guard == GuardStrict && !o.PaymentEligible() {
		return false, ErrPaymentNotEligible
	}
	if !p.Success {
		return o.TransitionTo(StatusPaymentFailed), nil
	}

	o.TransactionID = p.TransactionID
	o.Total = money.Round(p.Settled)
	if p.InstallmentCount > 0 {
		o.InstallmentCount = p.InstallmentCount
	}
	if p.InstallmentAmount != nil {
		amount := *p.InstallmentAmount
		o.InstallmentAmount = &amount
	} else {
		o.InstallmentAmount = nil
	}
	if o.Status == StatusCancelled {
		// charged after cancellation: the money is owed back
		o.Refund = RefundPending
	}
	o.touch()
	return o.TransitionTo(StatusPaid), nil
}

// Cancellable excludes orders already on their way or finished.
func (o *Order) Cancellable() bool {
	switch o.Status {
	case StatusShipped, StatusDelivered, StatusCancelled:
		return false
	default:
		return true
	}
}

// Cancel moves the order to Cancelled. An order that had been paid is left
// owing a refund.
func (o *Order) Cancel() error {
	if !o.Cancellable() || !o.TransitionTo(StatusCancelled) {
		return ErrNotCancellable
	}
	if o.PaidAt != nil {
		o.Refund = RefundPending
	}
	return nil
}

// RefundDue is true while a refund is pending or a previous attempt failed.
func (o *Order) RefundDue() bool {
	return o.Refund == RefundPending || o.Refund == RefundFailed
}

// SettleRefund records the result of a refund attempt.
func (o *Order) SettleRefund(success bool) error {
	if !o.RefundDue() {
		return ErrNoRefundDue
	}
	if success {
		o.Refund = RefundRefunded
	} else {
		o.Refund = RefundFailed
	}
	o.touch()
	return nil
}

// Settled reports whether the order counts towards sales.
func (o *Order) Settled() bool {
	switch o.Status {
	case StatusPaid, StatusPickingPacking, StatusShipped, StatusDelivered:
		return true
	default:
		return false
	}
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	clone.ShippingAddress = copyAddress(o.ShippingAddress)
	if o.InstallmentAmount != nil {
		v := *o.InstallmentAmount
		clone.InstallmentAmount = &v
	}
	clone.PaidAt = copyTime(o.PaidAt)
	clone.ShippedAt = copyTime(o.ShippedAt)
	clone.DeliveredAt = copyTime(o.DeliveredAt)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

func copyAddress(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
