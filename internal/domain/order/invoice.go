package order

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/shopspring/decimal"
)

type InvoiceLine struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Invoice summarises a paid order. It depends only on order state, so two
// calls on the same order produce equal values.
type Invoice struct {
	OrderID           string
	CustomerID        string
	ShippingAddress   map[string]string
	Lines             []InvoiceLine
	Subtotal          decimal.Decimal
	ShippingFee       decimal.Decimal
	Total             decimal.Decimal
	PaymentMethod     payment.Method
	InstallmentCount  int
	InstallmentAmount *decimal.Decimal
	TransactionID     string
	PaidAt            *time.Time
}

func (o *Order) GenerateInvoice() (Invoice, error) {
	if !o.Settled() {
		return Invoice{}, fmt.Errorf("%w: status %s", ErrInvalidStateForInvoice, o.Status)
	}

	inv := Invoice{
		OrderID:         o.ID,
		CustomerID:      o.CustomerID,
		ShippingAddress: copyAddress(o.ShippingAddress),
		Lines:           make([]InvoiceLine, 0, len(o.Items)),
		ShippingFee:     o.ShippingFee,
		Total:           o.Total,
		PaymentMethod:   o.PaymentMethod,
		TransactionID:   o.TransactionID,
		PaidAt:          copyTime(o.PaidAt),
	}
	subtotal := decimal.Zero
	for _, it := range o.Items {
		line := InvoiceLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal(),
		}
		subtotal = subtotal.Add(line.LineTotal)
		inv.Lines = append(inv.Lines, line)
	}
	inv.Subtotal = money.Round(subtotal)
	if o.InstallmentCount > 1 && o.InstallmentAmount != nil {
		inv.InstallmentCount = o.InstallmentCount
		amount := *o.InstallmentAmount
		inv.InstallmentAmount = &amount
	}
	return inv, nil
}

// Text renders the invoice as a plain-text receipt.
func (inv Invoice) Text() string {
	var b strings.Builder
	b.WriteString("--- Invoice ---\n")
	fmt.Fprintf(&b, "Order: %s\n", inv.OrderID)
	fmt.Fprintf(&b, "Customer: %s\n", inv.CustomerID)
	if inv.PaidAt != nil {
		fmt.Fprintf(&b, "Paid at: %s\n", inv.PaidAt.Format(time.RFC3339))
	}
	if len(inv.ShippingAddress) > 0 {
		keys := make([]string, 0, len(inv.ShippingAddress))
		for k := range inv.ShippingAddress {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+inv.ShippingAddress[k])
		}
		fmt.Fprintf(&b, "Ship to: %s\n", strings.Join(parts, ", "))
	}

	b.WriteString("\n--- Items ---\n")
	for _, l := range inv.Lines {
		fmt.Fprintf(&b, "- %s (%dx %s) = %s\n", l.Name, l.Quantity, l.UnitPrice.StringFixed(2), l.LineTotal.StringFixed(2))
	}

	fmt.Fprintf(&b, "\nSubtotal: %s\n", inv.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "Shipping: %s\n", inv.ShippingFee.StringFixed(2))
	fmt.Fprintf(&b, "Total paid: %s\n", inv.Total.StringFixed(2))
	fmt.Fprintf(&b, "Payment method: %s\n", inv.PaymentMethod)
	if inv.InstallmentCount > 1 && inv.InstallmentAmount != nil {
		fmt.Fprintf(&b, "Installments: %dx %s\n", inv.InstallmentCount, inv.InstallmentAmount.StringFixed(2))
	}
	if inv.TransactionID != "" {
		fmt.Fprintf(&b, "Transaction: %s\n", inv.TransactionID)
	}
	b.WriteString("---------------\n")
	return b.String()
}

type ItemDetails struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Details is the plain record exposed to callers: numbers as floats,
// timestamps as RFC 3339 strings or null.
type Details struct {
	ID                string            `json:"id"`
	CustomerID        string            `json:"customer_id"`
	Status            string            `json:"status"`
	Items             []ItemDetails     `json:"items"`
	ShippingAddress   map[string]string `json:"shipping_address"`
	PaymentMethod     string            `json:"payment_method"`
	Subtotal          float64           `json:"subtotal"`
	ShippingFee       float64           `json:"shipping_fee"`
	Total             float64           `json:"total"`
	TransactionID     *string           `json:"transaction_id"`
	InstallmentCount  *int              `json:"installment_count"`
	InstallmentAmount *float64          `json:"installment_amount"`
	Refund            string            `json:"refund_status"`
	CreatedAt         string            `json:"created_at"`
	PaidAt            *string           `json:"paid_at"`
	ShippedAt         *string           `json:"shipped_at"`
	DeliveredAt       *string           `json:"delivered_at"`
}

func (o *Order) Details() Details {
	d := Details{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		Status:          string(o.Status),
		Items:           make([]ItemDetails, 0, len(o.Items)),
		ShippingAddress: copyAddress(o.ShippingAddress),
		PaymentMethod:   string(o.PaymentMethod),
		Subtotal:        money.Float(o.Subtotal()),
		ShippingFee:     money.Float(o.ShippingFee),
		Total:           money.Float(o.Total),
		Refund:          string(o.Refund),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339Nano),
		PaidAt:          isoTime(o.PaidAt),
		ShippedAt:       isoTime(o.ShippedAt),
		DeliveredAt:     isoTime(o.DeliveredAt),
	}
	for _, it := range o.Items {
		d.Items = append(d.Items, ItemDetails{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: money.Float(it.UnitPrice),
		})
	}
	if o.TransactionID != "" {
		tx := o.TransactionID
		d.TransactionID = &tx
	}
	if o.InstallmentCount > 0 {
		n := o.InstallmentCount
		d.InstallmentCount = &n
	}
	if o.InstallmentAmount != nil {
		f := money.Float(*o.InstallmentAmount)
		d.InstallmentAmount = &f
	}
	return d
}

func isoTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}
