package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/shopspring/decimal"
)

type IDGenerator interface {
	NewID() string
}

// Settlement is the payment engine as seen by the orchestrator.
type Settlement interface {
	ProcessCardPayment(ctx context.Context, total decimal.Decimal, count int, card payment.CardDetails) (payment.Result, error)
	ProcessInstantTransfer(ctx context.Context, total decimal.Decimal) (payment.Result, error)
	ProcessRefund(ctx context.Context, transactionID string, amount decimal.Decimal) bool
}

var _ Settlement = (*payment.Engine)(nil)
