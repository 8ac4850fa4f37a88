package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRate             = errors.New("payment: rate must be between 0 and 100")
	ErrInvalidInstallmentCount = errors.New("payment: installment count must be greater than zero")
	ErrInvalidAmount           = errors.New("payment: amount cannot be negative")
)

const (
	MsgFraudSuspected      = "payment blocked: suspected fraud"
	MsgCardApproved        = "credit card payment approved"
	MsgCardDeclined        = "credit card payment declined"
	MsgTransferConfirmed   = "instant transfer confirmed"
	MsgTransferDeclined    = "instant transfer declined"
	MsgUnsupportedMethod   = "payment method not supported"
	MsgInvalidInstallments = "invalid installment count"
)

var (
	DefaultInterestPercent = decimal.NewFromInt(2)
	DefaultDiscountPercent = decimal.NewFromInt(5)
)

var one = decimal.NewFromInt(1)

// Engine settles order totals. It holds no state besides its configured rates.
type Engine struct {
	mu       sync.RWMutex
	interest decimal.Decimal
	discount decimal.Decimal
	policy   Policy
}

// NewEngine validates both percentages (0-100). A nil policy falls back to a
// RandomPolicy with default probabilities.
func NewEngine(interestPercent, discountPercent decimal.Decimal, policy Policy) (*Engine, error) {
	interest, err := money.Fraction(interestPercent)
	if err != nil {
		return nil, ErrInvalidRate
	}
	discount, err := money.Fraction(discountPercent)
	if err != nil {
		return nil, ErrInvalidRate
	}
	if policy == nil {
		policy, err = NewRandomPolicy(DefaultPolicyConfig())
		if err != nil {
			return nil, err
		}
	}
	return &Engine{interest: interest, discount: discount, policy: policy}, nil
}

// ReconfigureRates replaces the rates that are non-nil. Nothing changes unless
// every supplied value is valid.
func (e *Engine) ReconfigureRates(interestPercent, discountPercent *decimal.Decimal) error {
	var interest, discount decimal.Decimal
	var err error
	if interestPercent != nil {
		if interest, err = money.Fraction(*interestPercent); err != nil {
			return ErrInvalidRate
		}
	}
	if discountPercent != nil {
		if discount, err = money.Fraction(*discountPercent); err != nil {
			return ErrInvalidRate
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if interestPercent != nil {
		e.interest = interest
	}
	if discountPercent != nil {
		e.discount = discount
	}
	return nil
}

// Rates returns the configured interest and discount as percentages.
func (e *Engine) Rates() (interestPercent, discountPercent decimal.Decimal) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	hundred := decimal.NewFromInt(100)
	return e.interest.Mul(hundred), e.discount.Mul(hundred)
}

// ComputeInstallmentAmount amortizes total over count installments using
// compound interest: total × (1+i)^n × i / ((1+i)^n − 1).
func (e *Engine) ComputeInstallmentAmount(total decimal.Decimal, count int) (decimal.Decimal, error) {
	if count <= 0 {
		return decimal.Zero, ErrInvalidInstallmentCount
	}
	if count == 1 {
		return money.Round(total), nil
	}

	e.mu.RLock()
	rate := e.interest
	e.mu.RUnlock()

	n := decimal.NewFromInt(int64(count))
	if rate.IsZero() {
		return money.Round(total.Div(n)), nil
	}

	factor := compound(one.Add(rate), count)
	if factor.Equal(one) {
		return money.Round(total.Div(n)), nil
	}
	installment := total.Mul(factor).Mul(rate).Div(factor.Sub(one))
	return money.Round(installment), nil
}

// ProcessCardPayment settles total in count installments. Fraud screening
// runs before authorization; a flagged payment never reaches the authorizer.
func (e *Engine) ProcessCardPayment(ctx context.Context, total decimal.Decimal, count int, card CardDetails) (Result, error) {
	if total.IsNegative() {
		return failed(MsgCardDeclined), ErrInvalidAmount
	}
	installment, err := e.ComputeInstallmentAmount(total, count)
	if err != nil {
		return failed(MsgInvalidInstallments), err
	}
	settled := money.Round(installment.Mul(decimal.NewFromInt(int64(count))))

	check := Check{Amount: settled, Method: MethodCreditCard, Card: card}
	if !e.policy.FraudClear(ctx, check) {
		return failed(MsgFraudSuspected), nil
	}
	if !e.policy.Authorize(ctx, check) {
		return failed(MsgCardDeclined), nil
	}

	res := Result{Success: true, Message: MsgCardApproved, Settled: settled}
	if count > 1 {
		res.InstallmentAmount = &installment
	}
	return res, nil
}

// ProcessInstantTransfer settles total with the configured flat discount.
func (e *Engine) ProcessInstantTransfer(ctx context.Context, total decimal.Decimal) (Result, error) {
	if total.IsNegative() {
		return failed(MsgTransferDeclined), ErrInvalidAmount
	}
	amount := e.InstantTransferAmount(total)

	check := Check{Amount: amount, Method: MethodInstantTransfer}
	if !e.policy.FraudClear(ctx, check) {
		return failed(MsgFraudSuspected), nil
	}
	if !e.policy.Authorize(ctx, check) {
		return failed(MsgTransferDeclined), nil
	}
	return Result{Success: true, Message: MsgTransferConfirmed, Settled: amount}, nil
}

// InstantTransferAmount is total minus the rounded discount, rounded to cents.
func (e *Engine) InstantTransferAmount(total decimal.Decimal) decimal.Decimal {
	e.mu.RLock()
	rate := e.discount
	e.mu.RUnlock()

	discount := money.Round(total.Mul(rate))
	return money.Round(total.Sub(discount))
}

// ProcessRefund asks the external processor to reverse a settled transaction.
// No compensating ledger entry is recorded here.
func (e *Engine) ProcessRefund(ctx context.Context, transactionID string, amount decimal.Decimal) bool {
	if transactionID == "" || amount.IsNegative() {
		return false
	}
	return e.policy.Refund(ctx, transactionID, amount)
}

func compound(base decimal.Decimal, n int) decimal.Decimal {
	out := one
	for i := 0; i < n; i++ {
		out = out.Mul(base)
	}
	return out
}
