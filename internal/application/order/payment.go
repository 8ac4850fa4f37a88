package order

import (
	"context"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

// MsgSettlementFault is reported when settlement stopped on an unexpected
// internal fault.
const MsgSettlementFault = "payment failed: internal settlement error"

// ProcessPaymentInput settles an order with the method it was created with.
// InstallmentCount applies to card payments; zero means a single installment.
// A non-empty AttemptKey makes the call idempotent for that order.
type ProcessPaymentInput struct {
	OrderID          string
	AttemptKey       string
	InstallmentCount int
	Card             payment.CardDetails
}

type ProcessPaymentResult struct {
	OrderID           string
	Success           bool
	Message           string
	Status            domain.Status
	TransactionID     string
	Settled           decimal.Decimal
	InstallmentCount  int
	InstallmentAmount *decimal.Decimal
	// Replayed is set when the result was recorded by an earlier call with the
	// same attempt key.
	Replayed bool
}

// ProcessPayment runs one settlement attempt. A declined or invalid payment is
// reported in the result and drives the order to PaymentFailed; only a
// missing order, a strict-guard rejection or a storage failure is an error.
func (s *Service) ProcessPayment(ctx context.Context, in ProcessPaymentInput) (res *ProcessPaymentResult, err error) {
	ctx, r := s.begin(ctx, useCaseOrderPay, "ProcessPayment",
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

	attempt := attemptKey(in.OrderID, in.AttemptKey)
	if attempt != "" {
		if prev, ok := s.attempts.Load(attempt); ok {
			replay := prev.(ProcessPaymentResult)
			replay.Replayed = true
			r.with(observability.F("replayed", true))
			return &replay, nil
		}
	}

	o, err := s.load(ctx, r, in.OrderID)
	if err != nil {
		return nil, err
	}

	if !o.PaymentEligible() {
		if s.guard == domain.GuardStrict {
			r.fail("FAILED_PRECONDITION")
			return nil, ErrPaymentNotEligible
		}
		r.logger.Warn("payment_registration_ineligible",
			observability.F("order_id", o.ID),
			observability.F("order_status", string(o.Status)),
		)
	}

	o.TransitionTo(domain.StatusProcessingPayment)

	result, outcome := s.settle(ctx, o, in)
	if _, err := o.RegisterPayment(outcome, s.guard); err != nil {
		r.fail("FAILED_PRECONDITION")
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		r.fail("INTERNAL")
		return nil, wrapRepositoryError(err)
	}

	result.OrderID = o.ID
	result.Status = o.Status
	if result.Success && o.Status == domain.StatusCancelled {
		r.logger.Warn("refund_pending",
			observability.F("order_id", o.ID),
			observability.F("transaction_id", o.TransactionID),
			observability.F("amount", o.Total.StringFixed(2)),
		)
	}
	if result.Success {
		s.settled.Add(o.Total.InexactFloat64(), observability.L("method", string(o.PaymentMethod)))
		s.publish(ctx, r, domain.NewOrderPaidEvent(o))
	} else {
		r.status = "PAYMENT_FAILED"
		s.publish(ctx, r, domain.NewOrderPaymentFailedEvent(o, result.Message))
	}
	s.payAttempts.Add(1,
		observability.L("method", string(o.PaymentMethod)),
		observability.L("result", string(paymentStatus(result.Success))),
	)

	if attempt != "" {
		s.attempts.Store(attempt, *result)
	}
	r.with(
		observability.F("payment_success", result.Success),
		observability.F("order_status", string(o.Status)),
	)
	return result, nil
}

// settle dispatches on the order's payment method. The engine is recorded as
// an external peer; its errors and panics become failed outcomes.
func (s *Service) settle(ctx context.Context, o *domain.Order, in ProcessPaymentInput) (result *ProcessPaymentResult, outcome domain.PaymentOutcome) {
	var (
		res    payment.Result
		err    error
		prefix string
		count  int
	)
	start := time.Now()
	endpoint := string(o.PaymentMethod)

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		s.observeExternal(paymentPeer, endpoint, "error", start)
		logctx.FromOr(ctx, s.log).Error("payment_engine_panic",
			observability.F("order_id", o.ID),
			observability.F("panic", fmt.Sprint(rec)),
		)
		result, outcome = &ProcessPaymentResult{Message: MsgSettlementFault}, domain.PaymentOutcome{}
	}()

	switch o.PaymentMethod {
	case payment.MethodCreditCard:
		count = in.InstallmentCount
		if count == 0 {
			count = 1
		}
		prefix = "cc_"
		res, err = s.engine.ProcessCardPayment(ctx, o.Total, count, in.Card)
	case payment.MethodInstantTransfer:
		prefix = "it_"
		res, err = s.engine.ProcessInstantTransfer(ctx, o.Total)
	default:
		return &ProcessPaymentResult{Message: payment.MsgUnsupportedMethod}, domain.PaymentOutcome{}
	}

	extOutcome := "success"
	switch {
	case err != nil:
		extOutcome = "error"
	case !res.Success:
		extOutcome = "declined"
	}
	s.observeExternal(paymentPeer, endpoint, extOutcome, start)

	if err != nil {
		msg := res.Message
		if msg == "" {
			msg = err.Error()
		}
		logctx.FromOr(ctx, s.log).Warn("payment_engine_error",
			observability.F("order_id", o.ID),
			observability.Err(err),
		)
		return &ProcessPaymentResult{Message: msg}, domain.PaymentOutcome{}
	}
	if !res.Success {
		return &ProcessPaymentResult{Message: res.Message}, domain.PaymentOutcome{}
	}

	txID := prefix + s.shortID(8)
	out := &ProcessPaymentResult{
		Success:           true,
		Message:           res.Message,
		TransactionID:     txID,
		Settled:           res.Settled,
		InstallmentAmount: res.InstallmentAmount,
	}
	if o.PaymentMethod == payment.MethodCreditCard {
		out.InstallmentCount = count
	}
	return out, domain.PaymentOutcome{
		Success:           true,
		TransactionID:     txID,
		Settled:           res.Settled,
		InstallmentCount:  out.InstallmentCount,
		InstallmentAmount: res.InstallmentAmount,
	}
}

func attemptKey(orderID, key string) string {
	if key == "" {
		return ""
	}
	return orderID + "|" + key
}

func paymentStatus(success bool) payment.Status {
	if success {
		return payment.StatusSuccess
	}
	return payment.StatusFailed
}
