package order

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	workerpresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/worker"
)

const refundWorkerComponent = "refund_worker"

type RefundUseCase = application.UseCase[ProcessRefundInput, *ProcessRefundResult]

// RefundWorker settles refunds for cancelled paid orders as their
// order.cancelled events arrive.
type RefundWorker struct {
	subscriber domoutbox.Subscriber
	refund     RefundUseCase
	log        observability.Logger
}

func NewRefundWorker(subscriber domoutbox.Subscriber, refund RefundUseCase, logger observability.Logger) *RefundWorker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &RefundWorker{
		subscriber: subscriber,
		refund:     refund,
		log:        logger.With(observability.F("component", refundWorkerComponent)),
	}
}

// RefundUseCaseOf exposes Service.ProcessRefund as a RefundUseCase.
func RefundUseCaseOf(s *Service) RefundUseCase {
	return application.UseCaseFunc[ProcessRefundInput, *ProcessRefundResult](s.ProcessRefund)
}

func (w *RefundWorker) Start() {
	if w.subscriber == nil || w.refund == nil {
		return
	}
	w.subscriber.Subscribe(domain.OrderCancelledEvent{}.EventName(), w.handleOrderCancelled)
}

func (w *RefundWorker) handleOrderCancelled(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domain.OrderCancelledEvent)
	if !ok || !evt.RefundDue {
		return nil
	}
	ctx = workerpresentation.WithEventContext(ctx, w.log, e, map[string]string{
		"use_case": useCaseOrderRefund,
	})
	logger := logctx.FromOr(ctx, w.log)

	res, err := w.refund.Execute(ctx, ProcessRefundInput{OrderID: evt.OrderID})
	switch {
	case errors.Is(err, ErrNoRefundDue):
		// Settled through another path already.
		return nil
	case err != nil:
		logger.Warn("refund_processing_failed",
			observability.F("order_id", evt.OrderID),
			observability.Err(err),
		)
		return err
	}

	logger.Info("refund_processed",
		observability.F("order_id", res.OrderID),
		observability.F("refund", string(res.Refund)),
		observability.F("success", res.Success),
	)
	return nil
}
