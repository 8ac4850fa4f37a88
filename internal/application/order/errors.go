package order

import (
	"errors"
	"fmt"

	domcatalog "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
)

var (
	ErrNotFound           = domain.ErrNotFound
	ErrProductNotFound    = domcatalog.ErrNotFound
	ErrInsufficientStock  = domcatalog.ErrInsufficientStock
	ErrNotCancellable     = domain.ErrNotCancellable
	ErrPaymentNotEligible = domain.ErrPaymentNotEligible
	ErrNoRefundDue        = domain.ErrNoRefundDue
	ErrEmptyCart          = errors.New("order: cart is empty")
	ErrValidation         = errors.New("validation")
	ErrRepository         = errors.New("order: repository failure")
)

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}

func newValidation(msg string) error {
	return fmt.Errorf("%w: %w", ErrValidation, errors.New(msg))
}
