package payment

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Method tags how an order is settled.
type Method string

const (
	MethodCreditCard      Method = "credit_card"
	MethodInstantTransfer Method = "instant_transfer"
)

func (m Method) Supported() bool {
	switch m {
	case MethodCreditCard, MethodInstantTransfer:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is the outcome of one settlement attempt. A declined payment is a
// Result with Success=false, never an error.
type Result struct {
	Success bool
	Message string
	Settled decimal.Decimal
	// InstallmentAmount is set only for successful card payments split in more
	// than one installment.
	InstallmentAmount *decimal.Decimal
}

func (r Result) Status() Status {
	if r.Success {
		return StatusSuccess
	}
	return StatusFailed
}

func failed(message string) Result {
	return Result{Message: message, Settled: decimal.Zero}
}

// CardDetails carries what the fraud screen may look at.
type CardDetails struct {
	Number string
	Holder string
}

// Masked keeps only the last four digits of the card number.
func (c CardDetails) Masked() string {
	digits := strings.ReplaceAll(c.Number, " ", "")
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
