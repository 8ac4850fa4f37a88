package payment_test

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, interest, discount string, policy payment.Policy) *payment.Engine {
	t.Helper()
	e, err := payment.NewEngine(money.MustParse(interest), money.MustParse(discount), policy)
	require.NoError(t, err)
	return e
}

func TestNewEngine_ValidatesRates(t *testing.T) {
	for _, tc := range []struct{ interest, discount string }{
		{"-1", "5"}, {"100.5", "5"}, {"2", "-0.1"}, {"2", "101"},
	} {
		_, err := payment.NewEngine(money.MustParse(tc.interest), money.MustParse(tc.discount), payment.ApprovingPolicy())
		assert.ErrorIs(t, err, payment.ErrInvalidRate, "interest=%s discount=%s", tc.interest, tc.discount)
	}

	_, err := payment.NewEngine(money.MustParse("0"), money.MustParse("100"), nil)
	assert.NoError(t, err)
}

func TestComputeInstallmentAmount_SingleInstallmentIsPrincipal(t *testing.T) {
	e := newEngine(t, "3.5", "0", payment.ApprovingPolicy())

	got, err := e.ComputeInstallmentAmount(money.MustParse("1000.004"), 1)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", got.StringFixed(2))

	got, err = e.ComputeInstallmentAmount(money.MustParse("99.995"), 1)
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.StringFixed(2))
}

func TestComputeInstallmentAmount_CompoundInterest(t *testing.T) {
	e := newEngine(t, "2", "0", payment.ApprovingPolicy())

	got, err := e.ComputeInstallmentAmount(money.MustParse("1000.00"), 3)
	require.NoError(t, err)
	f, _ := got.Float64()
	assert.InDelta(t, 346.76, f, 0.01)
	assert.Equal(t, "346.75", got.StringFixed(2))

	total := money.Round(got.Mul(decimal.NewFromInt(3)))
	tf, _ := total.Float64()
	assert.InDelta(t, 1040.28, tf, 0.05)
}

func TestComputeInstallmentAmount_ZeroRateSplitsEvenly(t *testing.T) {
	e := newEngine(t, "0", "0", payment.ApprovingPolicy())
	principal := money.MustParse("1000.00")

	for _, n := range []int{2, 3, 6, 7, 12} {
		got, err := e.ComputeInstallmentAmount(principal, n)
		require.NoError(t, err)
		diff := got.Mul(decimal.NewFromInt(int64(n))).Sub(principal).Abs()
		assert.True(t, diff.LessThanOrEqual(money.MustParse("0.01").Mul(decimal.NewFromInt(int64(n)))), "n=%d diff=%s", n, diff)
	}

	got, err := e.ComputeInstallmentAmount(principal, 3)
	require.NoError(t, err)
	assert.Equal(t, "333.33", got.StringFixed(2))
}

func TestComputeInstallmentAmount_InvalidCount(t *testing.T) {
	e := newEngine(t, "2", "5", payment.ApprovingPolicy())
	_, err := e.ComputeInstallmentAmount(money.MustParse("10"), 0)
	assert.ErrorIs(t, err, payment.ErrInvalidInstallmentCount)
	_, err = e.ComputeInstallmentAmount(money.MustParse("10"), -2)
	assert.ErrorIs(t, err, payment.ErrInvalidInstallmentCount)
}

func TestProcessCardPayment_Approved(t *testing.T) {
	policy := payment.ApprovingPolicy()
	e := newEngine(t, "2", "5", policy)

	res, err := e.ProcessCardPayment(context.Background(), money.MustParse("1000.00"), 3, payment.CardDetails{Number: "4111 1111 1111 1111"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, payment.StatusSuccess, res.Status())
	require.NotNil(t, res.InstallmentAmount)
	assert.Equal(t, "346.75", res.InstallmentAmount.StringFixed(2))
	assert.Equal(t, "1040.25", res.Settled.StringFixed(2))
}

func TestProcessCardPayment_SingleInstallmentHasNoInstallmentData(t *testing.T) {
	e := newEngine(t, "2", "5", payment.ApprovingPolicy())

	res, err := e.ProcessCardPayment(context.Background(), money.MustParse("100.00"), 1, payment.CardDetails{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, res.InstallmentAmount)
	assert.Equal(t, "100.00", res.Settled.StringFixed(2))
}

func TestProcessCardPayment_FraudSkipsAuthorization(t *testing.T) {
	policy := &payment.FixedPolicy{FraudClearResult: false, AuthorizeResult: true}
	e := newEngine(t, "2", "5", policy)

	res, err := e.ProcessCardPayment(context.Background(), money.MustParse("500.00"), 3, payment.CardDetails{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, payment.MsgFraudSuspected, res.Message)
	assert.True(t, res.Settled.IsZero())
	assert.Nil(t, res.InstallmentAmount)

	fraud, auth, _ := policy.Calls()
	assert.Equal(t, 1, fraud)
	assert.Equal(t, 0, auth)
}

func TestProcessCardPayment_Declined(t *testing.T) {
	policy := &payment.FixedPolicy{FraudClearResult: true, AuthorizeResult: false}
	e := newEngine(t, "2", "5", policy)

	res, err := e.ProcessCardPayment(context.Background(), money.MustParse("500.00"), 3, payment.CardDetails{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, payment.MsgCardDeclined, res.Message)
	assert.True(t, res.Settled.IsZero())
	assert.Nil(t, res.InstallmentAmount)
}

func TestProcessCardPayment_InvalidCount(t *testing.T) {
	policy := payment.ApprovingPolicy()
	e := newEngine(t, "2", "5", policy)

	res, err := e.ProcessCardPayment(context.Background(), money.MustParse("500.00"), 0, payment.CardDetails{})
	assert.ErrorIs(t, err, payment.ErrInvalidInstallmentCount)
	assert.False(t, res.Success)
	fraud, _, _ := policy.Calls()
	assert.Zero(t, fraud)
}

func TestProcessInstantTransfer_Discount(t *testing.T) {
	e := newEngine(t, "2", "10", payment.ApprovingPolicy())

	res, err := e.ProcessInstantTransfer(context.Background(), money.MustParse("1000.00"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "900.00", res.Settled.StringFixed(2))
	assert.True(t, res.Settled.Equal(money.MustParse("900")))
	assert.Nil(t, res.InstallmentAmount)
}

func TestProcessInstantTransfer_RoundsDiscountFirst(t *testing.T) {
	e := newEngine(t, "2", "7.5", payment.ApprovingPolicy())
	// discount 0.7425 -> 0.74, 9.90 - 0.74 = 9.16
	assert.Equal(t, "9.16", e.InstantTransferAmount(money.MustParse("9.90")).StringFixed(2))
}

func TestProcessInstantTransfer_Failures(t *testing.T) {
	policy := &payment.FixedPolicy{FraudClearResult: false, AuthorizeResult: true}
	e := newEngine(t, "2", "10", policy)

	res, err := e.ProcessInstantTransfer(context.Background(), money.MustParse("100"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, payment.MsgFraudSuspected, res.Message)
	_, auth, _ := policy.Calls()
	assert.Zero(t, auth)

	policy.Set(true, false, true)
	res, err = e.ProcessInstantTransfer(context.Background(), money.MustParse("100"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, payment.MsgTransferDeclined, res.Message)
	assert.True(t, res.Settled.IsZero())
}

func TestProcessRefund(t *testing.T) {
	policy := payment.ApprovingPolicy()
	e := newEngine(t, "2", "5", policy)

	assert.True(t, e.ProcessRefund(context.Background(), "cc_1234", money.MustParse("10")))
	assert.False(t, e.ProcessRefund(context.Background(), "", money.MustParse("10")))

	policy.Set(true, true, false)
	assert.False(t, e.ProcessRefund(context.Background(), "cc_1234", money.MustParse("10")))
}

func TestReconfigureRates(t *testing.T) {
	e := newEngine(t, "2", "5", payment.ApprovingPolicy())

	interest := money.MustParse("1.99")
	discount := money.MustParse("7.5")
	require.NoError(t, e.ReconfigureRates(&interest, &discount))
	gotI, gotD := e.Rates()
	assert.True(t, gotI.Equal(interest))
	assert.True(t, gotD.Equal(discount))

	bad := money.MustParse("150")
	newDiscount := money.MustParse("1")
	assert.ErrorIs(t, e.ReconfigureRates(&newDiscount, &bad), payment.ErrInvalidRate)
	gotI, gotD = e.Rates()
	assert.True(t, gotI.Equal(interest), "interest must be unchanged after a rejected reconfiguration")
	assert.True(t, gotD.Equal(discount))

	zero := money.MustParse("0")
	require.NoError(t, e.ReconfigureRates(&zero, nil))
	gotI, gotD = e.Rates()
	assert.True(t, gotI.IsZero())
	assert.True(t, gotD.Equal(discount))
}

func TestRandomPolicy_ExtremeProbabilities(t *testing.T) {
	always, err := payment.NewRandomPolicy(payment.PolicyConfig{FraudClearProbability: 1, AuthorizationProbability: 1, RefundProbability: 1})
	require.NoError(t, err)
	never, err := payment.NewRandomPolicy(payment.PolicyConfig{})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		assert.True(t, always.FraudClear(ctx, payment.Check{}))
		assert.True(t, always.Authorize(ctx, payment.Check{}))
		assert.False(t, never.Authorize(ctx, payment.Check{}))
		assert.False(t, never.Refund(ctx, "tx", decimal.Zero))
	}

	_, err = payment.NewRandomPolicy(payment.PolicyConfig{FraudClearProbability: 1.5})
	assert.ErrorIs(t, err, payment.ErrInvalidProbability)
}

func TestRandomPolicy_CanceledContextDeclines(t *testing.T) {
	p, err := payment.NewRandomPolicy(payment.PolicyConfig{FraudClearProbability: 1, AuthorizationProbability: 1, RefundProbability: 1})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, p.Authorize(ctx, payment.Check{}))
}

func TestCardDetails_Masked(t *testing.T) {
	assert.Equal(t, "************1111", payment.CardDetails{Number: "4111 1111 1111 1111"}.Masked())
	assert.Equal(t, "123", payment.CardDetails{Number: "123"}.Masked())
}

func TestMethod_Supported(t *testing.T) {
	assert.True(t, payment.MethodCreditCard.Supported())
	assert.True(t, payment.MethodInstantTransfer.Supported())
	assert.False(t, payment.Method("boleto").Supported())
}
