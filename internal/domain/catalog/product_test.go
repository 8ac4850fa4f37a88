package catalog_test

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProduct(t *testing.T, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("p-1", "Mechanical Keyboard", "RGB, blue switches", money.MustParse("350.00"), stock, "peripherals")
	require.NoError(t, err)
	return p
}

func TestNewProduct_RejectsInvalidInput(t *testing.T) {
	_, err := catalog.NewProduct("p-1", "x", "", money.MustParse("0"), 1, "")
	assert.ErrorIs(t, err, catalog.ErrInvalidPrice)

	_, err = catalog.NewProduct("p-1", "x", "", money.MustParse("-1"), 1, "")
	assert.ErrorIs(t, err, catalog.ErrInvalidPrice)

	_, err = catalog.NewProduct("p-1", "x", "", money.MustParse("10"), -1, "")
	assert.ErrorIs(t, err, catalog.ErrInvalidStock)

	_, err = catalog.NewProduct("", "x", "", money.MustParse("10"), 1, "")
	assert.ErrorIs(t, err, catalog.ErrInvalidID)
}

func TestCheckAvailable(t *testing.T) {
	p := newProduct(t, 10)

	ok, err := p.CheckAvailable(10)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.CheckAvailable(11)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.CheckAvailable(0)
	assert.ErrorIs(t, err, catalog.ErrInvalidQuantity)
	_, err = p.CheckAvailable(-3)
	assert.ErrorIs(t, err, catalog.ErrInvalidQuantity)
}

func TestAdjustStock(t *testing.T) {
	p := newProduct(t, 10)

	require.NoError(t, p.AdjustStock(-4))
	assert.Equal(t, 6, p.Stock)

	require.NoError(t, p.AdjustStock(5))
	assert.Equal(t, 11, p.Stock)

	require.NoError(t, p.AdjustStock(-11))
	assert.Equal(t, 0, p.Stock)
}

func TestAdjustStock_NegativeLeavesStockUnchanged(t *testing.T) {
	p := newProduct(t, 3)

	err := p.AdjustStock(-4)
	assert.ErrorIs(t, err, catalog.ErrNegativeStock)
	assert.Equal(t, 3, p.Stock)
}

func TestAdjustStock_NeverNegativeAcrossSequence(t *testing.T) {
	p := newProduct(t, 5)
	for _, delta := range []int{-2, -2, -2, 3, -7, -1, 10, -20, -3} {
		_ = p.AdjustStock(delta)
		assert.GreaterOrEqual(t, p.Stock, 0)
		assert.True(t, p.Price.IsPositive())
	}
}

func TestInfo(t *testing.T) {
	p := newProduct(t, 7)
	info := p.Info()
	assert.Equal(t, "p-1", info.ID)
	assert.Equal(t, 7, info.Stock)
	assert.InDelta(t, 350.0, info.Price, 0.0001)
	assert.Equal(t, "peripherals", info.Category)
}

func TestClone_IsIndependent(t *testing.T) {
	p := newProduct(t, 7)
	c := p.Clone()
	require.NoError(t, c.AdjustStock(-7))
	assert.Equal(t, 7, p.Stock)
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, catalog.FailureReasonNotFound, catalog.FailureReason(catalog.ErrNotFound))
	assert.Equal(t, catalog.FailureReasonInsufficientStock, catalog.FailureReason(catalog.ErrInsufficientStock))
	assert.Equal(t, catalog.FailureReasonNegativeStock, catalog.FailureReason(catalog.ErrNegativeStock))
}
