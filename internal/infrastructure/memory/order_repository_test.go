package memory_test

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T, id, customer string) *order.Order {
	t.Helper()
	o, err := order.New(id, customer, []order.Item{
		{ProductID: "p-1", Name: "Mouse", UnitPrice: money.MustParse("10.00"), Quantity: 1},
	}, nil, payment.MethodInstantTransfer, order.DefaultShippingRate())
	require.NoError(t, err)
	return o
}

func TestOrderRepository_SaveFindUpdate(t *testing.T) {
	repo := memory.NewOrderRepository()
	ctx := context.Background()
	o := newTestOrder(t, "o-1", "c-1")

	require.NoError(t, repo.Save(ctx, o))
	assert.ErrorIs(t, repo.Save(ctx, o), memory.ErrConflict)

	got, err := repo.FindByID(ctx, "o-1")
	require.NoError(t, err)
	got.TransitionTo(order.StatusCancelled)

	stored, err := repo.FindByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status, "mutating a loaded copy must not leak into the store")

	require.NoError(t, repo.Update(ctx, got))
	stored, err = repo.FindByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, stored.Status)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, order.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, newTestOrder(t, "ghost", "c-1")), order.ErrNotFound)
}

func TestOrderRepository_Listing(t *testing.T) {
	repo := memory.NewOrderRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newTestOrder(t, "o-1", "alice")))
	require.NoError(t, repo.Save(ctx, newTestOrder(t, "o-2", "bob")))
	require.NoError(t, repo.Save(ctx, newTestOrder(t, "o-3", "alice")))

	alice, err := repo.ListByCustomer(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, "o-1", alice[0].ID)
	assert.Equal(t, "o-3", alice[1].ID)

	nobody, err := repo.ListByCustomer(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, nobody)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
