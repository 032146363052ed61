package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"github.com/thanhnm3/khomypham/internal/domain/trade"
)

func TestGormReceivingOrderRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReceivingOrderRepository(db)
	ctx := context.Background()
	product := createTestProduct(t, db, "Toner")

	receivedAt := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	order := trade.NewReceivingOrder("PN-TEST-1", "Acme", "first delivery", receivedAt, "alice")
	for _, qty := range []int64{5, 7} {
		line, err := order.NewReceivingLine(product.ID, qty, decimal.NewFromInt(12), nil)
		require.NoError(t, err)
		order.AttachLine(*line)
	}
	require.NoError(t, repo.Save(ctx, order))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "PN-TEST-1", found.Code)
	assert.Equal(t, "Acme", found.Supplier)
	require.Len(t, found.Lines, 2)
	assert.Equal(t, int64(5), found.Lines[0].Quantity)
	assert.Equal(t, int64(7), found.Lines[1].Quantity)

	exists, err := repo.ExistsByCode(ctx, "PN-TEST-1")
	require.NoError(t, err)
	assert.True(t, exists)

	t.Run("save replaces lines", func(t *testing.T) {
		found.ClearLines()
		line, err := found.NewReceivingLine(product.ID, 3, decimal.NewFromInt(12), nil)
		require.NoError(t, err)
		found.AttachLine(*line)
		found.UpdateHeader("Acme Ltd", "", time.Time{})
		require.NoError(t, repo.Save(ctx, found))

		reloaded, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme Ltd", reloaded.Supplier)
		require.Len(t, reloaded.Lines, 1)
		assert.Equal(t, int64(3), reloaded.Lines[0].Quantity)
	})

	t.Run("lists within range", func(t *testing.T) {
		inside, err := repo.FindAll(ctx, shared.Filter{Range: shared.DateRange{
			From: receivedAt.Add(-time.Hour),
			To:   receivedAt.Add(time.Hour),
		}})
		require.NoError(t, err)
		assert.Len(t, inside, 1)

		outside, err := repo.FindAll(ctx, shared.Filter{Range: shared.DateRange{From: receivedAt.Add(time.Hour)}})
		require.NoError(t, err)
		assert.Empty(t, outside)
	})

	t.Run("delete removes header and lines", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, order.ID))
		_, err := repo.FindByID(ctx, order.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		var lines int64
		require.NoError(t, db.Table("receiving_lines").Where("order_id = ?", order.ID).Count(&lines).Error)
		assert.Zero(t, lines)
		assert.ErrorIs(t, repo.Delete(ctx, order.ID), shared.ErrNotFound)
	})
}

func TestGormShippingOrderRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormShippingOrderRepository(db)
	ctx := context.Background()
	product := createTestProduct(t, db, "Serum")

	shippedAt := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	order := trade.NewShippingOrder("", "Bob", "", shippedAt, "alice")
	line, err := order.NewShippingLine(product.ID, 4, decimal.NewFromInt(1000), decimal.NewFromInt(10))
	require.NoError(t, err)
	allocationID := uuid.New()
	line.AllocationID = &allocationID
	order.AttachLine(*line)
	require.NoError(t, repo.Save(ctx, order))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Contains(t, found.Code, trade.ShippingCodePrefix)
	require.Len(t, found.Lines, 1)
	assert.True(t, found.Lines[0].DiscountPercent.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, []uuid.UUID{allocationID}, found.OutstandingAllocationIDs())
	assert.True(t, found.TotalAmount().Equal(decimal.NewFromInt(3600)))

	t.Run("duplicate code is rejected", func(t *testing.T) {
		dup := trade.NewShippingOrder(order.Code, "Carol", "", shippedAt, "alice")
		assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("search by customer", func(t *testing.T) {
		list, err := repo.FindAll(ctx, shared.Filter{Search: "Bob"})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	require.NoError(t, repo.Delete(ctx, order.ID))
	_, err = repo.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
