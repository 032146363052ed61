package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appinv "github.com/thanhnm3/khomypham/internal/application/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"github.com/thanhnm3/khomypham/internal/domain/trade"
	"github.com/thanhnm3/khomypham/internal/infrastructure/config"
	"github.com/thanhnm3/khomypham/internal/infrastructure/lock"
	"github.com/thanhnm3/khomypham/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

type profitFixture struct {
	service   *ProfitService
	engine    *appinv.AllocationEngine
	products  *persistence.GormProductRepository
	batches   *persistence.GormBatchRepository
	shipping  *persistence.GormShippingOrderRepository
	receiving *persistence.GormReceivingOrderRepository
}

func newProfitFixture(t *testing.T) *profitFixture {
	t.Helper()

	database, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: ":memory:",
	}, zap.NewNop(), "silent")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.AutoMigrate())

	db := database.DB
	f := &profitFixture{
		products:  persistence.NewGormProductRepository(db),
		batches:   persistence.NewGormBatchRepository(db),
		shipping:  persistence.NewGormShippingOrderRepository(db),
		receiving: persistence.NewGormReceivingOrderRepository(db),
	}
	allocations := persistence.NewGormAllocationRepository(db)
	f.engine = appinv.NewAllocationEngine(f.batches, allocations, persistence.NewGormTransactionScope(db), lock.NewLocalProductLocker(), nil)
	f.service = NewProfitService(f.shipping, f.receiving, allocations, f.products, nil)
	return f
}

func (f *profitFixture) product(t *testing.T, name string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("", name, "box", decimal.NewFromInt(10), decimal.NewFromInt(15))
	require.NoError(t, err)
	require.NoError(t, f.products.Save(context.Background(), p))
	return p
}

func (f *profitFixture) batch(t *testing.T, productID uuid.UUID, code string, qty int64, cost int64, at time.Time) {
	t.Helper()
	b, err := inventory.NewBatch(productID, code, qty, at, decimal.NewFromInt(cost))
	require.NoError(t, err)
	require.NoError(t, f.batches.Save(context.Background(), b))
}

// ship posts a one-line shipping header through the allocation engine
func (f *profitFixture) ship(t *testing.T, productID uuid.UUID, qty int64, price, discount int64, at time.Time) (*trade.ShippingOrder, *inventory.AppliedAllocation) {
	t.Helper()
	ctx := context.Background()
	order := trade.NewShippingOrder("", "Khach", "", at, "admin")
	line, err := order.NewShippingLine(productID, qty, decimal.NewFromInt(price), decimal.NewFromInt(discount))
	require.NoError(t, err)
	res, err := f.engine.Allocate(ctx, productID, qty, &line.ID)
	require.NoError(t, err)
	line.AttachAllocation(res.Allocation)
	order.AttachLine(*line)
	require.NoError(t, f.shipping.Save(ctx, order))
	return order, res.Allocation
}

func TestProfitService_ProductMargins(t *testing.T) {
	f := newProfitFixture(t)
	ctx := context.Background()
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rng := shared.DateRange{From: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)}
	inRange := rng.From.Add(48 * time.Hour)

	serum := f.product(t, "Serum ABC")
	gift := f.product(t, "Gift Bag")
	f.batch(t, serum.ID, "SER2025001", 10, 600, jan)
	f.batch(t, serum.ID, "SER2025002", 10, 700, jan.AddDate(0, 1, 0))
	f.batch(t, gift.ID, "GIF2025001", 5, 0, jan)

	serumOrder, _ := f.ship(t, serum.ID, 12, 1000, 10, inRange)
	f.ship(t, gift.ID, 1, 50, 0, inRange)

	_, released := f.ship(t, serum.ID, 1, 1000, 0, inRange)
	_, err := f.engine.Release(ctx, released.ID)
	require.NoError(t, err)

	f.ship(t, serum.ID, 1, 1000, 0, rng.From.Add(-time.Hour))

	received := trade.NewReceivingOrder("", "NCC", "", inRange, "admin")
	line, err := received.NewReceivingLine(serum.ID, 10, decimal.NewFromInt(600), nil)
	require.NoError(t, err)
	received.AttachLine(*line)
	require.NoError(t, f.receiving.Save(ctx, received))

	rep, err := f.service.ProductMargins(ctx, rng)
	require.NoError(t, err)

	require.Len(t, rep.Products, 2)
	top := rep.Products[0]
	assert.Equal(t, "Serum ABC", top.ProductName)
	assert.Equal(t, int64(12), top.QuantitySold)
	assert.True(t, decimal.NewFromInt(10800).Equal(top.Revenue), top.Revenue.String())
	assert.True(t, decimal.NewFromInt(7400).Equal(top.Cost), top.Cost.String())
	assert.True(t, decimal.NewFromInt(3400).Equal(top.Profit))
	assert.True(t, top.MarginDefined)
	assert.True(t, decimal.RequireFromString("45.95").Equal(top.MarginPercent), top.MarginPercent.String())

	bag := rep.Products[1]
	assert.Equal(t, "Gift Bag", bag.ProductName)
	assert.False(t, bag.MarginDefined)
	assert.True(t, bag.MarginPercent.IsZero())

	assert.True(t, decimal.NewFromInt(10850).Equal(rep.TotalRevenue))
	assert.True(t, decimal.NewFromInt(3450).Equal(rep.TotalProfit))
	assert.True(t, decimal.RequireFromString("46.62").Equal(rep.MarginPercent), rep.MarginPercent.String())
	assert.Equal(t, 3, rep.ShippingOrders)
	assert.Equal(t, 1, rep.ReceivedOrders)
	assert.True(t, decimal.NewFromInt(6000).Equal(rep.ReceivedValue))
	require.NotNil(t, rep.From)
	assert.Equal(t, rng.From, *rep.From)

	lines, err := f.service.OrderProfit(ctx, serumOrder.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, decimal.NewFromInt(3400).Equal(lines[0].Profit))
}

func TestProfitService_EmptyWindow(t *testing.T) {
	f := newProfitFixture(t)

	rep, err := f.service.ProductMargins(context.Background(), shared.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, rep.Products)
	assert.False(t, rep.MarginDefined)
	assert.Nil(t, rep.From)
	assert.True(t, rep.TotalRevenue.IsZero())
}
