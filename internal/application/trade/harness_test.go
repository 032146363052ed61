package trade

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	appinv "github.com/thanhnm3/khomypham/internal/application/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/trade"
	"github.com/thanhnm3/khomypham/internal/infrastructure/config"
	"github.com/thanhnm3/khomypham/internal/infrastructure/lock"
	"github.com/thanhnm3/khomypham/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

type harness struct {
	processor   *OrderProcessor
	products    *persistence.GormProductRepository
	batchRepo   *persistence.GormBatchRepository
	allocations *persistence.GormAllocationRepository
	receiving   *persistence.GormReceivingOrderRepository
	shipping    *flakyShippingRepo
	engine      *appinv.AllocationEngine
	allocator   *scriptedAllocator
	stock       *appinv.StockAggregator
}

// newHarness wires the processor over a fresh in-memory SQLite ledger
func newHarness(t *testing.T) *harness {
	t.Helper()

	database, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: ":memory:",
	}, zap.NewNop(), "silent")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.AutoMigrate())

	db := database.DB
	locker := lock.NewLocalProductLocker()
	h := &harness{
		products:    persistence.NewGormProductRepository(db),
		batchRepo:   persistence.NewGormBatchRepository(db),
		allocations: persistence.NewGormAllocationRepository(db),
		receiving:   persistence.NewGormReceivingOrderRepository(db),
	}
	h.shipping = &flakyShippingRepo{ShippingOrderRepository: persistence.NewGormShippingOrderRepository(db)}
	h.engine = appinv.NewAllocationEngine(h.batchRepo, h.allocations, persistence.NewGormTransactionScope(db), locker, nil)
	h.allocator = &scriptedAllocator{AllocationEngine: h.engine}
	store := appinv.NewBatchStore(h.batchRepo, h.allocations, h.products, locker, nil)
	h.stock = appinv.NewStockAggregator(h.batchRepo, h.products)
	h.processor = NewOrderProcessor(h.receiving, h.shipping, h.products, store, h.allocator, nil)
	return h
}

func (h *harness) product(t *testing.T, name string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("", name, "box", decimal.NewFromInt(10), decimal.NewFromInt(15))
	require.NoError(t, err)
	require.NoError(t, h.products.Save(context.Background(), p))
	return p
}

func (h *harness) totalStock(t *testing.T, productID uuid.UUID) int64 {
	t.Helper()
	total, err := h.stock.TotalStock(context.Background(), productID)
	require.NoError(t, err)
	return total
}

// receive posts one receiving line and returns its batch
func (h *harness) receive(t *testing.T, productID uuid.UUID, qty int64) (*trade.ReceivingOrder, *inventory.Batch) {
	t.Helper()
	res, err := h.processor.Receive(context.Background(), ReceiveCommand{
		Lines: []ReceiveLineInput{{ProductID: productID, Quantity: qty}},
	})
	require.NoError(t, err)
	require.Len(t, res.Batches, 1)
	return res.Order, &res.Batches[0]
}

// flakyShippingRepo fails Save or Delete on demand
type flakyShippingRepo struct {
	trade.ShippingOrderRepository
	failSave   atomic.Int32
	failDelete bool
}

var errStorageDown = errors.New("storage down")

func (r *flakyShippingRepo) Save(ctx context.Context, order *trade.ShippingOrder) error {
	if r.failSave.Load() > 0 {
		r.failSave.Add(-1)
		return errStorageDown
	}
	return r.ShippingOrderRepository.Save(ctx, order)
}

func (r *flakyShippingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if r.failDelete {
		return errStorageDown
	}
	return r.ShippingOrderRepository.Delete(ctx, id)
}

// scriptedAllocator fails the Nth Allocate call with a ledger conflict
type scriptedAllocator struct {
	*appinv.AllocationEngine
	conflictOn int
	calls      int
}

func (a *scriptedAllocator) Allocate(ctx context.Context, productID uuid.UUID, quantity int64, sourceLineID *uuid.UUID) (*appinv.ApplyResult, error) {
	a.calls++
	if a.conflictOn > 0 && a.calls == a.conflictOn {
		return nil, inventory.NewConflictError(productID, uuid.Nil, inventory.ErrNegativeStock)
	}
	return a.AllocationEngine.Allocate(ctx, productID, quantity, sourceLineID)
}
