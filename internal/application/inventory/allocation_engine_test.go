package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"go.uber.org/zap/zaptest"
)

type engineFixture struct {
	engine      *AllocationEngine
	batches     *memoryBatchRepo
	allocations *memoryAllocationRepo
	publisher   *MockEventPublisher
	productID   uuid.UUID
	b1, b2      uuid.UUID
}

// newEngineFixture seeds B1 (Jan-1, 10 units) and B2 (Feb-1, 5 units)
func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	batches := newMemoryBatchRepo()
	allocations := newMemoryAllocationRepo()
	publisher := NewMockEventPublisher()
	engine := NewAllocationEngine(batches, allocations, NewNoOpTransactionScope(batches, allocations), newTestLocker(), zaptest.NewLogger(t))
	engine.SetEventPublisher(publisher)

	productID := uuid.New()
	seed := func(code string, qty int64, at time.Time, cost int64) uuid.UUID {
		b, err := inventory.NewBatch(productID, code, qty, at, decimal.NewFromInt(cost))
		require.NoError(t, err)
		require.NoError(t, batches.Save(context.Background(), b))
		return b.ID
	}

	return &engineFixture{
		engine:      engine,
		batches:     batches,
		allocations: allocations,
		publisher:   publisher,
		productID:   productID,
		b1:          seed("SER2024001", 10, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100),
		b2:          seed("SER2024002", 5, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 120),
	}
}

func TestAllocationEngine_Allocate_FIFO(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	result, err := f.engine.Allocate(ctx, f.productID, 12, nil)
	require.NoError(t, err)

	entries := result.Allocation.Entries
	require.Len(t, entries, 2)
	assert.Equal(t, f.b1, entries[0].BatchID)
	assert.Equal(t, int64(10), entries[0].Quantity)
	assert.Equal(t, f.b2, entries[1].BatchID)
	assert.Equal(t, int64(2), entries[1].Quantity)
	assert.Equal(t, int64(0), f.batches.remaining(f.b1))
	assert.Equal(t, int64(3), f.batches.remaining(f.b2))
	assert.True(t, result.Allocation.TotalCost().Equal(decimal.NewFromInt(10*100+2*120)))

	require.Len(t, result.Events, 2)
	assert.Equal(t, inventory.LedgerEventApplied, result.Events[0].Kind)
	assert.Equal(t, int64(-10), result.Events[0].Delta)
	assert.Equal(t, int64(0), result.Events[0].RemainingAfter)
	assert.Equal(t, int64(-2), result.Events[1].Delta)
	assert.Equal(t, int64(3), result.Events[1].RemainingAfter)

	stored, err := f.allocations.FindByID(ctx, result.Allocation.ID)
	require.NoError(t, err)
	assert.False(t, stored.Released)

	published := f.publisher.GetEventsByType(inventory.EventTypeAllocationApplied)
	require.Len(t, published, 1)
	assert.Len(t, published[0].(*inventory.AllocationEvent).Movements, 2)

	t.Run("insufficient stock leaves batches unchanged", func(t *testing.T) {
		_, err := f.engine.Allocate(ctx, f.productID, 20, nil)
		var ise *inventory.InsufficientStockError
		require.ErrorAs(t, err, &ise)
		assert.Equal(t, int64(3), ise.Available)
		assert.Equal(t, int64(20), ise.Requested)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, int64(0), f.batches.remaining(f.b1))
		assert.Equal(t, int64(3), f.batches.remaining(f.b2))
	})

	t.Run("release restores exactly", func(t *testing.T) {
		released, err := f.engine.Release(ctx, result.Allocation.ID)
		require.NoError(t, err)
		assert.True(t, released.Allocation.Released)
		assert.Equal(t, int64(10), f.batches.remaining(f.b1))
		assert.Equal(t, int64(5), f.batches.remaining(f.b2))
		require.Len(t, released.Events, 2)
		assert.Equal(t, inventory.LedgerEventReleased, released.Events[0].Kind)
		assert.Equal(t, int64(10), released.Events[0].Delta)
		assert.Len(t, f.publisher.GetEventsByType(inventory.EventTypeAllocationReleased), 1)
	})

	t.Run("second release is refused", func(t *testing.T) {
		_, err := f.engine.Release(ctx, result.Allocation.ID)
		assert.ErrorIs(t, err, inventory.ErrAllocationReleased)
		assert.Equal(t, int64(10), f.batches.remaining(f.b1))
		assert.Equal(t, int64(5), f.batches.remaining(f.b2))
	})
}

func TestAllocationEngine_Plan(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	plan, err := f.engine.Plan(ctx, f.productID, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(15), plan.TotalQuantity())
	assert.Equal(t, int64(10), f.batches.remaining(f.b1), "planning mutates nothing")

	_, err = f.engine.Plan(ctx, f.productID, 0)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
	_, err = f.engine.Allocate(ctx, f.productID, -1, nil)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
	_, err = f.engine.Apply(ctx, &inventory.AllocationPlan{ProductID: f.productID}, nil)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
}

func TestAllocationEngine_Apply_StalePlanRollsBack(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	plan, err := f.engine.Plan(ctx, f.productID, 12)
	require.NoError(t, err)

	// Another writer takes most of B2 after the plan was computed.
	_, err = f.batches.AdjustRemaining(ctx, f.b2, -4)
	require.NoError(t, err)

	_, err = f.engine.Apply(ctx, plan, nil)
	require.Error(t, err)

	var conflict *inventory.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, f.b2, conflict.BatchID)
	assert.ErrorIs(t, err, inventory.ErrConflict)
	assert.ErrorIs(t, err, inventory.ErrNegativeStock)
	assert.Equal(t, inventory.CodeConflict, shared.CodeOf(err))

	require.Len(t, conflict.RolledBack, 1)
	assert.Equal(t, inventory.LedgerEventRolledBack, conflict.RolledBack[0].Kind)
	assert.Equal(t, int64(10), conflict.RolledBack[0].Delta)
	assert.Equal(t, int64(10), f.batches.remaining(f.b1))
	assert.Equal(t, int64(1), f.batches.remaining(f.b2))
	assert.Empty(t, f.allocations.allocations)
	assert.Len(t, f.publisher.GetEventsByType(inventory.EventTypeAllocationRolledBack), 1)
}

func TestAllocationEngine_Apply_RefusesUnsuppliableBatches(t *testing.T) {
	t.Run("batch retired after planning", func(t *testing.T) {
		f := newEngineFixture(t)
		ctx := context.Background()

		plan, err := f.engine.Plan(ctx, f.productID, 12)
		require.NoError(t, err)

		retired, err := f.batches.FindByID(ctx, f.b2)
		require.NoError(t, err)
		retired.Retire()
		require.NoError(t, f.batches.Save(ctx, retired))

		_, err = f.engine.Apply(ctx, plan, nil)
		var conflict *inventory.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, f.b2, conflict.BatchID)
		assert.ErrorIs(t, err, inventory.ErrBatchInactive)
		assert.ErrorIs(t, err, inventory.ErrConflict)

		require.Len(t, conflict.RolledBack, 1)
		assert.Equal(t, f.b1, conflict.RolledBack[0].BatchID)
		assert.Equal(t, int64(10), f.batches.remaining(f.b1))
		assert.Equal(t, int64(5), f.batches.remaining(f.b2))
		assert.Empty(t, f.allocations.allocations)
	})

	t.Run("first batch retired", func(t *testing.T) {
		f := newEngineFixture(t)
		ctx := context.Background()

		plan, err := f.engine.Plan(ctx, f.productID, 4)
		require.NoError(t, err)
		retired, err := f.batches.FindByID(ctx, f.b1)
		require.NoError(t, err)
		retired.Retire()
		require.NoError(t, f.batches.Save(ctx, retired))

		_, err = f.engine.Apply(ctx, plan, nil)
		assert.ErrorIs(t, err, inventory.ErrBatchInactive)
		assert.Equal(t, int64(10), f.batches.remaining(f.b1))
	})

	t.Run("batch of another product", func(t *testing.T) {
		f := newEngineFixture(t)
		ctx := context.Background()

		plan := &inventory.AllocationPlan{
			ProductID: uuid.New(),
			Requested: 3,
			Entries:   []inventory.AllocationEntry{{BatchID: f.b1, Quantity: 3}},
		}
		_, err := f.engine.Apply(ctx, plan, nil)
		assert.ErrorIs(t, err, inventory.ErrForeignBatch)
		assert.Equal(t, int64(10), f.batches.remaining(f.b1))
	})

	t.Run("released stock cannot be reapplied to a retired batch", func(t *testing.T) {
		f := newEngineFixture(t)
		ctx := context.Background()

		applied, err := f.engine.Allocate(ctx, f.productID, 3, nil)
		require.NoError(t, err)
		released, err := f.engine.Release(ctx, applied.Allocation.ID)
		require.NoError(t, err)

		retired, err := f.batches.FindByID(ctx, f.b1)
		require.NoError(t, err)
		retired.Retire()
		require.NoError(t, f.batches.Save(ctx, retired))

		_, err = f.engine.Apply(ctx, &inventory.AllocationPlan{
			ProductID: f.productID,
			Requested: released.Allocation.TotalQuantity(),
			Entries:   released.Allocation.Entries,
		}, nil)
		assert.ErrorIs(t, err, inventory.ErrBatchInactive)
		assert.Equal(t, int64(10), f.batches.remaining(f.b1))
	})
}

func TestAllocationEngine_Apply_FailureInjection(t *testing.T) {
	t.Run("batch write failure", func(t *testing.T) {
		f := newEngineFixture(t)
		boom := errors.New("disk full")
		f.batches.failAdjust[f.b2] = boom

		_, err := f.engine.Allocate(context.Background(), f.productID, 12, nil)
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, inventory.ErrConflict)
		assert.Equal(t, int64(10), f.batches.remaining(f.b1))
		assert.Equal(t, int64(5), f.batches.remaining(f.b2))
	})

	t.Run("allocation record failure", func(t *testing.T) {
		f := newEngineFixture(t)
		f.allocations.failSave = errors.New("insert failed")

		_, err := f.engine.Allocate(context.Background(), f.productID, 12, nil)
		var conflict *inventory.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Len(t, conflict.RolledBack, 2)
		assert.Equal(t, int64(10), f.batches.remaining(f.b1))
		assert.Equal(t, int64(5), f.batches.remaining(f.b2))
	})

	t.Run("cancellation between entries", func(t *testing.T) {
		f := newEngineFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f.batches.afterAdjust = func(uuid.UUID) { cancel() }

		_, err := f.engine.Allocate(ctx, f.productID, 12, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, inventory.ErrConflict)

		f.batches.afterAdjust = nil
		assert.Equal(t, int64(10), f.batches.remaining(f.b1))
		assert.Equal(t, int64(5), f.batches.remaining(f.b2))
	})
}

func TestAllocationEngine_Release_Failure(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	result, err := f.engine.Allocate(ctx, f.productID, 12, nil)
	require.NoError(t, err)

	boom := errors.New("connection reset")
	f.batches.failAdjust[f.b2] = boom
	_, err = f.engine.Release(ctx, result.Allocation.ID)
	assert.ErrorIs(t, err, boom)
	delete(f.batches.failAdjust, f.b2)

	assert.Equal(t, int64(0), f.batches.remaining(f.b1), "partial restore is undone")
	assert.Equal(t, int64(3), f.batches.remaining(f.b2))
	stored, err := f.allocations.FindByID(ctx, result.Allocation.ID)
	require.NoError(t, err)
	assert.False(t, stored.Released)

	_, err = f.engine.Release(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAllocationEngine_ConcurrentAllocations(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	const workers = 40
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Allocate(ctx, f.productID, 1, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, shared.ErrInsufficientStock):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 15, succeeded)
	assert.Equal(t, workers-15, insufficient)
	assert.Equal(t, int64(0), f.batches.remaining(f.b1))
	assert.Equal(t, int64(0), f.batches.remaining(f.b2))
}
