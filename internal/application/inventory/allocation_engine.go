package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"go.uber.org/zap"
)

// ApplyResult is an applied allocation with the movements it made
type ApplyResult struct {
	Allocation *inventory.AppliedAllocation
	Events     []inventory.LedgerEvent
}

// ReleaseResult is a released allocation with the movements that restored it
type ReleaseResult struct {
	Allocation *inventory.AppliedAllocation
	Events     []inventory.LedgerEvent
}

// AllocationEngine plans FIFO allocations, applies them atomically and
// releases them exactly. Every mutation of one product's stock happens
// inside that product's critical section.
type AllocationEngine struct {
	batchRepo      inventory.BatchRepository
	allocationRepo inventory.AllocationRepository
	txScope        TransactionScope
	locker         inventory.ProductLocker
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewAllocationEngine creates a new AllocationEngine
func NewAllocationEngine(
	batchRepo inventory.BatchRepository,
	allocationRepo inventory.AllocationRepository,
	txScope TransactionScope,
	locker inventory.ProductLocker,
	logger *zap.Logger,
) *AllocationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationEngine{
		batchRepo:      batchRepo,
		allocationRepo: allocationRepo,
		txScope:        txScope,
		locker:         locker,
		logger:         logger,
		now:            time.Now,
	}
}

// SetEventPublisher sets the event publisher for allocation events
func (e *AllocationEngine) SetEventPublisher(publisher shared.EventPublisher) {
	e.eventPublisher = publisher
}

// Plan computes a FIFO plan from the current eligible batches. It mutates
// nothing and takes no lock, so the plan may be stale by the time it is applied.
func (e *AllocationEngine) Plan(ctx context.Context, productID uuid.UUID, quantity int64) (*inventory.AllocationPlan, error) {
	if quantity <= 0 {
		return nil, inventory.ErrInvalidQuantity
	}
	batches, err := e.batchRepo.FindEligible(ctx, productID)
	if err != nil {
		return nil, err
	}
	return inventory.PlanFIFO(productID, quantity, batches)
}

// Apply decrements every batch of plan inside the product's critical section.
// If any entry fails, the entries already applied are restored and a
// ConflictError is returned.
func (e *AllocationEngine) Apply(ctx context.Context, plan *inventory.AllocationPlan, sourceLineID *uuid.UUID) (*ApplyResult, error) {
	if plan == nil || len(plan.Entries) == 0 {
		return nil, inventory.ErrInvalidQuantity
	}
	unlock, err := e.lock(ctx, plan.ProductID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return e.applyLocked(ctx, plan, sourceLineID)
}

// Allocate plans and applies quantity of productID in one critical section,
// so no other writer can shrink stock between the check and the decrement.
func (e *AllocationEngine) Allocate(ctx context.Context, productID uuid.UUID, quantity int64, sourceLineID *uuid.UUID) (*ApplyResult, error) {
	if quantity <= 0 {
		return nil, inventory.ErrInvalidQuantity
	}
	unlock, err := e.lock(ctx, productID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	plan, err := e.Plan(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	return e.applyLocked(ctx, plan, sourceLineID)
}

// Release restores every entry of a stored allocation and marks it released.
// Releasing twice fails with ErrAllocationReleased.
func (e *AllocationEngine) Release(ctx context.Context, allocationID uuid.UUID) (*ReleaseResult, error) {
	allocation, err := e.allocationRepo.FindByID(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	unlock, err := e.lock(ctx, allocation.ProductID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	allocation, err = e.allocationRepo.FindByID(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	if allocation.Released {
		return nil, inventory.ErrAllocationReleased
	}

	var moved []inventory.LedgerEvent
	err = e.txScope.Execute(context.WithoutCancel(ctx), func(repos TransactionalRepositories) error {
		batches := repos.BatchRepo()
		for _, entry := range allocation.Entries {
			remaining, err := batches.AdjustRemaining(ctx, entry.BatchID, entry.Quantity)
			if err != nil {
				return e.compensate(ctx, batches, allocation.ProductID, entry.BatchID, err, moved)
			}
			moved = append(moved, e.movement(inventory.LedgerEventReleased, allocation, entry, entry.Quantity, remaining))
		}
		if err := repos.AllocationRepo().MarkReleased(ctx, allocation.ID, e.now()); err != nil {
			conflict := e.compensate(ctx, batches, allocation.ProductID, uuid.Nil, err, moved)
			if errors.Is(err, inventory.ErrAllocationReleased) {
				return err
			}
			return conflict
		}
		return nil
	})
	if err != nil {
		e.logFailure("allocation release failed", allocation.ProductID, err)
		return nil, err
	}
	_ = allocation.MarkReleased()

	e.logger.Info("allocation released",
		zap.String("allocation_id", allocation.ID.String()),
		zap.String("product_id", allocation.ProductID.String()),
		zap.Int64("quantity", allocation.TotalQuantity()),
	)
	e.publish(ctx, inventory.EventTypeAllocationReleased, allocation.ID, allocation.ProductID, moved)
	return &ReleaseResult{Allocation: allocation, Events: moved}, nil
}

func (e *AllocationEngine) applyLocked(ctx context.Context, plan *inventory.AllocationPlan, sourceLineID *uuid.UUID) (*ApplyResult, error) {
	allocation := inventory.NewAppliedAllocation(plan, sourceLineID)

	var moved []inventory.LedgerEvent
	// The transaction outlives a cancelled caller so the compensation below
	// still runs on it; ctx.Err is checked between entries instead.
	err := e.txScope.Execute(context.WithoutCancel(ctx), func(repos TransactionalRepositories) error {
		batches := repos.BatchRepo()
		for _, entry := range allocation.Entries {
			if err := ctx.Err(); err != nil {
				return e.compensate(ctx, batches, plan.ProductID, entry.BatchID, err, moved)
			}
			if entry.Quantity <= 0 {
				return e.compensate(ctx, batches, plan.ProductID, entry.BatchID, inventory.ErrInvalidQuantity, moved)
			}
			if err := e.checkSupply(ctx, batches, plan.ProductID, entry.BatchID); err != nil {
				return e.compensate(ctx, batches, plan.ProductID, entry.BatchID, err, moved)
			}
			remaining, err := batches.AdjustRemaining(ctx, entry.BatchID, -entry.Quantity)
			if err != nil {
				return e.compensate(ctx, batches, plan.ProductID, entry.BatchID, err, moved)
			}
			moved = append(moved, e.movement(inventory.LedgerEventApplied, allocation, entry, -entry.Quantity, remaining))
			e.logger.Debug("batch drawn",
				zap.String("batch_id", entry.BatchID.String()),
				zap.Int64("quantity", entry.Quantity),
				zap.Int64("remaining", remaining),
			)
		}
		if err := repos.AllocationRepo().Save(ctx, allocation); err != nil {
			return e.compensate(ctx, batches, plan.ProductID, uuid.Nil, err, moved)
		}
		return nil
	})
	if err != nil {
		var conflict *inventory.ConflictError
		if errors.As(err, &conflict) && len(conflict.RolledBack) > 0 {
			e.publish(ctx, inventory.EventTypeAllocationRolledBack, allocation.ID, plan.ProductID, conflict.RolledBack)
		}
		e.logFailure("allocation apply failed", plan.ProductID, err)
		return nil, err
	}

	e.logger.Info("allocation applied",
		zap.String("allocation_id", allocation.ID.String()),
		zap.String("product_id", plan.ProductID.String()),
		zap.Int64("quantity", allocation.TotalQuantity()),
		zap.Int("batches", len(allocation.Entries)),
	)
	e.publish(ctx, inventory.EventTypeAllocationApplied, allocation.ID, plan.ProductID, moved)
	return &ApplyResult{Allocation: allocation, Events: moved}, nil
}

// checkSupply reloads a planned batch and refuses it once it has been
// retired or if it belongs to another product. A plan may be older than the
// batch state it names.
func (e *AllocationEngine) checkSupply(ctx context.Context, batches inventory.BatchRepository, productID, batchID uuid.UUID) error {
	batch, err := batches.FindByID(ctx, batchID)
	if err != nil {
		return err
	}
	return batch.CanSupply(productID)
}

// compensate reverses moved in reverse order and returns a ConflictError
// carrying cause. Compensation ignores cancellation of ctx so that a
// cancelled caller never leaves a half-applied allocation behind.
func (e *AllocationEngine) compensate(
	ctx context.Context,
	batches inventory.BatchRepository,
	productID, batchID uuid.UUID,
	cause error,
	moved []inventory.LedgerEvent,
) error {
	ctx = context.WithoutCancel(ctx)
	conflict := inventory.NewConflictError(productID, batchID, cause)
	for i := len(moved) - 1; i >= 0; i-- {
		m := moved[i]
		remaining, err := batches.AdjustRemaining(ctx, m.BatchID, -m.Delta)
		if err != nil {
			e.logger.Error("compensation failed",
				zap.String("batch_id", m.BatchID.String()),
				zap.Int64("delta", -m.Delta),
				zap.Error(err),
			)
			continue
		}
		conflict.RolledBack = append(conflict.RolledBack, inventory.LedgerEvent{
			Kind:           inventory.LedgerEventRolledBack,
			ProductID:      productID,
			BatchID:        m.BatchID,
			BatchCode:      m.BatchCode,
			Delta:          -m.Delta,
			RemainingAfter: remaining,
			AllocationID:   m.AllocationID,
			At:             e.now(),
		})
	}
	return conflict
}

func (e *AllocationEngine) movement(
	kind inventory.LedgerEventKind,
	allocation *inventory.AppliedAllocation,
	entry inventory.AllocationEntry,
	delta, remaining int64,
) inventory.LedgerEvent {
	return inventory.LedgerEvent{
		Kind:           kind,
		ProductID:      allocation.ProductID,
		BatchID:        entry.BatchID,
		BatchCode:      entry.BatchCode,
		Delta:          delta,
		RemainingAfter: remaining,
		AllocationID:   allocation.ID,
		At:             e.now(),
	}
}

func (e *AllocationEngine) lock(ctx context.Context, productID uuid.UUID) (func(), error) {
	unlock, err := e.locker.Lock(ctx, inventory.ProductLockKey(productID))
	if err != nil {
		return nil, fmt.Errorf("lock product %s: %w", productID, err)
	}
	return unlock, nil
}

func (e *AllocationEngine) logFailure(msg string, productID uuid.UUID, err error) {
	fields := []zap.Field{zap.String("product_id", productID.String()), zap.Error(err)}
	if errors.Is(err, inventory.ErrConflict) {
		e.logger.Warn(msg, fields...)
		return
	}
	e.logger.Debug(msg, fields...)
}

func (e *AllocationEngine) publish(ctx context.Context, eventType string, allocationID, productID uuid.UUID, movements []inventory.LedgerEvent) {
	if e.eventPublisher == nil || len(movements) == 0 {
		return
	}
	event := inventory.NewAllocationEvent(eventType, allocationID, productID, movements)
	if err := e.eventPublisher.Publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish allocation event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
