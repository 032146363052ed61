package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BatchRepository persists batches
type BatchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Batch, error)
	// FindEligible returns active batches with remaining > 0, oldest first
	FindEligible(ctx context.Context, productID uuid.UUID) ([]Batch, error)
	// FindActiveByProduct returns all active batches of a product, oldest first
	FindActiveByProduct(ctx context.Context, productID uuid.UUID) ([]Batch, error)
	// FindActive returns all active batches of every product
	FindActive(ctx context.Context) ([]Batch, error)
	FindByReceivingLines(ctx context.Context, lineIDs []uuid.UUID) ([]Batch, error)
	// MaxCodeSequence returns the highest sequence already used under prefix, 0 if none.
	// Every product is considered, because batch codes are unique ledger-wide.
	MaxCodeSequence(ctx context.Context, prefix string) (int, error)
	Save(ctx context.Context, batch *Batch) error
	// AdjustRemaining applies delta only if the result stays within
	// [0, imported] and returns the new remaining quantity.
	AdjustRemaining(ctx context.Context, batchID uuid.UUID, delta int64) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AllocationRepository persists applied allocations and their entries
type AllocationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*AppliedAllocation, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]AppliedAllocation, error)
	Save(ctx context.Context, allocation *AppliedAllocation) error
	// MarkReleased flips released from false to true, failing with
	// ErrAllocationReleased if another caller got there first.
	MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) error
	// CountOutstandingByBatch counts unreleased allocations drawing from batchID
	CountOutstandingByBatch(ctx context.Context, batchID uuid.UUID) (int64, error)
	// CountByBatch counts every allocation, released or not, drawing from batchID
	CountByBatch(ctx context.Context, batchID uuid.UUID) (int64, error)
}

// ProductLocker serialises ledger mutations per key. Unlock must be called
// exactly once after a successful Lock.
type ProductLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ProductLockKey returns the critical section key for stock of one product
func ProductLockKey(productID uuid.UUID) string {
	return "stock:product:" + productID.String()
}

// BatchCodeLockKey returns the critical section key for code sequence allocation
func BatchCodeLockKey(prefix string) string {
	return "stock:batch-code:" + prefix
}
