package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"go.uber.org/zap"
)

// CreateBatchInput describes a new batch
type CreateBatchInput struct {
	ProductID  uuid.UUID
	Quantity   int64
	ImportedAt time.Time
	// UnitCost overrides the product purchase price snapshot when set
	UnitCost        *decimal.Decimal
	ExpiryDate      *time.Time
	ReceivingLineID *uuid.UUID
	CreatedBy       string
}

// RemovalOutcome says what Remove did with a batch
type RemovalOutcome string

const (
	BatchDeleted RemovalOutcome = "deleted"
	BatchRetired RemovalOutcome = "retired"
)

// BatchStore owns the lifecycle of batches: creation with derived codes,
// retirement and removal. Remaining quantities change only through
// AdjustRemaining or the AllocationEngine.
type BatchStore struct {
	batchRepo      inventory.BatchRepository
	allocationRepo inventory.AllocationRepository
	products       catalog.ProductReader
	locker         inventory.ProductLocker
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewBatchStore creates a new BatchStore
func NewBatchStore(
	batchRepo inventory.BatchRepository,
	allocationRepo inventory.AllocationRepository,
	products catalog.ProductReader,
	locker inventory.ProductLocker,
	logger *zap.Logger,
) *BatchStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchStore{
		batchRepo:      batchRepo,
		allocationRepo: allocationRepo,
		products:       products,
		locker:         locker,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for batch lifecycle events
func (s *BatchStore) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateBatch posts a new batch for a product. The code is derived from the
// product name and import year, and the sequence is allocated under a lock on
// the prefix so concurrent receipts never collide.
func (s *BatchStore) CreateBatch(ctx context.Context, in CreateBatchInput) (*inventory.Batch, error) {
	if in.Quantity <= 0 {
		return nil, inventory.ErrInvalidQuantity
	}
	product, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	importedAt := in.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now()
	}
	unitCost := product.PurchasePrice
	if in.UnitCost != nil {
		unitCost = *in.UnitCost
	}

	prefix := inventory.BatchCodePrefix(product.Name, importedAt)
	unlock, err := s.locker.Lock(ctx, inventory.BatchCodeLockKey(prefix))
	if err != nil {
		return nil, fmt.Errorf("lock batch code %s: %w", prefix, err)
	}
	defer unlock()

	seq, err := s.batchRepo.MaxCodeSequence(ctx, prefix)
	if err != nil {
		return nil, err
	}
	batch, err := inventory.NewBatch(product.ID, inventory.FormatBatchCode(prefix, seq+1), in.Quantity, importedAt, unitCost)
	if err != nil {
		return nil, err
	}
	batch.ExpiryDate = in.ExpiryDate
	batch.ReceivingLineID = in.ReceivingLineID
	batch.CreatedBy = in.CreatedBy

	if err := s.batchRepo.Save(ctx, batch); err != nil {
		return nil, err
	}
	s.logger.Info("batch created",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_code", batch.Code),
		zap.String("product_id", batch.ProductID.String()),
		zap.Int64("quantity", batch.QuantityImported),
	)
	s.publish(ctx, batch)
	return batch, nil
}

// Get returns a batch by ID
func (s *BatchStore) Get(ctx context.Context, batchID uuid.UUID) (*inventory.Batch, error) {
	return s.batchRepo.FindByID(ctx, batchID)
}

// ListEligible returns the batches FIFO would draw from, oldest first
func (s *BatchStore) ListEligible(ctx context.Context, productID uuid.UUID) ([]inventory.Batch, error) {
	return s.batchRepo.FindEligible(ctx, productID)
}

// AdjustRemaining applies a manual correction to one batch under its product lock
func (s *BatchStore) AdjustRemaining(ctx context.Context, batchID uuid.UUID, delta int64) (int64, error) {
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return 0, err
	}
	if delta == 0 {
		return batch.QuantityRemaining, nil
	}

	unlock, err := s.locker.Lock(ctx, inventory.ProductLockKey(batch.ProductID))
	if err != nil {
		return 0, fmt.Errorf("lock product %s: %w", batch.ProductID, err)
	}
	defer unlock()

	remaining, err := s.batchRepo.AdjustRemaining(ctx, batchID, delta)
	if err != nil {
		return remaining, err
	}
	s.logger.Info("batch remaining adjusted",
		zap.String("batch_id", batchID.String()),
		zap.Int64("delta", delta),
		zap.Int64("remaining", remaining),
	)
	return remaining, nil
}

// Retire deactivates a batch. It is refused while an unreleased allocation
// still draws from the batch.
func (s *BatchStore) Retire(ctx context.Context, batchID uuid.UUID) (*inventory.Batch, error) {
	var batch *inventory.Batch
	err := s.withBatchLock(ctx, batchID, func(b *inventory.Batch) error {
		if err := s.ensureNoOutstanding(ctx, b.ID); err != nil {
			return err
		}
		b.Retire()
		batch = b
		return s.batchRepo.Save(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, batch)
	return batch, nil
}

// Delete removes a batch that nothing ever drew from. A batch with
// outstanding allocations fails with ErrRetireConflict; one that was drawn
// from fails with ErrBatchDrawn and must be retired instead.
func (s *BatchStore) Delete(ctx context.Context, batchID uuid.UUID) error {
	return s.withBatchLock(ctx, batchID, func(b *inventory.Batch) error {
		return s.deleteLocked(ctx, b)
	})
}

// Remove deletes the batch when it was never drawn from and retires it
// otherwise. Outstanding allocations refuse both.
func (s *BatchStore) Remove(ctx context.Context, batchID uuid.UUID) (RemovalOutcome, error) {
	var outcome RemovalOutcome
	var retired *inventory.Batch
	err := s.withBatchLock(ctx, batchID, func(b *inventory.Batch) error {
		err := s.deleteLocked(ctx, b)
		switch {
		case err == nil:
			outcome = BatchDeleted
			return nil
		case !errors.Is(err, inventory.ErrBatchDrawn):
			return err
		}
		b.Retire()
		if err := s.batchRepo.Save(ctx, b); err != nil {
			return err
		}
		outcome = BatchRetired
		retired = b
		return nil
	})
	if err != nil {
		return "", err
	}
	if retired != nil {
		s.publish(ctx, retired)
	}
	return outcome, nil
}

// EnsureRemovable fails with ErrRetireConflict while an unreleased
// allocation still draws from the batch
func (s *BatchStore) EnsureRemovable(ctx context.Context, batchID uuid.UUID) error {
	return s.ensureNoOutstanding(ctx, batchID)
}

// Restore puts back a batch removed by Remove, reactivating it if it was
// retired or re-inserting it if it was deleted. It is used to compensate
// failed order edits.
func (s *BatchStore) Restore(ctx context.Context, batch *inventory.Batch) error {
	batch.Reactivate()
	if err := s.batchRepo.Save(ctx, batch); err != nil {
		return err
	}
	s.logger.Debug("batch restored", zap.String("batch_id", batch.ID.String()))
	return nil
}

func (s *BatchStore) deleteLocked(ctx context.Context, b *inventory.Batch) error {
	if err := s.ensureNoOutstanding(ctx, b.ID); err != nil {
		return err
	}
	drawn, err := s.allocationRepo.CountByBatch(ctx, b.ID)
	if err != nil {
		return err
	}
	if drawn > 0 || b.Drawn() > 0 {
		return inventory.ErrBatchDrawn
	}
	if err := s.batchRepo.Delete(ctx, b.ID); err != nil {
		return err
	}
	s.logger.Info("batch deleted",
		zap.String("batch_id", b.ID.String()),
		zap.String("batch_code", b.Code),
	)
	return nil
}

func (s *BatchStore) ensureNoOutstanding(ctx context.Context, batchID uuid.UUID) error {
	outstanding, err := s.allocationRepo.CountOutstandingByBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if outstanding > 0 {
		return inventory.ErrRetireConflict
	}
	return nil
}

// withBatchLock loads the batch, takes its product lock and reloads it so fn
// sees the state no allocation can change underneath.
func (s *BatchStore) withBatchLock(ctx context.Context, batchID uuid.UUID, fn func(b *inventory.Batch) error) error {
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return err
	}
	unlock, err := s.locker.Lock(ctx, inventory.ProductLockKey(batch.ProductID))
	if err != nil {
		return fmt.Errorf("lock product %s: %w", batch.ProductID, err)
	}
	defer unlock()

	batch, err = s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return err
	}
	return fn(batch)
}

func (s *BatchStore) publish(ctx context.Context, batch *inventory.Batch) {
	events := batch.PullDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish batch events", zap.Error(err))
	}
}
