package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"github.com/thanhnm3/khomypham/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const fifoOrder = "imported_at ASC, id ASC"

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a batch by ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	var model models.BatchModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError("find batch", err)
	}
	return model.ToDomain(), nil
}

// FindByIDs finds batches by IDs, oldest first
func (r *GormBatchRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.Batch, error) {
	if len(ids) == 0 {
		return []inventory.Batch{}, nil
	}
	return r.find(ctx, "find batches", r.db.WithContext(ctx).Where("id IN ?", ids))
}

// FindEligible returns active batches with stock left, in FIFO order
func (r *GormBatchRepository) FindEligible(ctx context.Context, productID uuid.UUID) ([]inventory.Batch, error) {
	q := r.db.WithContext(ctx).
		Where("product_id = ? AND active = ? AND qty_remaining > 0", productID, true)
	return r.find(ctx, "find eligible batches", q)
}

// FindActiveByProduct returns all active batches of a product in FIFO order
func (r *GormBatchRepository) FindActiveByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.Batch, error) {
	q := r.db.WithContext(ctx).Where("product_id = ? AND active = ?", productID, true)
	return r.find(ctx, "find active batches", q)
}

// FindActive returns every active batch in FIFO order
func (r *GormBatchRepository) FindActive(ctx context.Context) ([]inventory.Batch, error) {
	return r.find(ctx, "find active batches", r.db.WithContext(ctx).Where("active = ?", true))
}

// FindByReceivingLines returns the batches posted by the given receiving lines
func (r *GormBatchRepository) FindByReceivingLines(ctx context.Context, lineIDs []uuid.UUID) ([]inventory.Batch, error) {
	if len(lineIDs) == 0 {
		return []inventory.Batch{}, nil
	}
	return r.find(ctx, "find batches by receiving line", r.db.WithContext(ctx).Where("receiving_line_id IN ?", lineIDs))
}

func (r *GormBatchRepository) find(_ context.Context, op string, q *gorm.DB) ([]inventory.Batch, error) {
	var rows []models.BatchModel
	if err := q.Order(fifoOrder).Find(&rows).Error; err != nil {
		return nil, translateError(op, err)
	}
	batches := make([]inventory.Batch, len(rows))
	for i := range rows {
		batches[i] = *rows[i].ToDomain()
	}
	return batches, nil
}

// MaxCodeSequence returns the highest sequence used under prefix across all products
func (r *GormBatchRepository) MaxCodeSequence(ctx context.Context, prefix string) (int, error) {
	var codes []string
	err := r.db.WithContext(ctx).Model(&models.BatchModel{}).
		Where("code LIKE ?", prefix+"%").
		Pluck("code", &codes).Error
	if err != nil {
		return 0, translateError("max batch code", err)
	}
	maxSeq := 0
	for _, code := range codes {
		if seq, ok := inventory.BatchCodeSequence(prefix, code); ok && seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq, nil
}

// Save inserts a batch, or updates its descriptive columns if it exists.
// Quantities are never overwritten here; they only move through AdjustRemaining.
func (r *GormBatchRepository) Save(ctx context.Context, batch *inventory.Batch) error {
	model := models.BatchModelFromDomain(batch)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"code", "unit_cost", "expiry_date", "active", "receiving_line_id", "updated_at",
		}),
	}).Create(model).Error
	return translateError("save batch", err)
}

// AdjustRemaining applies delta with a conditional update so that two
// writers can never push remaining outside [0, imported]. A decrement also
// requires the batch to be active. When no row matches, the batch is
// reloaded to report why.
func (r *GormBatchRepository) AdjustRemaining(ctx context.Context, batchID uuid.UUID, delta int64) (int64, error) {
	cond := "id = ? AND qty_remaining + ? >= 0 AND qty_remaining + ? <= qty_imported"
	args := []any{batchID, delta, delta}
	if delta < 0 {
		cond += " AND active = ?"
		args = append(args, true)
	}
	result := r.db.WithContext(ctx).Model(&models.BatchModel{}).
		Where(cond, args...).
		Updates(map[string]any{
			"qty_remaining": gorm.Expr("qty_remaining + ?", delta),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return 0, translateError("adjust batch remaining", result.Error)
	}

	// The update may already have landed, so its outcome is read back even
	// if the caller has gone away meanwhile.
	current, err := r.FindByID(context.WithoutCancel(ctx), batchID)
	if err != nil {
		return 0, err
	}
	if result.RowsAffected == 0 {
		if delta < 0 && !current.Active {
			return current.QuantityRemaining, inventory.ErrBatchInactive
		}
		if err := current.AdjustRemaining(delta); err != nil {
			return current.QuantityRemaining, err
		}
		// The row matched nothing yet the reloaded state would accept delta:
		// another writer moved it in between.
		return current.QuantityRemaining, shared.ErrConcurrencyConflict
	}
	return current.QuantityRemaining, nil
}

// Delete removes a batch
func (r *GormBatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.BatchModel{})
	if result.Error != nil {
		return translateError("delete batch", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ inventory.BatchRepository = (*GormBatchRepository)(nil)
