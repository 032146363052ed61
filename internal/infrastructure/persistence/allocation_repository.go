package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"github.com/thanhnm3/khomypham/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByID finds an allocation with its entries
func (r *GormAllocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.AppliedAllocation, error) {
	var model models.AllocationModel
	if err := r.db.WithContext(ctx).Preload("Entries").Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError("find allocation", err)
	}
	return model.ToDomain(), nil
}

// FindByIDs finds allocations with their entries
func (r *GormAllocationRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.AppliedAllocation, error) {
	if len(ids) == 0 {
		return []inventory.AppliedAllocation{}, nil
	}
	var rows []models.AllocationModel
	if err := r.db.WithContext(ctx).Preload("Entries").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, translateError("find allocations", err)
	}
	result := make([]inventory.AppliedAllocation, len(rows))
	for i := range rows {
		result[i] = *rows[i].ToDomain()
	}
	return result, nil
}

// Save inserts an allocation and its entries. Allocations are append-only;
// the only later change is MarkReleased.
func (r *GormAllocationRepository) Save(ctx context.Context, allocation *inventory.AppliedAllocation) error {
	model := models.AllocationModelFromDomain(allocation)
	return translateError("save allocation", r.db.WithContext(ctx).Create(model).Error)
}

// MarkReleased flips released from false to true exactly once
func (r *GormAllocationRepository) MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.AllocationModel{}).
		Where("id = ? AND released = ?", id, false).
		Updates(map[string]any{
			"released":    true,
			"released_at": at,
			"updated_at":  at,
		})
	if result.Error != nil {
		return translateError("release allocation", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AllocationModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError("release allocation", err)
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return inventory.ErrAllocationReleased
}

// CountOutstandingByBatch counts unreleased allocations drawing from batchID
func (r *GormAllocationRepository) CountOutstandingByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	return r.countByBatch(ctx, batchID, true)
}

// CountByBatch counts every allocation that ever drew from batchID
func (r *GormAllocationRepository) CountByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	return r.countByBatch(ctx, batchID, false)
}

func (r *GormAllocationRepository) countByBatch(ctx context.Context, batchID uuid.UUID, outstandingOnly bool) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.AllocationEntryModel{}).
		Joins("JOIN allocations ON allocations.id = allocation_entries.allocation_id").
		Where("allocation_entries.batch_id = ?", batchID)
	if outstandingOnly {
		q = q.Where("allocations.released = ?", false)
	}
	var count int64
	if err := q.Distinct("allocation_entries.allocation_id").Count(&count).Error; err != nil {
		return 0, translateError("count allocations by batch", err)
	}
	return count, nil
}

var _ inventory.AllocationRepository = (*GormAllocationRepository)(nil)
