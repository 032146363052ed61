package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"github.com/thanhnm3/khomypham/internal/domain/trade"
	"github.com/thanhnm3/khomypham/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReceivingOrderRepository implements ReceivingOrderRepository using GORM
type GormReceivingOrderRepository struct {
	db *gorm.DB
}

// NewGormReceivingOrderRepository creates a new GormReceivingOrderRepository
func NewGormReceivingOrderRepository(db *gorm.DB) *GormReceivingOrderRepository {
	return &GormReceivingOrderRepository{db: db}
}

// FindByID finds a receiving order with its lines
func (r *GormReceivingOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.ReceivingOrder, error) {
	var model models.ReceivingOrderModel
	if err := r.db.WithContext(ctx).Preload("Lines").Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError("find receiving order", err)
	}
	return model.ToDomain(), nil
}

// FindAll lists receiving orders received within filter.Range, newest first
func (r *GormReceivingOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.ReceivingOrder, error) {
	var rows []models.ReceivingOrderModel
	q := applyOrderFilter(r.db.WithContext(ctx).Preload("Lines"), "received_at", "supplier", filter)
	if err := q.Find(&rows).Error; err != nil {
		return nil, translateError("list receiving orders", err)
	}
	orders := make([]trade.ReceivingOrder, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, nil
}

// ExistsByCode reports whether a header already uses code
func (r *GormReceivingOrderRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReceivingOrderModel{}).Where("code = ?", code).Count(&count).Error
	return count > 0, translateError("check receiving code", err)
}

// Save upserts the header and replaces its lines atomically
func (r *GormReceivingOrderRepository) Save(ctx context.Context, order *trade.ReceivingOrder) error {
	model := models.ReceivingOrderModelFromDomain(order)
	lines := model.Lines
	model.Lines = nil
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertHeader(tx, model); err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", model.ID).Delete(&models.ReceivingLineModel{}).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&lines).Error
	})
	return translateError("save receiving order", err)
}

// Delete removes a receiving order and its lines
func (r *GormReceivingOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteOrder(ctx, r.db, id, &models.ReceivingLineModel{}, &models.ReceivingOrderModel{})
}

// GormShippingOrderRepository implements ShippingOrderRepository using GORM
type GormShippingOrderRepository struct {
	db *gorm.DB
}

// NewGormShippingOrderRepository creates a new GormShippingOrderRepository
func NewGormShippingOrderRepository(db *gorm.DB) *GormShippingOrderRepository {
	return &GormShippingOrderRepository{db: db}
}

// FindByID finds a shipping order with its lines
func (r *GormShippingOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.ShippingOrder, error) {
	var model models.ShippingOrderModel
	if err := r.db.WithContext(ctx).Preload("Lines").Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError("find shipping order", err)
	}
	return model.ToDomain(), nil
}

// FindAll lists shipping orders shipped within filter.Range, newest first
func (r *GormShippingOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.ShippingOrder, error) {
	var rows []models.ShippingOrderModel
	q := applyOrderFilter(r.db.WithContext(ctx).Preload("Lines"), "shipped_at", "customer", filter)
	if err := q.Find(&rows).Error; err != nil {
		return nil, translateError("list shipping orders", err)
	}
	orders := make([]trade.ShippingOrder, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, nil
}

// ExistsByCode reports whether a header already uses code
func (r *GormShippingOrderRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ShippingOrderModel{}).Where("code = ?", code).Count(&count).Error
	return count > 0, translateError("check shipping code", err)
}

// Save upserts the header and replaces its lines atomically
func (r *GormShippingOrderRepository) Save(ctx context.Context, order *trade.ShippingOrder) error {
	model := models.ShippingOrderModelFromDomain(order)
	lines := model.Lines
	model.Lines = nil
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertHeader(tx, model); err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", model.ID).Delete(&models.ShippingLineModel{}).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&lines).Error
	})
	return translateError("save shipping order", err)
}

// Delete removes a shipping order and its lines
func (r *GormShippingOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteOrder(ctx, r.db, id, &models.ShippingLineModel{}, &models.ShippingOrderModel{})
}

func upsertHeader(tx *gorm.DB, header any) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Omit(clause.Associations).Create(header).Error
}

func applyOrderFilter(q *gorm.DB, dateColumn, partyColumn string, filter shared.Filter) *gorm.DB {
	if !filter.Range.From.IsZero() {
		q = q.Where(dateColumn+" >= ?", filter.Range.From)
	}
	if !filter.Range.To.IsZero() {
		q = q.Where(dateColumn+" < ?", filter.Range.To)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("(code LIKE ? OR "+partyColumn+" LIKE ?)", like, like)
	}
	dir := "DESC"
	if filter.OrderDir == "asc" {
		dir = "ASC"
	}
	q = q.Order(dateColumn + " " + dir)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return q
}

func deleteOrder(ctx context.Context, db *gorm.DB, id uuid.UUID, lineModel, headerModel any) error {
	var affected int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(lineModel).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(headerModel)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return translateError("delete order", err)
	}
	if affected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var (
	_ trade.ReceivingOrderRepository = (*GormReceivingOrderRepository)(nil)
	_ trade.ShippingOrderRepository  = (*GormShippingOrderRepository)(nil)
)
