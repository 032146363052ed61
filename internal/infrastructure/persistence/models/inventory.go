package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

// BatchModel is the persistence model for a Batch
type BatchModel struct {
	BaseModel
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_batches_fifo,priority:1"`
	Code            string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	ImportedAt      time.Time       `gorm:"not null;index:idx_batches_fifo,priority:3"`
	QtyImported     int64           `gorm:"column:qty_imported;not null"`
	QtyRemaining    int64           `gorm:"column:qty_remaining;not null"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ExpiryDate      *time.Time      `gorm:"type:date"`
	Active          bool            `gorm:"not null;default:true;index:idx_batches_fifo,priority:2"`
	ReceivingLineID *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedBy       string          `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (BatchModel) TableName() string {
	return "batches"
}

// ToDomain converts the persistence model to a domain Batch
func (m *BatchModel) ToDomain() *inventory.Batch {
	return &inventory.Batch{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		ProductID:         m.ProductID,
		Code:              m.Code,
		ImportedAt:        m.ImportedAt,
		QuantityImported:  m.QtyImported,
		QuantityRemaining: m.QtyRemaining,
		UnitCost:          m.UnitCost,
		ExpiryDate:        m.ExpiryDate,
		Active:            m.Active,
		ReceivingLineID:   m.ReceivingLineID,
		CreatedBy:         m.CreatedBy,
	}
}

// BatchModelFromDomain creates a persistence model from a domain Batch
func BatchModelFromDomain(b *inventory.Batch) *BatchModel {
	m := &BatchModel{
		ProductID:       b.ProductID,
		Code:            b.Code,
		ImportedAt:      b.ImportedAt,
		QtyImported:     b.QuantityImported,
		QtyRemaining:    b.QuantityRemaining,
		UnitCost:        b.UnitCost,
		ExpiryDate:      b.ExpiryDate,
		Active:          b.Active,
		ReceivingLineID: b.ReceivingLineID,
		CreatedBy:       b.CreatedBy,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}

// AllocationModel is the header row of an applied allocation
type AllocationModel struct {
	BaseModel
	ProductID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	SourceLineID *uuid.UUID `gorm:"type:uuid;index"`
	AppliedAt    time.Time  `gorm:"not null"`
	Released     bool       `gorm:"not null;default:false"`
	ReleasedAt   *time.Time
	Entries      []AllocationEntryModel `gorm:"foreignKey:AllocationID;references:ID"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "allocations"
}

// AllocationEntryModel is one (order line, batch, quantity) row of an allocation
type AllocationEntryModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	AllocationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderLineID  *uuid.UUID      `gorm:"type:uuid;index"`
	BatchID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchCode    string          `gorm:"type:varchar(100);not null"`
	Position     int             `gorm:"not null"`
	QtyTaken     int64           `gorm:"column:qty_taken;not null"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ImportedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationEntryModel) TableName() string {
	return "allocation_entries"
}

// ToDomain converts the persistence model to a domain AppliedAllocation.
// Entries are returned in the order they were applied.
func (m *AllocationModel) ToDomain() *inventory.AppliedAllocation {
	entries := make([]inventory.AllocationEntry, len(m.Entries))
	for _, e := range m.Entries {
		if e.Position < 0 || e.Position >= len(entries) {
			continue
		}
		entries[e.Position] = inventory.AllocationEntry{
			BatchID:    e.BatchID,
			BatchCode:  e.BatchCode,
			Quantity:   e.QtyTaken,
			UnitCost:   e.UnitCost,
			ImportedAt: e.ImportedAt,
		}
	}
	return &inventory.AppliedAllocation{
		BaseEntity:   m.BaseModel.ToDomain(),
		ProductID:    m.ProductID,
		SourceLineID: m.SourceLineID,
		Entries:      entries,
		AppliedAt:    m.AppliedAt,
		Released:     m.Released,
		ReleasedAt:   m.ReleasedAt,
	}
}

// AllocationModelFromDomain creates a persistence model, entries included
func AllocationModelFromDomain(a *inventory.AppliedAllocation) *AllocationModel {
	m := &AllocationModel{
		ProductID:    a.ProductID,
		SourceLineID: a.SourceLineID,
		AppliedAt:    a.AppliedAt,
		Released:     a.Released,
		ReleasedAt:   a.ReleasedAt,
		Entries:      make([]AllocationEntryModel, len(a.Entries)),
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	for i, e := range a.Entries {
		m.Entries[i] = AllocationEntryModel{
			ID:           uuid.New(),
			AllocationID: a.ID,
			OrderLineID:  a.SourceLineID,
			BatchID:      e.BatchID,
			BatchCode:    e.BatchCode,
			Position:     i,
			QtyTaken:     e.Quantity,
			UnitCost:     e.UnitCost,
			ImportedAt:   e.ImportedAt,
		}
	}
	return m
}
