package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/trade"
)

// ReceivingOrderModel is the persistence model for a receiving header
type ReceivingOrderModel struct {
	BaseModel
	Code       string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Supplier   string               `gorm:"type:varchar(200)"`
	Notes      string               `gorm:"type:text"`
	ReceivedAt time.Time            `gorm:"not null;index"`
	CreatedBy  string               `gorm:"type:varchar(100)"`
	Lines      []ReceivingLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (ReceivingOrderModel) TableName() string {
	return "receiving_orders"
}

// ReceivingLineModel is one receiving line
type ReceivingLineModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position   int             `gorm:"not null"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity   int64           `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ExpiryDate *time.Time      `gorm:"type:date"`
	BatchID    *uuid.UUID      `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (ReceivingLineModel) TableName() string {
	return "receiving_lines"
}

// ToDomain converts the persistence model to a domain ReceivingOrder
func (m *ReceivingOrderModel) ToDomain() *trade.ReceivingOrder {
	lines := append([]ReceivingLineModel(nil), m.Lines...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].Position < lines[j].Position })

	o := &trade.ReceivingOrder{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Supplier:   m.Supplier,
		Notes:      m.Notes,
		ReceivedAt: m.ReceivedAt,
		CreatedBy:  m.CreatedBy,
		Lines:      make([]trade.ReceivingLine, 0, len(lines)),
	}
	for _, l := range lines {
		o.Lines = append(o.Lines, trade.ReceivingLine{
			ID:         l.ID,
			OrderID:    l.OrderID,
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			ExpiryDate: l.ExpiryDate,
			BatchID:    l.BatchID,
		})
	}
	return o
}

// ReceivingOrderModelFromDomain creates a persistence model, lines included
func ReceivingOrderModelFromDomain(o *trade.ReceivingOrder) *ReceivingOrderModel {
	m := &ReceivingOrderModel{
		Code:       o.Code,
		Supplier:   o.Supplier,
		Notes:      o.Notes,
		ReceivedAt: o.ReceivedAt,
		CreatedBy:  o.CreatedBy,
		Lines:      make([]ReceivingLineModel, len(o.Lines)),
	}
	m.FromDomainBaseEntity(o.BaseEntity)
	for i, l := range o.Lines {
		m.Lines[i] = ReceivingLineModel{
			ID:         l.ID,
			OrderID:    o.ID,
			Position:   i,
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			ExpiryDate: l.ExpiryDate,
			BatchID:    l.BatchID,
		}
	}
	return m
}

// ShippingOrderModel is the persistence model for a shipping header
type ShippingOrderModel struct {
	BaseModel
	Code      string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	Customer  string              `gorm:"type:varchar(200)"`
	Notes     string              `gorm:"type:text"`
	ShippedAt time.Time           `gorm:"not null;index"`
	CreatedBy string              `gorm:"type:varchar(100)"`
	Lines     []ShippingLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (ShippingOrderModel) TableName() string {
	return "shipping_orders"
}

// ShippingLineModel is one shipping line
type ShippingLineModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position        int             `gorm:"not null"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity        int64           `gorm:"not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	BatchID         *uuid.UUID      `gorm:"type:uuid;index"`
	AllocationID    *uuid.UUID      `gorm:"type:uuid;index"`
	Released        bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ShippingLineModel) TableName() string {
	return "shipping_lines"
}

// ToDomain converts the persistence model to a domain ShippingOrder
func (m *ShippingOrderModel) ToDomain() *trade.ShippingOrder {
	lines := append([]ShippingLineModel(nil), m.Lines...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].Position < lines[j].Position })

	o := &trade.ShippingOrder{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Customer:   m.Customer,
		Notes:      m.Notes,
		ShippedAt:  m.ShippedAt,
		CreatedBy:  m.CreatedBy,
		Lines:      make([]trade.ShippingLine, 0, len(lines)),
	}
	for _, l := range lines {
		o.Lines = append(o.Lines, trade.ShippingLine{
			ID:              l.ID,
			OrderID:         l.OrderID,
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			BatchID:         l.BatchID,
			AllocationID:    l.AllocationID,
			Released:        l.Released,
		})
	}
	return o
}

// ShippingOrderModelFromDomain creates a persistence model, lines included
func ShippingOrderModelFromDomain(o *trade.ShippingOrder) *ShippingOrderModel {
	m := &ShippingOrderModel{
		Code:      o.Code,
		Customer:  o.Customer,
		Notes:     o.Notes,
		ShippedAt: o.ShippedAt,
		CreatedBy: o.CreatedBy,
		Lines:     make([]ShippingLineModel, len(o.Lines)),
	}
	m.FromDomainBaseEntity(o.BaseEntity)
	for i, l := range o.Lines {
		m.Lines[i] = ShippingLineModel{
			ID:              l.ID,
			OrderID:         o.ID,
			Position:        i,
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			BatchID:         l.BatchID,
			AllocationID:    l.AllocationID,
			Released:        l.Released,
		}
	}
	return m
}
