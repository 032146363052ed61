package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
)

// ProductModel is the persistence model for the catalog Product
type ProductModel struct {
	BaseModel
	Code          string          `gorm:"type:varchar(50);index"`
	Name          string          `gorm:"type:varchar(200);not null"`
	Unit          string          `gorm:"type:varchar(20);not null"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ExpiryDate    *time.Time      `gorm:"type:date"`
	ExpiryDays    *int
	Active        bool `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:    m.BaseModel.ToDomain(),
		Code:          m.Code,
		Name:          m.Name,
		Unit:          m.Unit,
		PurchasePrice: m.PurchasePrice,
		SellingPrice:  m.SellingPrice,
		Expiry:        catalog.ExpiryPolicy{Date: m.ExpiryDate, Days: m.ExpiryDays},
		Active:        m.Active,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{
		Code:          p.Code,
		Name:          p.Name,
		Unit:          p.Unit,
		PurchasePrice: p.PurchasePrice,
		SellingPrice:  p.SellingPrice,
		ExpiryDate:    p.Expiry.Date,
		ExpiryDays:    p.Expiry.Days,
		Active:        p.Active,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
