package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

// ExpiryPolicy describes how a product's stock expires. At most one of
// Date and Days is set: Date is a fixed calendar expiry, Days counts from
// the day a batch is received.
type ExpiryPolicy struct {
	Date *time.Time
	Days *int
}

// IsZero reports whether the policy carries no expiry information
func (p ExpiryPolicy) IsZero() bool {
	return p.Date == nil && p.Days == nil
}

// Resolve returns the expiry implied by the policy for stock received at importedAt
func (p ExpiryPolicy) Resolve(importedAt time.Time) *time.Time {
	if p.Date != nil {
		d := *p.Date
		return &d
	}
	if p.Days != nil {
		d := importedAt.AddDate(0, 0, *p.Days)
		return &d
	}
	return nil
}

// ErrProductInactive rejects stock movements for a deactivated product
var ErrProductInactive = shared.NewDomainError("INVALID_PRODUCT", "Product is not active")

// Product is the catalog entry the ledger reads. It is owned by the
// catalog collaborator; the ledger never mutates it.
type Product struct {
	shared.BaseEntity
	Code          string
	Name          string
	Unit          string
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	Expiry        ExpiryPolicy
	Active        bool
}

// NewProduct creates a new active product
func NewProduct(code, name, unit string, purchasePrice, sellingPrice decimal.Decimal) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if purchasePrice.IsNegative() || sellingPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Product prices cannot be negative")
	}
	if unit == "" {
		unit = "pcs"
	}
	return &Product{
		BaseEntity:    shared.NewBaseEntity(),
		Code:          strings.TrimSpace(code),
		Name:          name,
		Unit:          unit,
		PurchasePrice: purchasePrice,
		SellingPrice:  sellingPrice,
		Active:        true,
	}, nil
}

// SetExpiryDate sets a fixed expiry date, replacing any day-count policy
func (p *Product) SetExpiryDate(date time.Time) {
	p.Expiry = ExpiryPolicy{Date: &date}
	p.Touch()
}

// SetExpiryDays sets a shelf life in days counted from receipt
func (p *Product) SetExpiryDays(days int) error {
	if days <= 0 {
		return shared.NewDomainError("INVALID_EXPIRY_DAYS", "Expiry days must be positive")
	}
	p.Expiry = ExpiryPolicy{Days: &days}
	p.Touch()
	return nil
}

// ClearExpiry removes any expiry policy
func (p *Product) ClearExpiry() {
	p.Expiry = ExpiryPolicy{}
	p.Touch()
}

// Deactivate stops new receipts and shipments of the product
func (p *Product) Deactivate() {
	p.Active = false
	p.Touch()
}
