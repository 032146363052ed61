package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

var hundred = decimal.NewFromInt(100)

// ShippingOrder is a goods-issued header. Each posted line references the
// applied allocation that took its quantity out of stock.
type ShippingOrder struct {
	shared.BaseEntity
	Code      string
	Customer  string
	Notes     string
	ShippedAt time.Time
	CreatedBy string
	Lines     []ShippingLine
}

// ShippingLine is one product shipped on a header
type ShippingLine struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	ProductID       uuid.UUID
	Quantity        int64
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	BatchID         *uuid.UUID // representative batch for display
	AllocationID    *uuid.UUID
	Released        bool
}

// NewShippingOrder creates a header without lines
func NewShippingOrder(code, customer, notes string, shippedAt time.Time, createdBy string) *ShippingOrder {
	if shippedAt.IsZero() {
		shippedAt = time.Now()
	}
	code = strings.TrimSpace(code)
	if code == "" {
		code = GenerateOrderCode(ShippingCodePrefix, shippedAt)
	}
	return &ShippingOrder{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Customer:   strings.TrimSpace(customer),
		Notes:      notes,
		ShippedAt:  shippedAt,
		CreatedBy:  createdBy,
		Lines:      make([]ShippingLine, 0),
	}
}

// NewShippingLine validates and builds a line for this header
func (o *ShippingOrder) NewShippingLine(productID uuid.UUID, quantity int64, unitPrice, discountPercent decimal.Decimal) (*ShippingLine, error) {
	if quantity <= 0 {
		return nil, inventory.ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return nil, ErrInvalidDiscount
	}
	return &ShippingLine{
		ID:              uuid.New(),
		OrderID:         o.ID,
		ProductID:       productID,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		DiscountPercent: discountPercent,
	}, nil
}

// AttachLine appends a posted line
func (o *ShippingOrder) AttachLine(line ShippingLine) {
	o.Lines = append(o.Lines, line)
	o.Touch()
}

// ClearLines drops every line, used when an edit re-posts the header
func (o *ShippingOrder) ClearLines() {
	o.Lines = make([]ShippingLine, 0)
	o.Touch()
}

// UpdateHeader replaces the descriptive header fields
func (o *ShippingOrder) UpdateHeader(customer, notes string, shippedAt time.Time) {
	o.Customer = strings.TrimSpace(customer)
	o.Notes = notes
	if !shippedAt.IsZero() {
		o.ShippedAt = shippedAt
	}
	o.Touch()
}

// OutstandingAllocationIDs returns allocations of lines not yet released
func (o *ShippingOrder) OutstandingAllocationIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.Lines))
	for _, l := range o.Lines {
		if l.AllocationID != nil && !l.Released {
			ids = append(ids, *l.AllocationID)
		}
	}
	return ids
}

// TotalAmount sums the discounted line totals
func (o *ShippingOrder) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Total())
	}
	return total
}

// AttachAllocation records the applied allocation backing the line
func (l *ShippingLine) AttachAllocation(a *inventory.AppliedAllocation) {
	id := a.ID
	l.AllocationID = &id
	if rep := a.RepresentativeBatchID(); rep != uuid.Nil {
		l.BatchID = &rep
	}
	l.Released = false
}

// Total returns q*u*(1-d/100)
func (l ShippingLine) Total() decimal.Decimal {
	gross := l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
	return gross.Mul(hundred.Sub(l.DiscountPercent)).Div(hundred)
}
