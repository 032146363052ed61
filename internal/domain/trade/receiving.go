package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

// ReceivingOrder is a goods-received header. Each posted line owns one batch.
type ReceivingOrder struct {
	shared.BaseEntity
	Code       string
	Supplier   string
	Notes      string
	ReceivedAt time.Time
	CreatedBy  string
	Lines      []ReceivingLine
}

// ReceivingLine is one product received on a header
type ReceivingLine struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	ProductID  uuid.UUID
	Quantity   int64
	UnitPrice  decimal.Decimal
	ExpiryDate *time.Time
	BatchID    *uuid.UUID
}

// NewReceivingOrder creates a header without lines
func NewReceivingOrder(code, supplier, notes string, receivedAt time.Time, createdBy string) *ReceivingOrder {
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	code = strings.TrimSpace(code)
	if code == "" {
		code = GenerateOrderCode(ReceivingCodePrefix, receivedAt)
	}
	return &ReceivingOrder{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Supplier:   strings.TrimSpace(supplier),
		Notes:      notes,
		ReceivedAt: receivedAt,
		CreatedBy:  createdBy,
		Lines:      make([]ReceivingLine, 0),
	}
}

// NewReceivingLine validates and builds a line for this header
func (o *ReceivingOrder) NewReceivingLine(productID uuid.UUID, quantity int64, unitPrice decimal.Decimal, expiry *time.Time) (*ReceivingLine, error) {
	if quantity <= 0 {
		return nil, inventory.ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return nil, ErrInvalidPrice
	}
	return &ReceivingLine{
		ID:         uuid.New(),
		OrderID:    o.ID,
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		ExpiryDate: expiry,
	}, nil
}

// AttachLine appends a posted line
func (o *ReceivingOrder) AttachLine(line ReceivingLine) {
	o.Lines = append(o.Lines, line)
	o.Touch()
}

// ClearLines drops every line, used when an edit re-posts the header
func (o *ReceivingOrder) ClearLines() {
	o.Lines = make([]ReceivingLine, 0)
	o.Touch()
}

// UpdateHeader replaces the descriptive header fields
func (o *ReceivingOrder) UpdateHeader(supplier, notes string, receivedAt time.Time) {
	o.Supplier = strings.TrimSpace(supplier)
	o.Notes = notes
	if !receivedAt.IsZero() {
		o.ReceivedAt = receivedAt
	}
	o.Touch()
}

// BatchIDs returns the batches posted by this header
func (o *ReceivingOrder) BatchIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.Lines))
	for _, l := range o.Lines {
		if l.BatchID != nil {
			ids = append(ids, *l.BatchID)
		}
	}
	return ids
}

// TotalAmount sums quantity times unit price over every line
func (o *ReceivingOrder) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Total())
	}
	return total
}

// Total returns quantity times unit price
func (l ReceivingLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}
