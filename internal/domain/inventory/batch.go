package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

// Batch is a quantity of one product received together. Its remaining
// quantity only ever moves through AdjustRemaining and always stays within
// [0, QuantityImported].
type Batch struct {
	shared.BaseAggregateRoot
	ProductID         uuid.UUID
	Code              string
	ImportedAt        time.Time
	QuantityImported  int64
	QuantityRemaining int64
	UnitCost          decimal.Decimal // snapshot of the purchase price at receipt
	ExpiryDate        *time.Time
	Active            bool
	ReceivingLineID   *uuid.UUID
	CreatedBy         string
}

// NewBatch creates a new active batch with remaining equal to imported
func NewBatch(productID uuid.UUID, code string, quantity int64, importedAt time.Time, unitCost decimal.Decimal) (*Batch, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if code == "" {
		return nil, shared.NewDomainError("INVALID_BATCH_CODE", "Batch code cannot be empty")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_UNIT_COST", "Unit cost cannot be negative")
	}
	if importedAt.IsZero() {
		importedAt = time.Now()
	}

	b := &Batch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		Code:              code,
		ImportedAt:        importedAt,
		QuantityImported:  quantity,
		QuantityRemaining: quantity,
		UnitCost:          unitCost,
		Active:            true,
	}
	b.AddDomainEvent(NewBatchCreatedEvent(b))
	return b, nil
}

// AdjustRemaining applies a signed delta to the remaining quantity.
// The batch is left untouched when the result would leave [0, imported].
func (b *Batch) AdjustRemaining(delta int64) error {
	next := b.QuantityRemaining + delta
	if next < 0 {
		return ErrNegativeStock
	}
	if next > b.QuantityImported {
		return ErrOverImport
	}
	b.QuantityRemaining = next
	b.Touch()
	return nil
}

// Retire marks the batch inactive. Callers check for outstanding allocations first.
func (b *Batch) Retire() {
	if !b.Active {
		return
	}
	b.Active = false
	b.Touch()
	b.AddDomainEvent(NewBatchRetiredEvent(b))
}

// Reactivate undoes Retire
func (b *Batch) Reactivate() {
	if b.Active {
		return
	}
	b.Active = true
	b.Touch()
}

// IsEligible reports whether the batch can be drawn from
func (b *Batch) IsEligible() bool {
	return b.Active && b.QuantityRemaining > 0
}

// CanSupply reports why the batch cannot be drawn from for productID, if it cannot
func (b *Batch) CanSupply(productID uuid.UUID) error {
	if b.ProductID != productID {
		return ErrForeignBatch
	}
	if !b.Active {
		return ErrBatchInactive
	}
	return nil
}

// Drawn returns how much has left the batch so far
func (b *Batch) Drawn() int64 {
	return b.QuantityImported - b.QuantityRemaining
}

// IsLowStock reports whether an active batch is at or under threshold
func (b *Batch) IsLowStock(threshold int64) bool {
	return b.Active && b.QuantityRemaining <= threshold
}

// ResolveExpiry returns the batch's own expiry date, falling back to the product policy
func (b *Batch) ResolveExpiry(policy catalog.ExpiryPolicy) *time.Time {
	if b.ExpiryDate != nil {
		d := *b.ExpiryDate
		return &d
	}
	return policy.Resolve(b.ImportedAt)
}

// ExpiresWithin reports whether the resolved expiry falls in [asOf, asOf+window]
func (b *Batch) ExpiresWithin(policy catalog.ExpiryPolicy, asOf time.Time, window time.Duration) bool {
	if !b.Active {
		return false
	}
	exp := b.ResolveExpiry(policy)
	if exp == nil {
		return false
	}
	return !exp.Before(asOf) && !exp.After(asOf.Add(window))
}

// StockValue returns remaining quantity valued at the batch unit cost
func (b *Batch) StockValue() decimal.Decimal {
	return b.UnitCost.Mul(decimal.NewFromInt(b.QuantityRemaining))
}
