package inventory

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

// Error codes raised by the ledger
const (
	CodeInvalidQuantity    = "INVALID_QUANTITY"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeNegativeStock      = "NEGATIVE_STOCK"
	CodeOverImport         = "OVER_IMPORT"
	CodeConflict           = "CONFLICT"
	CodeRetireConflict     = "RETIRE_CONFLICT"
	CodeAllocationReleased = "ALLOCATION_RELEASED"
	CodeBatchInactive      = "BATCH_INACTIVE"
	CodeForeignBatch       = "FOREIGN_BATCH"
	CodeBatchDrawn         = "BATCH_DRAWN"
)

var (
	ErrInvalidQuantity    = shared.NewDomainError(CodeInvalidQuantity, "Quantity must be greater than zero")
	ErrNegativeStock      = shared.NewDomainError(CodeNegativeStock, "Adjustment would make remaining quantity negative")
	ErrOverImport         = shared.NewDomainError(CodeOverImport, "Adjustment would make remaining quantity exceed imported quantity")
	ErrRetireConflict     = shared.NewDomainError(CodeRetireConflict, "Batch still has outstanding allocations")
	ErrAllocationReleased = shared.NewDomainError(CodeAllocationReleased, "Allocation has already been released")
	ErrBatchInactive      = shared.NewDomainError(CodeBatchInactive, "Batch is retired")
	ErrForeignBatch       = shared.NewDomainError(CodeForeignBatch, "Batch belongs to another product")
	ErrConflict           = shared.NewDomainError(CodeConflict, "Stock changed while the allocation was being applied")
	ErrBatchDrawn         = shared.NewDomainError(CodeBatchDrawn, "Batch has been drawn from and can only be retired")
)

// InsufficientStockError is returned when the eligible stock of a product
// cannot cover the requested quantity. Nothing has been mutated when it is returned.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ErrorCode returns INSUFFICIENT_STOCK
func (e *InsufficientStockError) ErrorCode() string {
	return CodeInsufficientStock
}

// Unwrap lets errors.Is match shared.ErrInsufficientStock
func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrInsufficientStock
}

// ConflictError reports that an apply or release could not complete because a
// batch changed underneath it. Every entry already applied has been rolled back.
type ConflictError struct {
	ProductID uuid.UUID
	BatchID   uuid.UUID
	Cause     error
	// RolledBack lists the compensating movements made before returning
	RolledBack []LedgerEvent
}

func (e *ConflictError) Error() string {
	if e.BatchID == uuid.Nil {
		return fmt.Sprintf("allocation conflict on product %s: %v", e.ProductID, e.Cause)
	}
	return fmt.Sprintf("allocation conflict on product %s, batch %s: %v", e.ProductID, e.BatchID, e.Cause)
}

// ErrorCode returns CONFLICT
func (e *ConflictError) ErrorCode() string {
	return CodeConflict
}

func (e *ConflictError) Unwrap() error {
	return e.Cause
}

// Is matches ErrConflict in addition to the wrapped cause
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictError wraps cause as a conflict on the given product and batch
func NewConflictError(productID, batchID uuid.UUID, cause error) *ConflictError {
	return &ConflictError{ProductID: productID, BatchID: batchID, Cause: cause}
}
