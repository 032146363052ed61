package trade

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

// LineRejection explains why one requested line was not posted
type LineRejection struct {
	Index     int       `json:"index"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Available *int64    `json:"available,omitempty"`
}

// NewLineRejection builds a rejection from the error that stopped the line
func NewLineRejection(index int, productID uuid.UUID, quantity int64, err error) LineRejection {
	r := LineRejection{
		Index:     index,
		ProductID: productID,
		Quantity:  quantity,
		Code:      shared.CodeOf(err),
		Message:   err.Error(),
	}
	var ise *inventory.InsufficientStockError
	if errors.As(err, &ise) {
		available := ise.Available
		r.Available = &available
	}
	if r.Code == "" {
		r.Code = shared.ErrInvalidInput.Code
	}
	return r
}

// IsLineLevel reports whether err only rejects the line rather than the order
func IsLineLevel(err error) bool {
	var de *shared.DomainError
	switch {
	case errors.Is(err, inventory.ErrConflict):
		return false
	case errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, shared.ErrInsufficientStock),
		errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInvalidDiscount),
		errors.Is(err, shared.ErrNotFound):
		return true
	case errors.As(err, &de):
		return de.Code == "INVALID_PRODUCT"
	}
	return false
}

// RejectedOrderError is returned when every line of an order was rejected.
// It matches ErrNothingPosted and keeps the per-line reasons.
type RejectedOrderError struct {
	Rejections []LineRejection
}

func (e *RejectedOrderError) Error() string {
	return fmt.Sprintf("%s (%d rejected)", ErrNothingPosted.Message, len(e.Rejections))
}

// ErrorCode returns the NOTHING_POSTED code
func (e *RejectedOrderError) ErrorCode() string {
	return ErrNothingPosted.Code
}

func (e *RejectedOrderError) Unwrap() error {
	return ErrNothingPosted
}
