package trade

import "github.com/thanhnm3/khomypham/internal/domain/shared"

var (
	ErrEmptyOrder      = shared.NewDomainError("EMPTY_ORDER", "Order must contain at least one line")
	ErrInvalidDiscount = shared.NewDomainError("INVALID_DISCOUNT", "Discount percent must be between 0 and 100")
	ErrInvalidPrice    = shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	ErrNothingPosted   = shared.NewDomainError("NOTHING_POSTED", "Every line of the order was rejected")
)
