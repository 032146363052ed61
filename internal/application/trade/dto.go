package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinv "github.com/thanhnm3/khomypham/internal/application/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/trade"
)

// ==================== Receiving ====================

// ReceiveCommand posts (or re-posts, on edit) a receiving header
type ReceiveCommand struct {
	Code       string             `json:"code" binding:"omitempty,max=50"`
	Supplier   string             `json:"supplier" binding:"max=200"`
	Notes      string             `json:"notes"`
	ReceivedAt time.Time          `json:"received_at"`
	CreatedBy  string             `json:"created_by" binding:"max=100"`
	Lines      []ReceiveLineInput `json:"lines" binding:"required,min=1,dive"`
}

// ReceiveLineInput is one requested receiving line
type ReceiveLineInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity"`
	// UnitPrice becomes the batch unit cost; the product purchase price is used when nil
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	ExpiryDate *time.Time       `json:"expiry_date"`
}

// ReceiveResult is a posted receiving header with the lines that were skipped
type ReceiveResult struct {
	Order      *trade.ReceivingOrder
	Batches    []inventory.Batch
	Rejections []trade.LineRejection
}

// DeleteReceivingResult lists what happened to each batch of a deleted header
type DeleteReceivingResult struct {
	Deleted []uuid.UUID `json:"deleted_batches"`
	Retired []uuid.UUID `json:"retired_batches"`
}

// ==================== Shipping ====================

// ShipCommand posts (or re-posts, on edit) a shipping header
type ShipCommand struct {
	Code      string          `json:"code" binding:"omitempty,max=50"`
	Customer  string          `json:"customer" binding:"max=200"`
	Notes     string          `json:"notes"`
	ShippedAt time.Time       `json:"shipped_at"`
	CreatedBy string          `json:"created_by" binding:"max=100"`
	Lines     []ShipLineInput `json:"lines" binding:"required,min=1,dive"`
}

// ShipLineInput is one requested shipping line
type ShipLineInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity"`
	// UnitPrice defaults to the product selling price when nil
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
}

// ShipResult is a posted shipping header with the lines that were skipped
type ShipResult struct {
	Order       *trade.ShippingOrder
	Allocations []appinv.ApplyResult
	Rejections  []trade.LineRejection
}

// DeleteShippingResult lists the allocations released by a deleted header
type DeleteShippingResult struct {
	Released []uuid.UUID `json:"released_allocations"`
}
