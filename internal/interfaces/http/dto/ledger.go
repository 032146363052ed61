package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinv "github.com/thanhnm3/khomypham/internal/application/inventory"
	apptrade "github.com/thanhnm3/khomypham/internal/application/trade"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/trade"
)

// ==================== Requests ====================

// CreateBatchRequest creates a batch outside of a receiving order
type CreateBatchRequest struct {
	ProductID  uuid.UUID        `json:"product_id" binding:"required"`
	Quantity   int64            `json:"quantity"`
	ImportedAt *time.Time       `json:"imported_at"`
	UnitCost   *decimal.Decimal `json:"unit_cost"`
	ExpiryDate *time.Time       `json:"expiry_date"`
	CreatedBy  string           `json:"created_by" binding:"max=100"`
}

// ImportReceivingQuery carries the header of a receiving order whose lines
// arrive as a CSV body
type ImportReceivingQuery struct {
	Code       string `form:"code" binding:"max=50"`
	Supplier   string `form:"supplier" binding:"max=200"`
	Notes      string `form:"notes"`
	ReceivedAt string `form:"received_at"`
	Delimiter  string `form:"delimiter"` // one of , ; | or a tab; default ,
}

// PlanRequest asks for an allocation plan without applying it
type PlanRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity"`
}

// LowStockQuery carries the optional threshold override
type LowStockQuery struct {
	Threshold *int64 `form:"threshold" binding:"omitempty,min=0"`
}

// ExpiringQuery carries the optional reference date and window
type ExpiringQuery struct {
	AsOf       string `form:"as_of"`
	WindowDays *int   `form:"window_days" binding:"omitempty,min=1"`
}

// DateRangeQuery carries an optional reporting window. Dates are
// YYYY-MM-DD or RFC 3339; a bare date for "to" includes that whole day.
type DateRangeQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// OrderListQuery carries list filters for receiving and shipping headers
type OrderListQuery struct {
	DateRangeQuery
	Search   string `form:"search" binding:"max=100"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=1000"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ==================== Batches ====================

// BatchResponse is a batch in API responses
type BatchResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	Code              string          `json:"code"`
	ImportedAt        time.Time       `json:"imported_at"`
	QuantityImported  int64           `json:"quantity_imported"`
	QuantityRemaining int64           `json:"quantity_remaining"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
	Active            bool            `json:"active"`
	ReceivingLineID   *uuid.UUID      `json:"receiving_line_id,omitempty"`
	CreatedBy         string          `json:"created_by,omitempty"`
}

// ExpiringBatchResponse is a batch with its resolved expiry
type ExpiringBatchResponse struct {
	BatchResponse
	ExpiresAt time.Time `json:"expires_at"`
}

// StockResponse is the on-hand total of one product
type StockResponse struct {
	ProductID  uuid.UUID `json:"product_id"`
	TotalStock int64     `json:"total_stock"`
}

// ToBatchResponse converts a domain batch
func ToBatchResponse(b *inventory.Batch) BatchResponse {
	return BatchResponse{
		ID:                b.ID,
		ProductID:         b.ProductID,
		Code:              b.Code,
		ImportedAt:        b.ImportedAt,
		QuantityImported:  b.QuantityImported,
		QuantityRemaining: b.QuantityRemaining,
		UnitCost:          b.UnitCost,
		ExpiryDate:        b.ExpiryDate,
		Active:            b.Active,
		ReceivingLineID:   b.ReceivingLineID,
		CreatedBy:         b.CreatedBy,
	}
}

// ToBatchResponses converts a slice of batches
func ToBatchResponses(batches []inventory.Batch) []BatchResponse {
	out := make([]BatchResponse, len(batches))
	for i := range batches {
		out[i] = ToBatchResponse(&batches[i])
	}
	return out
}

// ToExpiringBatchResponses converts expiring batches
func ToExpiringBatchResponses(batches []appinv.ExpiringBatch) []ExpiringBatchResponse {
	out := make([]ExpiringBatchResponse, len(batches))
	for i := range batches {
		out[i] = ExpiringBatchResponse{
			BatchResponse: ToBatchResponse(&batches[i].Batch),
			ExpiresAt:     batches[i].ExpiresAt,
		}
	}
	return out
}

// ==================== Allocations ====================

// PlanResponse is an unapplied FIFO plan
type PlanResponse struct {
	ProductID     uuid.UUID                   `json:"product_id"`
	Requested     int64                       `json:"requested"`
	TotalQuantity int64                       `json:"total_quantity"`
	TotalCost     decimal.Decimal             `json:"total_cost"`
	Entries       []inventory.AllocationEntry `json:"entries"`
}

// AllocationResponse is an applied allocation
type AllocationResponse struct {
	ID            uuid.UUID                   `json:"id"`
	ProductID     uuid.UUID                   `json:"product_id"`
	SourceLineID  *uuid.UUID                  `json:"source_line_id,omitempty"`
	Entries       []inventory.AllocationEntry `json:"entries"`
	TotalQuantity int64                       `json:"total_quantity"`
	TotalCost     decimal.Decimal             `json:"total_cost"`
	AppliedAt     time.Time                   `json:"applied_at"`
	Released      bool                        `json:"released"`
	ReleasedAt    *time.Time                  `json:"released_at,omitempty"`
	Movements     []inventory.LedgerEvent     `json:"movements,omitempty"`
}

// ToPlanResponse converts a plan
func ToPlanResponse(p *inventory.AllocationPlan) PlanResponse {
	return PlanResponse{
		ProductID:     p.ProductID,
		Requested:     p.Requested,
		TotalQuantity: p.TotalQuantity(),
		TotalCost:     p.TotalCost(),
		Entries:       p.Entries,
	}
}

// ToAllocationResponse converts an applied allocation and the movements that produced it
func ToAllocationResponse(a *inventory.AppliedAllocation, movements []inventory.LedgerEvent) AllocationResponse {
	return AllocationResponse{
		ID:            a.ID,
		ProductID:     a.ProductID,
		SourceLineID:  a.SourceLineID,
		Entries:       a.Entries,
		TotalQuantity: a.TotalQuantity(),
		TotalCost:     a.TotalCost(),
		AppliedAt:     a.AppliedAt,
		Released:      a.Released,
		ReleasedAt:    a.ReleasedAt,
		Movements:     movements,
	}
}

// ==================== Receiving ====================

// ReceivingLineResponse is one posted receiving line
type ReceivingLineResponse struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Total      decimal.Decimal `json:"total"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	BatchID    *uuid.UUID      `json:"batch_id,omitempty"`
}

// ReceivingOrderResponse is a receiving header with its lines
type ReceivingOrderResponse struct {
	ID          uuid.UUID               `json:"id"`
	Code        string                  `json:"code"`
	Supplier    string                  `json:"supplier"`
	Notes       string                  `json:"notes,omitempty"`
	ReceivedAt  time.Time               `json:"received_at"`
	CreatedBy   string                  `json:"created_by,omitempty"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
	Lines       []ReceivingLineResponse `json:"lines"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// ReceiveResponse is the outcome of posting a receiving header
type ReceiveResponse struct {
	Order      ReceivingOrderResponse `json:"order"`
	Batches    []BatchResponse        `json:"batches"`
	Rejections []trade.LineRejection  `json:"rejections"`
}

// ToReceivingOrderResponse converts a receiving header
func ToReceivingOrderResponse(o *trade.ReceivingOrder) ReceivingOrderResponse {
	lines := make([]ReceivingLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = ReceivingLineResponse{
			ID:         l.ID,
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			Total:      l.Total(),
			ExpiryDate: l.ExpiryDate,
			BatchID:    l.BatchID,
		}
	}
	return ReceivingOrderResponse{
		ID:          o.ID,
		Code:        o.Code,
		Supplier:    o.Supplier,
		Notes:       o.Notes,
		ReceivedAt:  o.ReceivedAt,
		CreatedBy:   o.CreatedBy,
		TotalAmount: o.TotalAmount(),
		Lines:       lines,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// ToReceivingOrderResponses converts a slice of receiving headers
func ToReceivingOrderResponses(orders []trade.ReceivingOrder) []ReceivingOrderResponse {
	out := make([]ReceivingOrderResponse, len(orders))
	for i := range orders {
		out[i] = ToReceivingOrderResponse(&orders[i])
	}
	return out
}

// ToReceiveResponse converts a receive result
func ToReceiveResponse(r *apptrade.ReceiveResult) ReceiveResponse {
	return ReceiveResponse{
		Order:      ToReceivingOrderResponse(r.Order),
		Batches:    ToBatchResponses(r.Batches),
		Rejections: nonNilRejections(r.Rejections),
	}
}

// ==================== Shipping ====================

// ShippingLineResponse is one posted shipping line
type ShippingLineResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Total           decimal.Decimal `json:"total"`
	BatchID         *uuid.UUID      `json:"batch_id,omitempty"`
	AllocationID    *uuid.UUID      `json:"allocation_id,omitempty"`
	Released        bool            `json:"released"`
}

// ShippingOrderResponse is a shipping header with its lines
type ShippingOrderResponse struct {
	ID          uuid.UUID              `json:"id"`
	Code        string                 `json:"code"`
	Customer    string                 `json:"customer"`
	Notes       string                 `json:"notes,omitempty"`
	ShippedAt   time.Time              `json:"shipped_at"`
	CreatedBy   string                 `json:"created_by,omitempty"`
	TotalAmount decimal.Decimal        `json:"total_amount"`
	Lines       []ShippingLineResponse `json:"lines"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// ShipResponse is the outcome of posting a shipping header
type ShipResponse struct {
	Order       ShippingOrderResponse `json:"order"`
	Allocations []AllocationResponse  `json:"allocations"`
	Rejections  []trade.LineRejection `json:"rejections"`
}

// ToShippingOrderResponse converts a shipping header
func ToShippingOrderResponse(o *trade.ShippingOrder) ShippingOrderResponse {
	lines := make([]ShippingLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = ShippingLineResponse{
			ID:              l.ID,
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			Total:           l.Total(),
			BatchID:         l.BatchID,
			AllocationID:    l.AllocationID,
			Released:        l.Released,
		}
	}
	return ShippingOrderResponse{
		ID:          o.ID,
		Code:        o.Code,
		Customer:    o.Customer,
		Notes:       o.Notes,
		ShippedAt:   o.ShippedAt,
		CreatedBy:   o.CreatedBy,
		TotalAmount: o.TotalAmount(),
		Lines:       lines,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// ToShippingOrderResponses converts a slice of shipping headers
func ToShippingOrderResponses(orders []trade.ShippingOrder) []ShippingOrderResponse {
	out := make([]ShippingOrderResponse, len(orders))
	for i := range orders {
		out[i] = ToShippingOrderResponse(&orders[i])
	}
	return out
}

// ToShipResponse converts a ship result
func ToShipResponse(r *apptrade.ShipResult) ShipResponse {
	allocations := make([]AllocationResponse, len(r.Allocations))
	for i, a := range r.Allocations {
		allocations[i] = ToAllocationResponse(a.Allocation, a.Events)
	}
	return ShipResponse{
		Order:       ToShippingOrderResponse(r.Order),
		Allocations: allocations,
		Rejections:  nonNilRejections(r.Rejections),
	}
}

func nonNilRejections(r []trade.LineRejection) []trade.LineRejection {
	if r == nil {
		return []trade.LineRejection{}
	}
	return r
}
