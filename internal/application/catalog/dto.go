package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
)

// CreateProductRequest represents a request to seed a catalog product
type CreateProductRequest struct {
	Code          string           `json:"code" binding:"max=50"`
	Name          string           `json:"name" binding:"required,min=1,max=200"`
	Unit          string           `json:"unit" binding:"max=20"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	SellingPrice  *decimal.Decimal `json:"selling_price"`
	ExpiryDate    *time.Time       `json:"expiry_date"`
	ExpiryDays    *int             `json:"expiry_days" binding:"omitempty,min=1"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID            uuid.UUID       `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	ExpiryDays    *int            `json:"expiry_days,omitempty"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToProductResponse converts a domain product to a response
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		Code:          p.Code,
		Name:          p.Name,
		Unit:          p.Unit,
		PurchasePrice: p.PurchasePrice,
		SellingPrice:  p.SellingPrice,
		ExpiryDate:    p.Expiry.Date,
		ExpiryDays:    p.Expiry.Days,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = ToProductResponse(&products[i])
	}
	return out
}
