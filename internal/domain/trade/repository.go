package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

// ReceivingOrderRepository persists receiving headers together with their lines
type ReceivingOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ReceivingOrder, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]ReceivingOrder, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	// Save upserts the header and replaces its lines
	Save(ctx context.Context, order *ReceivingOrder) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ShippingOrderRepository persists shipping headers together with their lines
type ShippingOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ShippingOrder, error)
	// FindAll returns headers shipped within filter.Range, lines included
	FindAll(ctx context.Context, filter shared.Filter) ([]ShippingOrder, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, order *ShippingOrder) error
	Delete(ctx context.Context, id uuid.UUID) error
}
