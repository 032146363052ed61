package trade

import (
	"context"

	"github.com/google/uuid"
	appinv "github.com/thanhnm3/khomypham/internal/application/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"github.com/thanhnm3/khomypham/internal/domain/trade"
	"go.uber.org/zap"
)

// BatchLedger is the part of the batch store the order processor drives
type BatchLedger interface {
	Get(ctx context.Context, batchID uuid.UUID) (*inventory.Batch, error)
	CreateBatch(ctx context.Context, in appinv.CreateBatchInput) (*inventory.Batch, error)
	EnsureRemovable(ctx context.Context, batchID uuid.UUID) error
	Remove(ctx context.Context, batchID uuid.UUID) (appinv.RemovalOutcome, error)
	Restore(ctx context.Context, batch *inventory.Batch) error
	Delete(ctx context.Context, batchID uuid.UUID) error
}

// StockAllocator is the part of the allocation engine the order processor drives
type StockAllocator interface {
	Allocate(ctx context.Context, productID uuid.UUID, quantity int64, sourceLineID *uuid.UUID) (*appinv.ApplyResult, error)
	Apply(ctx context.Context, plan *inventory.AllocationPlan, sourceLineID *uuid.UUID) (*appinv.ApplyResult, error)
	Release(ctx context.Context, allocationID uuid.UUID) (*appinv.ReleaseResult, error)
}

// OrderProcessor posts receiving and shipping headers against the ledger.
// Line-level problems reject the line and the header goes on; anything else
// aborts the header and undoes the ledger work already done for it.
type OrderProcessor struct {
	receivingRepo trade.ReceivingOrderRepository
	shippingRepo  trade.ShippingOrderRepository
	products      catalog.ProductReader
	batches       BatchLedger
	allocator     StockAllocator
	logger        *zap.Logger
}

// NewOrderProcessor creates a new OrderProcessor
func NewOrderProcessor(
	receivingRepo trade.ReceivingOrderRepository,
	shippingRepo trade.ShippingOrderRepository,
	products catalog.ProductReader,
	batches BatchLedger,
	allocator StockAllocator,
	logger *zap.Logger,
) *OrderProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderProcessor{
		receivingRepo: receivingRepo,
		shippingRepo:  shippingRepo,
		products:      products,
		batches:       batches,
		allocator:     allocator,
		logger:        logger,
	}
}

// GetReceiving returns a receiving header with its lines
func (p *OrderProcessor) GetReceiving(ctx context.Context, id uuid.UUID) (*trade.ReceivingOrder, error) {
	return p.receivingRepo.FindByID(ctx, id)
}

// ListReceiving returns receiving headers matching filter
func (p *OrderProcessor) ListReceiving(ctx context.Context, filter shared.Filter) ([]trade.ReceivingOrder, error) {
	return p.receivingRepo.FindAll(ctx, normalizeFilter(filter))
}

// GetShipping returns a shipping header with its lines
func (p *OrderProcessor) GetShipping(ctx context.Context, id uuid.UUID) (*trade.ShippingOrder, error) {
	return p.shippingRepo.FindByID(ctx, id)
}

// ListShipping returns shipping headers matching filter
func (p *OrderProcessor) ListShipping(ctx context.Context, filter shared.Filter) ([]trade.ShippingOrder, error) {
	return p.shippingRepo.FindAll(ctx, normalizeFilter(filter))
}

func normalizeFilter(filter shared.Filter) shared.Filter {
	defaults := shared.DefaultFilter()
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = defaults.Limit
	}
	if filter.OrderDir != "asc" {
		filter.OrderDir = defaults.OrderDir
	}
	return filter
}

// ensureCodeFree fails with ErrAlreadyExists when a caller-chosen code is taken
func ensureCodeFree(ctx context.Context, code string, exists func(context.Context, string) (bool, error)) error {
	if code == "" {
		return nil
	}
	taken, err := exists(ctx, code)
	if err != nil {
		return err
	}
	if taken {
		return shared.ErrAlreadyExists
	}
	return nil
}
