package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/report"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"github.com/thanhnm3/khomypham/internal/domain/trade"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProfitReport is the product margin breakdown of a reporting window plus
// the receiving and shipping totals of the same window
type ProfitReport struct {
	report.ProfitSummary
	From           *time.Time      `json:"from,omitempty"`
	To             *time.Time      `json:"to,omitempty"`
	ShippingOrders int             `json:"shipping_orders"`
	ReceivedOrders int             `json:"receiving_orders"`
	ReceivedValue  decimal.Decimal `json:"received_value"`
	ShippedValue   decimal.Decimal `json:"shipped_value"`
}

// ProfitService prices shipped lines against the batch costs their
// allocations drew. Released allocations no longer count as sold.
type ProfitService struct {
	shippingRepo   trade.ShippingOrderRepository
	receivingRepo  trade.ReceivingOrderRepository
	allocationRepo inventory.AllocationRepository
	products       catalog.ProductReader
	logger         *zap.Logger
}

// NewProfitService creates a new ProfitService
func NewProfitService(
	shippingRepo trade.ShippingOrderRepository,
	receivingRepo trade.ReceivingOrderRepository,
	allocationRepo inventory.AllocationRepository,
	products catalog.ProductReader,
	logger *zap.Logger,
) *ProfitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfitService{
		shippingRepo:   shippingRepo,
		receivingRepo:  receivingRepo,
		allocationRepo: allocationRepo,
		products:       products,
		logger:         logger,
	}
}

// OrderProfit returns the profit of every counted line of one shipping header
func (s *ProfitService) OrderProfit(ctx context.Context, orderID uuid.UUID) ([]report.LineProfit, error) {
	order, err := s.shippingRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.lineProfits(ctx, []trade.ShippingOrder{*order})
}

// ProductMargins aggregates shipped lines in rng by product
func (s *ProfitService) ProductMargins(ctx context.Context, rng shared.DateRange) (*ProfitReport, error) {
	filter := shared.Filter{Range: rng, OrderDir: "asc"}

	var (
		shipped  []trade.ShippingOrder
		received []trade.ReceivingOrder
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		shipped, err = s.shippingRepo.FindAll(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		received, err = s.receivingRepo.FindAll(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lines, err := s.lineProfits(ctx, shipped)
	if err != nil {
		return nil, err
	}
	names, err := s.productNames(ctx, lines)
	if err != nil {
		return nil, err
	}

	out := &ProfitReport{
		ProfitSummary:  report.Summarize(lines, names),
		ShippingOrders: len(shipped),
		ReceivedOrders: len(received),
		ReceivedValue:  decimal.Zero,
		ShippedValue:   decimal.Zero,
	}
	if !rng.From.IsZero() {
		out.From = &rng.From
	}
	if !rng.To.IsZero() {
		out.To = &rng.To
	}
	for i := range received {
		out.ReceivedValue = out.ReceivedValue.Add(received[i].TotalAmount())
	}
	for i := range shipped {
		out.ShippedValue = out.ShippedValue.Add(shipped[i].TotalAmount())
	}

	s.logger.Debug("profit report computed",
		zap.Int("shipping_orders", out.ShippingOrders),
		zap.Int("lines", len(lines)),
		zap.String("total_profit", out.TotalProfit.String()),
	)
	return out, nil
}

// lineProfits prices every line that still holds an outstanding allocation
func (s *ProfitService) lineProfits(ctx context.Context, orders []trade.ShippingOrder) ([]report.LineProfit, error) {
	ids := make([]uuid.UUID, 0)
	for i := range orders {
		ids = append(ids, orders[i].OutstandingAllocationIDs()...)
	}
	allocations, err := s.allocationRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*inventory.AppliedAllocation, len(allocations))
	for i := range allocations {
		byID[allocations[i].ID] = &allocations[i]
	}

	lines := make([]report.LineProfit, 0, len(ids))
	for i := range orders {
		for _, l := range orders[i].Lines {
			if l.AllocationID == nil || l.Released {
				continue
			}
			a, ok := byID[*l.AllocationID]
			if !ok || a.Released {
				continue
			}
			lines = append(lines, report.CalculateLineProfit(l.ID, l.ProductID, l.Quantity, l.UnitPrice, l.DiscountPercent, a.Entries))
		}
	}
	return lines, nil
}

func (s *ProfitService) productNames(ctx context.Context, lines []report.LineProfit) (map[uuid.UUID]string, error) {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; !ok {
			seen[l.ProductID] = struct{}{}
			ids = append(ids, l.ProductID)
		}
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(products))
	for id, p := range products {
		names[id] = p.Name
	}
	return names, nil
}
