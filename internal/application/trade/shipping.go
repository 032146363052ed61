package trade

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	appinv "github.com/thanhnm3/khomypham/internal/application/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/trade"
	"go.uber.org/zap"
)

// Ship creates a shipping header, allocating every line FIFO. Lines short of
// stock are rejected with the available quantity; a ledger conflict aborts
// the header and releases the lines already allocated.
func (p *OrderProcessor) Ship(ctx context.Context, cmd ShipCommand) (*ShipResult, error) {
	if len(cmd.Lines) == 0 {
		return nil, trade.ErrEmptyOrder
	}
	code := strings.TrimSpace(cmd.Code)
	if err := ensureCodeFree(ctx, code, p.shippingRepo.ExistsByCode); err != nil {
		return nil, err
	}

	order := trade.NewShippingOrder(code, cmd.Customer, cmd.Notes, cmd.ShippedAt, cmd.CreatedBy)
	undo := newCompensations(p.logger)
	result, err := p.postShippingLines(ctx, order, cmd.Lines, undo)
	if err != nil {
		return nil, undo.run(ctx, err)
	}
	if err := p.shippingRepo.Save(ctx, order); err != nil {
		return nil, undo.run(ctx, err)
	}

	p.logger.Info("shipping order posted",
		zap.String("order_id", order.ID.String()),
		zap.String("code", order.Code),
		zap.Int("lines", len(order.Lines)),
		zap.Int("rejected", len(result.Rejections)),
	)
	return result, nil
}

// EditShipping releases every outstanding line of the header and re-posts it
// with cmd. On failure the released quantities are re-applied to exactly the
// batches they came from and the previous header is stored again.
func (p *OrderProcessor) EditShipping(ctx context.Context, orderID uuid.UUID, cmd ShipCommand) (*ShipResult, error) {
	if len(cmd.Lines) == 0 {
		return nil, trade.ErrEmptyOrder
	}
	order, err := p.shippingRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	undo := newCompensations(p.logger)
	released, err := p.releaseLines(ctx, order, undo)
	if err != nil {
		return nil, undo.run(ctx, err)
	}

	order.UpdateHeader(cmd.Customer, cmd.Notes, cmd.ShippedAt)
	order.ClearLines()
	result, err := p.postShippingLines(ctx, order, cmd.Lines, undo)
	if err != nil {
		return nil, undo.run(ctx, err)
	}
	if err := p.shippingRepo.Save(ctx, order); err != nil {
		return nil, undo.run(ctx, err)
	}

	p.logger.Info("shipping order edited",
		zap.String("order_id", order.ID.String()),
		zap.Int("released", len(released)),
		zap.Int("lines", len(order.Lines)),
		zap.Int("rejected", len(result.Rejections)),
	)
	return result, nil
}

// DeleteShipping releases every outstanding line and deletes the header
func (p *OrderProcessor) DeleteShipping(ctx context.Context, orderID uuid.UUID) (*DeleteShippingResult, error) {
	order, err := p.shippingRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	undo := newCompensations(p.logger)
	released, err := p.releaseLines(ctx, order, undo)
	if err != nil {
		return nil, undo.run(ctx, err)
	}
	if err := p.shippingRepo.Delete(ctx, order.ID); err != nil {
		return nil, undo.run(ctx, err)
	}

	p.logger.Info("shipping order deleted",
		zap.String("order_id", order.ID.String()),
		zap.Int("released", len(released)),
	)
	return &DeleteShippingResult{Released: released}, nil
}

func (p *OrderProcessor) postShippingLines(ctx context.Context, order *trade.ShippingOrder, lines []ShipLineInput, undo *compensations) (*ShipResult, error) {
	result := &ShipResult{Order: order}
	for i, in := range lines {
		line, applied, err := p.shipLine(ctx, order, in)
		if err != nil {
			if !trade.IsLineLevel(err) {
				return nil, err
			}
			result.Rejections = append(result.Rejections, trade.NewLineRejection(i, in.ProductID, in.Quantity, err))
			continue
		}
		allocationID := applied.Allocation.ID
		undo.push("release allocation "+allocationID.String(), func(ctx context.Context) error {
			_, err := p.allocator.Release(ctx, allocationID)
			return err
		})
		order.AttachLine(*line)
		result.Allocations = append(result.Allocations, *applied)
	}
	if len(order.Lines) == 0 {
		return nil, &trade.RejectedOrderError{Rejections: result.Rejections}
	}
	return result, nil
}

func (p *OrderProcessor) shipLine(ctx context.Context, order *trade.ShippingOrder, in ShipLineInput) (*trade.ShippingLine, *appinv.ApplyResult, error) {
	if in.Quantity <= 0 {
		return nil, nil, inventory.ErrInvalidQuantity
	}
	product, err := p.activeProduct(ctx, in.ProductID)
	if err != nil {
		return nil, nil, err
	}
	unitPrice := product.SellingPrice
	if in.UnitPrice != nil {
		unitPrice = *in.UnitPrice
	}
	line, err := order.NewShippingLine(product.ID, in.Quantity, unitPrice, in.DiscountPercent)
	if err != nil {
		return nil, nil, err
	}

	lineID := line.ID
	applied, err := p.allocator.Allocate(ctx, product.ID, line.Quantity, &lineID)
	if err != nil {
		return nil, nil, err
	}
	line.AttachAllocation(applied.Allocation)
	return line, applied, nil
}

// releaseLines releases the outstanding allocation of every line. The undo
// steps re-apply each released allocation entry for entry and then store the
// header as it was, pointing at the re-applied allocations.
func (p *OrderProcessor) releaseLines(ctx context.Context, order *trade.ShippingOrder, undo *compensations) ([]uuid.UUID, error) {
	previous := *order
	previous.Lines = slices.Clone(order.Lines)
	undo.push("restore shipping order "+previous.Code, func(ctx context.Context) error {
		return p.shippingRepo.Save(ctx, &previous)
	})

	released := make([]uuid.UUID, 0, len(order.Lines))
	for i, line := range order.Lines {
		if line.AllocationID == nil || line.Released {
			continue
		}
		res, err := p.allocator.Release(ctx, *line.AllocationID)
		if errors.Is(err, inventory.ErrAllocationReleased) {
			continue
		}
		if err != nil {
			return nil, err
		}
		released = append(released, res.Allocation.ID)

		idx, lineID, allocation := i, line.ID, res.Allocation
		undo.push("reapply allocation "+allocation.ID.String(), func(ctx context.Context) error {
			plan := &inventory.AllocationPlan{
				ProductID: allocation.ProductID,
				Requested: allocation.TotalQuantity(),
				Entries:   allocation.Entries,
			}
			applied, err := p.allocator.Apply(ctx, plan, &lineID)
			if err != nil {
				return err
			}
			previous.Lines[idx].AttachAllocation(applied.Allocation)
			return nil
		})
	}
	return released, nil
}
