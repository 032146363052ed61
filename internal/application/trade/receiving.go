package trade

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	appinv "github.com/thanhnm3/khomypham/internal/application/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"github.com/thanhnm3/khomypham/internal/domain/trade"
	"go.uber.org/zap"
)

// Receive creates a receiving header and one batch per valid line
func (p *OrderProcessor) Receive(ctx context.Context, cmd ReceiveCommand) (*ReceiveResult, error) {
	if len(cmd.Lines) == 0 {
		return nil, trade.ErrEmptyOrder
	}
	code := strings.TrimSpace(cmd.Code)
	if err := ensureCodeFree(ctx, code, p.receivingRepo.ExistsByCode); err != nil {
		return nil, err
	}

	order := trade.NewReceivingOrder(code, cmd.Supplier, cmd.Notes, cmd.ReceivedAt, cmd.CreatedBy)
	undo := newCompensations(p.logger)
	result, err := p.postReceivingLines(ctx, order, cmd.Lines, undo)
	if err != nil {
		return nil, undo.run(ctx, err)
	}
	if err := p.receivingRepo.Save(ctx, order); err != nil {
		return nil, undo.run(ctx, err)
	}

	p.logger.Info("receiving order posted",
		zap.String("order_id", order.ID.String()),
		zap.String("code", order.Code),
		zap.Int("lines", len(order.Lines)),
		zap.Int("rejected", len(result.Rejections)),
	)
	return result, nil
}

// EditReceiving removes every batch the header posted and re-posts it with
// cmd. Header code and creator are kept. Any failure restores the removed
// batches and drops the new ones.
func (p *OrderProcessor) EditReceiving(ctx context.Context, orderID uuid.UUID, cmd ReceiveCommand) (*ReceiveResult, error) {
	if len(cmd.Lines) == 0 {
		return nil, trade.ErrEmptyOrder
	}
	order, err := p.receivingRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	batchIDs := order.BatchIDs()
	if err := p.ensureBatchesRemovable(ctx, batchIDs); err != nil {
		return nil, err
	}

	undo := newCompensations(p.logger)
	if _, err := p.removeBatches(ctx, batchIDs, undo); err != nil {
		return nil, undo.run(ctx, err)
	}

	order.UpdateHeader(cmd.Supplier, cmd.Notes, cmd.ReceivedAt)
	order.ClearLines()
	result, err := p.postReceivingLines(ctx, order, cmd.Lines, undo)
	if err != nil {
		return nil, undo.run(ctx, err)
	}
	if err := p.receivingRepo.Save(ctx, order); err != nil {
		return nil, undo.run(ctx, err)
	}

	p.logger.Info("receiving order edited",
		zap.String("order_id", order.ID.String()),
		zap.Int("removed_batches", len(batchIDs)),
		zap.Int("lines", len(order.Lines)),
		zap.Int("rejected", len(result.Rejections)),
	)
	return result, nil
}

// DeleteReceiving deletes a receiving header. Batches nothing drew from are
// deleted and drawn-from ones retired; an outstanding allocation on any of
// them refuses the whole delete with ErrRetireConflict.
func (p *OrderProcessor) DeleteReceiving(ctx context.Context, orderID uuid.UUID) (*DeleteReceivingResult, error) {
	order, err := p.receivingRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	batchIDs := order.BatchIDs()
	if err := p.ensureBatchesRemovable(ctx, batchIDs); err != nil {
		return nil, err
	}

	undo := newCompensations(p.logger)
	result, err := p.removeBatches(ctx, batchIDs, undo)
	if err != nil {
		return nil, undo.run(ctx, err)
	}
	if err := p.receivingRepo.Delete(ctx, order.ID); err != nil {
		return nil, undo.run(ctx, err)
	}

	p.logger.Info("receiving order deleted",
		zap.String("order_id", order.ID.String()),
		zap.Int("deleted_batches", len(result.Deleted)),
		zap.Int("retired_batches", len(result.Retired)),
	)
	return result, nil
}

func (p *OrderProcessor) postReceivingLines(ctx context.Context, order *trade.ReceivingOrder, lines []ReceiveLineInput, undo *compensations) (*ReceiveResult, error) {
	result := &ReceiveResult{Order: order}
	for i, in := range lines {
		line, batch, err := p.receiveLine(ctx, order, in)
		if err != nil {
			if !trade.IsLineLevel(err) {
				return nil, err
			}
			result.Rejections = append(result.Rejections, trade.NewLineRejection(i, in.ProductID, in.Quantity, err))
			continue
		}
		batchID := batch.ID
		undo.push("remove batch "+batch.Code, func(ctx context.Context) error {
			_, err := p.batches.Remove(ctx, batchID)
			return err
		})
		order.AttachLine(*line)
		result.Batches = append(result.Batches, *batch)
	}
	if len(order.Lines) == 0 {
		return nil, &trade.RejectedOrderError{Rejections: result.Rejections}
	}
	return result, nil
}

func (p *OrderProcessor) receiveLine(ctx context.Context, order *trade.ReceivingOrder, in ReceiveLineInput) (*trade.ReceivingLine, *inventory.Batch, error) {
	if in.Quantity <= 0 {
		return nil, nil, inventory.ErrInvalidQuantity
	}
	product, err := p.activeProduct(ctx, in.ProductID)
	if err != nil {
		return nil, nil, err
	}
	unitPrice := product.PurchasePrice
	if in.UnitPrice != nil {
		unitPrice = *in.UnitPrice
	}
	line, err := order.NewReceivingLine(product.ID, in.Quantity, unitPrice, in.ExpiryDate)
	if err != nil {
		return nil, nil, err
	}

	lineID := line.ID
	batch, err := p.batches.CreateBatch(ctx, appinv.CreateBatchInput{
		ProductID:       product.ID,
		Quantity:        line.Quantity,
		ImportedAt:      order.ReceivedAt,
		UnitCost:        &line.UnitPrice,
		ExpiryDate:      line.ExpiryDate,
		ReceivingLineID: &lineID,
		CreatedBy:       order.CreatedBy,
	})
	if err != nil {
		return nil, nil, err
	}
	batchID := batch.ID
	line.BatchID = &batchID
	return line, batch, nil
}

func (p *OrderProcessor) ensureBatchesRemovable(ctx context.Context, batchIDs []uuid.UUID) error {
	for _, id := range batchIDs {
		if err := p.batches.EnsureRemovable(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// removeBatches removes each batch and records how to put it back. Batches
// that no longer exist are skipped.
func (p *OrderProcessor) removeBatches(ctx context.Context, batchIDs []uuid.UUID, undo *compensations) (*DeleteReceivingResult, error) {
	result := &DeleteReceivingResult{Deleted: []uuid.UUID{}, Retired: []uuid.UUID{}}
	for _, id := range batchIDs {
		snapshot, err := p.batches.Get(ctx, id)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		outcome, err := p.batches.Remove(ctx, id)
		if err != nil {
			return nil, err
		}
		undo.push("restore batch "+snapshot.Code, func(ctx context.Context) error {
			return p.batches.Restore(ctx, snapshot)
		})
		if outcome == appinv.BatchRetired {
			result.Retired = append(result.Retired, id)
		} else {
			result.Deleted = append(result.Deleted, id)
		}
	}
	return result, nil
}

func (p *OrderProcessor) activeProduct(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	product, err := p.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, catalog.ErrProductInactive
	}
	return product, nil
}
