package inventory

import (
	"context"
	"fmt"

	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"go.uber.org/zap"
)

// StockAlert describes a batch that fell to or under the low-stock threshold
type StockAlert struct {
	ProductID string `json:"product_id"`
	BatchID   string `json:"batch_id"`
	BatchCode string `json:"batch_code"`
	Remaining int64  `json:"remaining"`
	Threshold int64  `json:"threshold"`
	AlertType string `json:"alert_type"` // "low_stock", "out_of_stock"
}

// StockAlertNotifier is the interface for sending stock alerts
type StockAlertNotifier interface {
	SendAlert(ctx context.Context, alert StockAlert) error
}

// LowStockHandler watches applied allocations and raises an alert for every
// batch the allocation drew down to the threshold or below
type LowStockHandler struct {
	logger    *zap.Logger
	threshold int64
	notifier  StockAlertNotifier
}

// NewLowStockHandler creates a new handler for allocation applied events
func NewLowStockHandler(logger *zap.Logger, threshold int64) *LowStockHandler {
	return &LowStockHandler{
		logger:    logger,
		threshold: threshold,
	}
}

// WithNotifier sets the notifier for sending alerts
func (h *LowStockHandler) WithNotifier(notifier StockAlertNotifier) *LowStockHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{inventory.EventTypeAllocationApplied}
}

// Handle processes an AllocationApplied event
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	applied, ok := event.(*inventory.AllocationEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeAllocationApplied),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeAllocationApplied, event.EventType())
	}

	for _, m := range applied.Movements {
		if m.RemainingAfter > h.threshold {
			continue
		}
		alert := StockAlert{
			ProductID: m.ProductID.String(),
			BatchID:   m.BatchID.String(),
			BatchCode: m.BatchCode,
			Remaining: m.RemainingAfter,
			Threshold: h.threshold,
			AlertType: "low_stock",
		}
		if m.RemainingAfter == 0 {
			alert.AlertType = "out_of_stock"
		}

		h.logger.Warn("batch stock low",
			zap.String("product_id", alert.ProductID),
			zap.String("batch_code", alert.BatchCode),
			zap.Int64("remaining", alert.Remaining),
			zap.String("alert_type", alert.AlertType),
		)
		if h.notifier == nil {
			continue
		}
		if err := h.notifier.SendAlert(ctx, alert); err != nil {
			h.logger.Error("failed to send stock alert",
				zap.String("batch_id", alert.BatchID),
				zap.Error(err),
			)
		}
	}
	return nil
}

var _ shared.EventHandler = (*LowStockHandler)(nil)
