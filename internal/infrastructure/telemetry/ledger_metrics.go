package telemetry

import (
	"context"

	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the ledger instruments.
const MeterName = "khomypham/ledger"

// LedgerMetrics turns ledger events into counters. It subscribes to the
// event bus, so it only ever sees movements that were committed.
type LedgerMetrics struct {
	allocations    metric.Int64Counter
	unitsMoved     metric.Int64Counter
	batchesCreated metric.Int64Counter
	batchesRetired metric.Int64Counter
	unitsImported  metric.Int64Counter
}

// NewLedgerMetrics creates the ledger instruments on the given meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	m := &LedgerMetrics{}
	var err error
	if m.allocations, err = meter.Int64Counter("ledger.allocations",
		metric.WithDescription("Allocations by outcome"),
		metric.WithUnit("{allocation}")); err != nil {
		return nil, err
	}
	if m.unitsMoved, err = meter.Int64Counter("ledger.units_moved",
		metric.WithDescription("Units moved across batches by movement kind"),
		metric.WithUnit("{unit}")); err != nil {
		return nil, err
	}
	if m.batchesCreated, err = meter.Int64Counter("ledger.batches_created",
		metric.WithUnit("{batch}")); err != nil {
		return nil, err
	}
	if m.batchesRetired, err = meter.Int64Counter("ledger.batches_retired",
		metric.WithUnit("{batch}")); err != nil {
		return nil, err
	}
	if m.unitsImported, err = meter.Int64Counter("ledger.units_imported",
		metric.WithUnit("{unit}")); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes returns the event types this handler is interested in
func (m *LedgerMetrics) EventTypes() []string {
	return []string{
		inventory.EventTypeBatchCreated,
		inventory.EventTypeBatchRetired,
		inventory.EventTypeAllocationApplied,
		inventory.EventTypeAllocationReleased,
		inventory.EventTypeAllocationRolledBack,
	}
}

// Handle records one ledger event
func (m *LedgerMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.BatchCreatedEvent:
		m.batchesCreated.Add(ctx, 1)
		m.unitsImported.Add(ctx, e.Quantity)
	case *inventory.BatchRetiredEvent:
		m.batchesRetired.Add(ctx, 1)
	case *inventory.AllocationEvent:
		outcome := attribute.String("outcome", e.EventType())
		m.allocations.Add(ctx, 1, metric.WithAttributes(outcome))
		for _, mv := range e.Movements {
			delta := mv.Delta
			if delta < 0 {
				delta = -delta
			}
			m.unitsMoved.Add(ctx, delta, metric.WithAttributes(attribute.String("kind", string(mv.Kind))))
		}
	}
	return nil
}

var _ shared.EventHandler = (*LedgerMetrics)(nil)
