package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeBatch      = "Batch"
	AggregateTypeAllocation = "Allocation"
)

// Event type constants
const (
	EventTypeBatchCreated         = "BatchCreated"
	EventTypeBatchRetired         = "BatchRetired"
	EventTypeAllocationApplied    = "AllocationApplied"
	EventTypeAllocationReleased   = "AllocationReleased"
	EventTypeAllocationRolledBack = "AllocationRolledBack"
)

// LedgerEventKind classifies a single batch movement
type LedgerEventKind string

const (
	LedgerEventApplied    LedgerEventKind = "applied"
	LedgerEventReleased   LedgerEventKind = "released"
	LedgerEventRolledBack LedgerEventKind = "rolled_back"
)

// LedgerEvent is the structured record of one movement on one batch
type LedgerEvent struct {
	Kind           LedgerEventKind `json:"kind"`
	ProductID      uuid.UUID       `json:"product_id"`
	BatchID        uuid.UUID       `json:"batch_id"`
	BatchCode      string          `json:"batch_code"`
	Delta          int64           `json:"delta"`
	RemainingAfter int64           `json:"remaining_after"`
	AllocationID   uuid.UUID       `json:"allocation_id,omitempty"`
	At             time.Time       `json:"at"`
}

// BatchCreatedEvent is raised when a receiving line posts a new batch
type BatchCreatedEvent struct {
	shared.BaseDomainEvent
	BatchID    uuid.UUID       `json:"batch_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	BatchCode  string          `json:"batch_code"`
	Quantity   int64           `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ImportedAt time.Time       `json:"imported_at"`
}

// NewBatchCreatedEvent creates a new BatchCreatedEvent
func NewBatchCreatedEvent(b *Batch) *BatchCreatedEvent {
	return &BatchCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchCreated, AggregateTypeBatch, b.ID),
		BatchID:         b.ID,
		ProductID:       b.ProductID,
		BatchCode:       b.Code,
		Quantity:        b.QuantityImported,
		UnitCost:        b.UnitCost,
		ImportedAt:      b.ImportedAt,
	}
}

// BatchRetiredEvent is raised when a batch is soft-retired
type BatchRetiredEvent struct {
	shared.BaseDomainEvent
	BatchID   uuid.UUID `json:"batch_id"`
	ProductID uuid.UUID `json:"product_id"`
	BatchCode string    `json:"batch_code"`
	Remaining int64     `json:"remaining"`
}

// NewBatchRetiredEvent creates a new BatchRetiredEvent
func NewBatchRetiredEvent(b *Batch) *BatchRetiredEvent {
	return &BatchRetiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchRetired, AggregateTypeBatch, b.ID),
		BatchID:         b.ID,
		ProductID:       b.ProductID,
		BatchCode:       b.Code,
		Remaining:       b.QuantityRemaining,
	}
}

// AllocationEvent carries the ledger movements of one apply, release or rollback
type AllocationEvent struct {
	shared.BaseDomainEvent
	AllocationID uuid.UUID     `json:"allocation_id"`
	ProductID    uuid.UUID     `json:"product_id"`
	Movements    []LedgerEvent `json:"movements"`
}

// NewAllocationEvent creates an allocation event of the given type
func NewAllocationEvent(eventType string, allocationID, productID uuid.UUID, movements []LedgerEvent) *AllocationEvent {
	aggID := allocationID
	if aggID == uuid.Nil {
		aggID = productID
	}
	return &AllocationEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeAllocation, aggID),
		AllocationID:    allocationID,
		ProductID:       productID,
		Movements:       movements,
	}
}
