package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

// AllocationEntry is one (batch, quantity) pair of a plan
type AllocationEntry struct {
	BatchID    uuid.UUID       `json:"batch_id"`
	BatchCode  string          `json:"batch_code"`
	Quantity   int64           `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ImportedAt time.Time       `json:"imported_at"`
}

// Cost returns quantity times the batch unit cost
func (e AllocationEntry) Cost() decimal.Decimal {
	return e.UnitCost.Mul(decimal.NewFromInt(e.Quantity))
}

// AllocationPlan is the ordered set of draws that would satisfy a request.
// It is a value: nothing is stored or mutated until it is applied.
type AllocationPlan struct {
	ProductID uuid.UUID         `json:"product_id"`
	Requested int64             `json:"requested"`
	Entries   []AllocationEntry `json:"entries"`
}

// TotalQuantity sums the entry quantities
func (p *AllocationPlan) TotalQuantity() int64 {
	return sumQuantity(p.Entries)
}

// TotalCost sums the entry costs
func (p *AllocationPlan) TotalCost() decimal.Decimal {
	return sumCost(p.Entries)
}

// AppliedAllocation is the durable record of a plan that has been applied.
// Release restores exactly these entries.
type AppliedAllocation struct {
	shared.BaseEntity
	ProductID    uuid.UUID
	SourceLineID *uuid.UUID
	Entries      []AllocationEntry
	AppliedAt    time.Time
	Released     bool
	ReleasedAt   *time.Time
}

// NewAppliedAllocation records plan as applied for the given source line
func NewAppliedAllocation(plan *AllocationPlan, sourceLineID *uuid.UUID) *AppliedAllocation {
	entries := make([]AllocationEntry, len(plan.Entries))
	copy(entries, plan.Entries)
	a := &AppliedAllocation{
		BaseEntity:   shared.NewBaseEntity(),
		ProductID:    plan.ProductID,
		SourceLineID: sourceLineID,
		Entries:      entries,
	}
	a.AppliedAt = a.CreatedAt
	return a
}

// MarkReleased flags the allocation as released. A second call fails.
func (a *AppliedAllocation) MarkReleased() error {
	if a.Released {
		return ErrAllocationReleased
	}
	now := time.Now()
	a.Released = true
	a.ReleasedAt = &now
	a.UpdatedAt = now
	return nil
}

// TotalQuantity sums the entry quantities
func (a *AppliedAllocation) TotalQuantity() int64 {
	return sumQuantity(a.Entries)
}

// TotalCost sums the entry costs
func (a *AppliedAllocation) TotalCost() decimal.Decimal {
	return sumCost(a.Entries)
}

// RepresentativeBatchID returns the first (oldest) batch drawn from
func (a *AppliedAllocation) RepresentativeBatchID() uuid.UUID {
	if len(a.Entries) == 0 {
		return uuid.Nil
	}
	return a.Entries[0].BatchID
}

// DrawsFrom reports whether the allocation took anything from batchID
func (a *AppliedAllocation) DrawsFrom(batchID uuid.UUID) bool {
	for _, e := range a.Entries {
		if e.BatchID == batchID {
			return true
		}
	}
	return false
}

func sumQuantity(entries []AllocationEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}

func sumCost(entries []AllocationEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Cost())
	}
	return total
}
