package inventory

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// SortFIFO orders batches oldest first: by import timestamp, then by ID so
// that batches imported at the same instant still have a stable order.
func SortFIFO(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return fifoLess(&batches[i], &batches[j])
	})
}

func fifoLess(a, b *Batch) bool {
	if !a.ImportedAt.Equal(b.ImportedAt) {
		return a.ImportedAt.Before(b.ImportedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// PlanFIFO builds an allocation plan for quantity units of productID from the
// given batches, drawing each batch down fully before moving to the next one.
// Ineligible batches and batches of other products are ignored. The input
// slice is not modified.
func PlanFIFO(productID uuid.UUID, quantity int64, batches []Batch) (*AllocationPlan, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	eligible := make([]Batch, 0, len(batches))
	var available int64
	for _, b := range batches {
		if b.ProductID != productID || !b.IsEligible() {
			continue
		}
		eligible = append(eligible, b)
		available += b.QuantityRemaining
	}
	if available < quantity {
		return nil, &InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: available,
		}
	}

	SortFIFO(eligible)

	plan := &AllocationPlan{
		ProductID: productID,
		Requested: quantity,
		Entries:   make([]AllocationEntry, 0, 1),
	}
	left := quantity
	for _, b := range eligible {
		if left == 0 {
			break
		}
		take := min(left, b.QuantityRemaining)
		plan.Entries = append(plan.Entries, AllocationEntry{
			BatchID:    b.ID,
			BatchCode:  b.Code,
			Quantity:   take,
			UnitCost:   b.UnitCost,
			ImportedAt: b.ImportedAt,
		})
		left -= take
	}
	return plan, nil
}
