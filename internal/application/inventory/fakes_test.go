package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

// MockEventPublisher collects published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// testLocker is a keyed mutex without reference counting
type testLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newTestLocker() *testLocker {
	return &testLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *testLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}

// memoryBatchRepo is an in-memory BatchRepository with failure hooks
type memoryBatchRepo struct {
	mu          sync.Mutex
	batches     map[uuid.UUID]inventory.Batch
	failAdjust  map[uuid.UUID]error
	afterAdjust func(batchID uuid.UUID)
}

func newMemoryBatchRepo() *memoryBatchRepo {
	return &memoryBatchRepo{
		batches:    make(map[uuid.UUID]inventory.Batch),
		failAdjust: make(map[uuid.UUID]error),
	}
}

func (r *memoryBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &b, nil
}

func (r *memoryBatchRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]inventory.Batch, error) {
	return r.filter(func(b *inventory.Batch) bool {
		for _, id := range ids {
			if b.ID == id {
				return true
			}
		}
		return false
	}), nil
}

func (r *memoryBatchRepo) FindEligible(_ context.Context, productID uuid.UUID) ([]inventory.Batch, error) {
	return r.filter(func(b *inventory.Batch) bool { return b.ProductID == productID && b.IsEligible() }), nil
}

func (r *memoryBatchRepo) FindActiveByProduct(_ context.Context, productID uuid.UUID) ([]inventory.Batch, error) {
	return r.filter(func(b *inventory.Batch) bool { return b.ProductID == productID && b.Active }), nil
}

func (r *memoryBatchRepo) FindActive(_ context.Context) ([]inventory.Batch, error) {
	return r.filter(func(b *inventory.Batch) bool { return b.Active }), nil
}

func (r *memoryBatchRepo) FindByReceivingLines(_ context.Context, lineIDs []uuid.UUID) ([]inventory.Batch, error) {
	return r.filter(func(b *inventory.Batch) bool {
		for _, id := range lineIDs {
			if b.ReceivingLineID != nil && *b.ReceivingLineID == id {
				return true
			}
		}
		return false
	}), nil
}

func (r *memoryBatchRepo) MaxCodeSequence(_ context.Context, prefix string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	maxSeq := 0
	for _, b := range r.batches {
		if seq, ok := inventory.BatchCodeSequence(prefix, b.Code); ok && seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq, nil
}

func (r *memoryBatchRepo) Save(_ context.Context, batch *inventory.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *batch
	stored.ClearDomainEvents()
	if existing, ok := r.batches[batch.ID]; ok {
		stored.QuantityImported = existing.QuantityImported
		stored.QuantityRemaining = existing.QuantityRemaining
	}
	r.batches[batch.ID] = stored
	return nil
}

func (r *memoryBatchRepo) AdjustRemaining(_ context.Context, batchID uuid.UUID, delta int64) (int64, error) {
	r.mu.Lock()
	if err, ok := r.failAdjust[batchID]; ok {
		r.mu.Unlock()
		return 0, err
	}
	b, ok := r.batches[batchID]
	if !ok {
		r.mu.Unlock()
		return 0, shared.ErrNotFound
	}
	if delta < 0 && !b.Active {
		r.mu.Unlock()
		return b.QuantityRemaining, inventory.ErrBatchInactive
	}
	if err := b.AdjustRemaining(delta); err != nil {
		r.mu.Unlock()
		return b.QuantityRemaining, err
	}
	r.batches[batchID] = b
	hook := r.afterAdjust
	r.mu.Unlock()

	if hook != nil {
		hook(batchID)
	}
	return b.QuantityRemaining, nil
}

func (r *memoryBatchRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.batches[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.batches, id)
	return nil
}

func (r *memoryBatchRepo) remaining(id uuid.UUID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[id].QuantityRemaining
}

func (r *memoryBatchRepo) filter(keep func(b *inventory.Batch) bool) []inventory.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.Batch, 0)
	for _, b := range r.batches {
		if keep(&b) {
			result = append(result, b)
		}
	}
	inventory.SortFIFO(result)
	return result
}

// memoryAllocationRepo is an in-memory AllocationRepository
type memoryAllocationRepo struct {
	mu          sync.Mutex
	allocations map[uuid.UUID]inventory.AppliedAllocation
	failSave    error
}

func newMemoryAllocationRepo() *memoryAllocationRepo {
	return &memoryAllocationRepo{allocations: make(map[uuid.UUID]inventory.AppliedAllocation)}
}

func (r *memoryAllocationRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.AppliedAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.allocations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (r *memoryAllocationRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.AppliedAllocation, error) {
	result := make([]inventory.AppliedAllocation, 0, len(ids))
	for _, id := range ids {
		if a, err := r.FindByID(ctx, id); err == nil {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *memoryAllocationRepo) Save(_ context.Context, allocation *inventory.AppliedAllocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return r.failSave
	}
	r.allocations[allocation.ID] = *allocation
	return nil
}

func (r *memoryAllocationRepo) MarkReleased(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.allocations[id]
	if !ok {
		return shared.ErrNotFound
	}
	if a.Released {
		return inventory.ErrAllocationReleased
	}
	a.Released = true
	a.ReleasedAt = &at
	r.allocations[id] = a
	return nil
}

func (r *memoryAllocationRepo) CountOutstandingByBatch(_ context.Context, batchID uuid.UUID) (int64, error) {
	return r.count(batchID, true), nil
}

func (r *memoryAllocationRepo) CountByBatch(_ context.Context, batchID uuid.UUID) (int64, error) {
	return r.count(batchID, false), nil
}

func (r *memoryAllocationRepo) count(batchID uuid.UUID, outstandingOnly bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.allocations {
		if outstandingOnly && a.Released {
			continue
		}
		if a.DrawsFrom(batchID) {
			n++
		}
	}
	return n
}

// memoryProducts is an in-memory product catalog
type memoryProducts struct {
	mu       sync.Mutex
	products map[uuid.UUID]catalog.Product
}

func newMemoryProducts(products ...*catalog.Product) *memoryProducts {
	m := &memoryProducts{products: make(map[uuid.UUID]catalog.Product)}
	for _, p := range products {
		m.products[p.ID] = *p
	}
	return m
}

func (m *memoryProducts) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (m *memoryProducts) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	result := make(map[uuid.UUID]*catalog.Product, len(ids))
	for _, id := range ids {
		if p, err := m.FindByID(ctx, id); err == nil {
			result[id] = p
		}
	}
	return result, nil
}

func (m *memoryProducts) FindAll(_ context.Context) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]catalog.Product, 0, len(m.products))
	for _, p := range m.products {
		result = append(result, p)
	}
	return result, nil
}
