package inventory

import (
	"context"

	"github.com/thanhnm3/khomypham/internal/domain/inventory"
)

// TransactionScope provides transactional access to ledger repositories.
// All repository operations made through the repositories handed to fn are
// committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	// BatchRepo returns the batch repository scoped to the current transaction
	BatchRepo() inventory.BatchRepository
	// AllocationRepo returns the allocation repository scoped to the current transaction
	AllocationRepo() inventory.AllocationRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// The allocation engine's compensation alone keeps the ledger consistent under it.
type NoOpTransactionScope struct {
	batchRepo      inventory.BatchRepository
	allocationRepo inventory.AllocationRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(batchRepo inventory.BatchRepository, allocationRepo inventory.AllocationRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		batchRepo:      batchRepo,
		allocationRepo: allocationRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BatchRepo returns the batch repository.
func (s *NoOpTransactionScope) BatchRepo() inventory.BatchRepository {
	return s.batchRepo
}

// AllocationRepo returns the allocation repository.
func (s *NoOpTransactionScope) AllocationRepo() inventory.AllocationRepository {
	return s.allocationRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
