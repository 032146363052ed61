package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductReader is the read-only view of the catalog used by the ledger
type ProductReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
}

// ProductRepository is the catalog collaborator's write path
type ProductRepository interface {
	ProductReader
	FindAll(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, product *Product) error
}
