package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"go.uber.org/zap"
)

// ProductService seeds and reads the catalog entries the ledger depends on.
// The catalog itself is an external collaborator; this service exists so a
// standalone deployment can register products without one.
type ProductService struct {
	productRepo catalog.ProductRepository
	logger      *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(productRepo catalog.ProductRepository, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{productRepo: productRepo, logger: logger}
}

// Create registers a new active product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	if req.ExpiryDate != nil && req.ExpiryDays != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Only one of expiry_date and expiry_days may be set")
	}

	purchasePrice := decimal.Zero
	sellingPrice := decimal.Zero
	if req.PurchasePrice != nil {
		purchasePrice = *req.PurchasePrice
	}
	if req.SellingPrice != nil {
		sellingPrice = *req.SellingPrice
	}

	product, err := catalog.NewProduct(req.Code, req.Name, req.Unit, purchasePrice, sellingPrice)
	if err != nil {
		return nil, err
	}
	if req.ExpiryDate != nil {
		product.SetExpiryDate(*req.ExpiryDate)
	}
	if req.ExpiryDays != nil {
		if err := product.SetExpiryDays(*req.ExpiryDays); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}
	s.logger.Info("product registered",
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name),
	)

	resp := ToProductResponse(product)
	return &resp, nil
}

// GetByID returns a product by ID
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// List returns every product ordered by name
func (s *ProductService) List(ctx context.Context) ([]ProductResponse, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return ToProductResponses(products), nil
}

// Deactivate stops further stock movements for a product. Existing batches
// and allocations are untouched.
func (s *ProductService) Deactivate(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, shared.NewDomainError("INVALID_STATE", "Product is already inactive")
	}
	product.Deactivate()
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}
	resp := ToProductResponse(product)
	return &resp, nil
}
