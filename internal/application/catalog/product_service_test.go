package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[uuid.UUID]*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates product with day-count expiry", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)
		svc := NewProductService(repo, nil)

		days := 180
		resp, err := svc.Create(ctx, CreateProductRequest{
			Code:          "SR-01",
			Name:          "Serum",
			PurchasePrice: decPtr("100"),
			SellingPrice:  decPtr("180"),
			ExpiryDays:    &days,
		})
		require.NoError(t, err)
		assert.Equal(t, "Serum", resp.Name)
		assert.Equal(t, "pcs", resp.Unit)
		assert.True(t, resp.Active)
		assert.True(t, resp.PurchasePrice.Equal(decimal.NewFromInt(100)))
		require.NotNil(t, resp.ExpiryDays)
		assert.Equal(t, 180, *resp.ExpiryDays)
		assert.Nil(t, resp.ExpiryDate)
		repo.AssertExpectations(t)
	})

	t.Run("rejects both expiry forms", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, nil)

		days := 30
		date := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err := svc.Create(ctx, CreateProductRequest{Name: "Toner", ExpiryDate: &date, ExpiryDays: &days})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, nil)

		_, err := svc.Create(ctx, CreateProductRequest{Name: "Toner", SellingPrice: decPtr("-1")})
		require.Error(t, err)
		assert.Equal(t, "INVALID_PRICE", shared.CodeOf(err))
	})

	t.Run("wraps save failure", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("Save", ctx, mock.Anything).Return(errors.New("disk full"))
		svc := NewProductService(repo, nil)

		_, err := svc.Create(ctx, CreateProductRequest{Name: "Toner"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "save product")
	})
}

func TestProductService_Deactivate(t *testing.T) {
	ctx := context.Background()
	product, err := catalog.NewProduct("SR-01", "Serum", "", decimal.Zero, decimal.Zero)
	require.NoError(t, err)

	repo := new(MockProductRepository)
	repo.On("FindByID", ctx, product.ID).Return(product, nil)
	repo.On("Save", ctx, product).Return(nil).Once()
	svc := NewProductService(repo, nil)

	resp, err := svc.Deactivate(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, resp.Active)

	_, err = svc.Deactivate(ctx, product.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	repo.AssertExpectations(t)
}

func TestProductService_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	repo := new(MockProductRepository)
	repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

	_, err := NewProductService(repo, nil).GetByID(ctx, id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
