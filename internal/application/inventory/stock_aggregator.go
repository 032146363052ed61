package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/report"
	"golang.org/x/sync/errgroup"
)

// Defaults for stock alerts
const (
	DefaultLowStockThreshold int64 = 10
	DefaultExpiringWindow          = 30 * 24 * time.Hour
)

// ProductCatalog is the catalog view the aggregator reads
type ProductCatalog interface {
	catalog.ProductReader
	FindAll(ctx context.Context) ([]catalog.Product, error)
}

// ExpiringBatch is a batch with its resolved expiry date
type ExpiringBatch struct {
	inventory.Batch
	ExpiresAt time.Time
}

// StockAggregator answers read-only questions about on-hand stock.
// It takes no locks; each answer reflects one snapshot read.
type StockAggregator struct {
	batchRepo         inventory.BatchRepository
	products          ProductCatalog
	lowStockThreshold int64
	expiringWindow    time.Duration
}

// NewStockAggregator creates a new StockAggregator with the default alert settings
func NewStockAggregator(batchRepo inventory.BatchRepository, products ProductCatalog) *StockAggregator {
	return &StockAggregator{
		batchRepo:         batchRepo,
		products:          products,
		lowStockThreshold: DefaultLowStockThreshold,
		expiringWindow:    DefaultExpiringWindow,
	}
}

// SetAlertDefaults overrides the low-stock threshold and expiring window
// used when callers do not pass their own
func (a *StockAggregator) SetAlertDefaults(lowStockThreshold int64, expiringWindow time.Duration) {
	if lowStockThreshold >= 0 {
		a.lowStockThreshold = lowStockThreshold
	}
	if expiringWindow > 0 {
		a.expiringWindow = expiringWindow
	}
}

// LowStockThreshold returns the configured default threshold
func (a *StockAggregator) LowStockThreshold() int64 {
	return a.lowStockThreshold
}

// ExpiringWindow returns the configured default window
func (a *StockAggregator) ExpiringWindow() time.Duration {
	return a.expiringWindow
}

// TotalStock sums remaining quantity over the product's active batches
func (a *StockAggregator) TotalStock(ctx context.Context, productID uuid.UUID) (int64, error) {
	batches, err := a.batchRepo.FindActiveByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, b := range batches {
		total += b.QuantityRemaining
	}
	return total, nil
}

// LowStockBatches returns active batches with remaining at or below threshold
func (a *StockAggregator) LowStockBatches(ctx context.Context, productID uuid.UUID, threshold int64) ([]inventory.Batch, error) {
	batches, err := a.batchRepo.FindActiveByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	low := make([]inventory.Batch, 0)
	for _, b := range batches {
		if b.IsLowStock(threshold) {
			low = append(low, b)
		}
	}
	return low, nil
}

// ExpiringBatches returns active batches whose resolved expiry falls within
// [asOf, asOf+window], soonest first
func (a *StockAggregator) ExpiringBatches(ctx context.Context, productID uuid.UUID, asOf time.Time, window time.Duration) ([]ExpiringBatch, error) {
	product, err := a.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	batches, err := a.batchRepo.FindActiveByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return expiringAmong(batches, product.Expiry, asOf, window), nil
}

// StockSummary reports stock and stock value for every product, with
// low-stock and expiring counts under the configured defaults
func (a *StockAggregator) StockSummary(ctx context.Context, asOf time.Time) (report.StockSummary, error) {
	var (
		products []catalog.Product
		batches  []inventory.Batch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = a.products.FindAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		batches, err = a.batchRepo.FindActive(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return report.StockSummary{}, err
	}

	byProduct := make(map[uuid.UUID][]inventory.Batch, len(products))
	for _, b := range batches {
		byProduct[b.ProductID] = append(byProduct[b.ProductID], b)
	}

	lines := make([]report.StockLine, 0, len(products))
	for _, p := range products {
		own := byProduct[p.ID]
		line := report.StockLine{
			ProductID:     p.ID,
			ProductCode:   p.Code,
			ProductName:   p.Name,
			Unit:          p.Unit,
			ActiveBatches: len(own),
		}
		for i := range own {
			b := &own[i]
			line.TotalStock += b.QuantityRemaining
			line.StockValue = line.StockValue.Add(b.StockValue())
			if b.IsLowStock(a.lowStockThreshold) {
				line.LowStock++
			}
		}
		line.ExpiringSoon = len(expiringAmong(own, p.Expiry, asOf, a.expiringWindow))
		lines = append(lines, line)
	}
	return report.NewStockSummary(lines), nil
}

func expiringAmong(batches []inventory.Batch, policy catalog.ExpiryPolicy, asOf time.Time, window time.Duration) []ExpiringBatch {
	result := make([]ExpiringBatch, 0)
	for _, b := range batches {
		if !b.ExpiresWithin(policy, asOf, window) {
			continue
		}
		result = append(result, ExpiringBatch{Batch: b, ExpiresAt: *b.ResolveExpiry(policy)})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	return result
}
