package report

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockLine is the on-hand position of one product
type StockLine struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductCode   string          `json:"product_code"`
	ProductName   string          `json:"product_name"`
	Unit          string          `json:"unit"`
	TotalStock    int64           `json:"total_stock"`
	StockValue    decimal.Decimal `json:"stock_value"`
	ActiveBatches int             `json:"active_batches"`
	LowStock      int             `json:"low_stock_batches"`
	ExpiringSoon  int             `json:"expiring_batches"`
}

// StockSummary is the inventory report across every product
type StockSummary struct {
	Lines      []StockLine     `json:"lines"`
	TotalStock int64           `json:"total_stock"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// NewStockSummary totals the given lines
func NewStockSummary(lines []StockLine) StockSummary {
	s := StockSummary{Lines: lines, TotalValue: decimal.Zero}
	for _, l := range lines {
		s.TotalStock += l.TotalStock
		s.TotalValue = s.TotalValue.Add(l.StockValue)
	}
	return s
}
