package report

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
)

var hundred = decimal.NewFromInt(100)

// LineProfit is the revenue, cost and profit of one shipping line
type LineProfit struct {
	LineID    uuid.UUID       `json:"line_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
	Cost      decimal.Decimal `json:"cost"`
	Profit    decimal.Decimal `json:"profit"`
}

// CalculateLineProfit prices a shipping line against the batches it drew from.
// Revenue is q*u*(1-d/100); cost is the sum of quantity times batch unit cost.
func CalculateLineProfit(lineID, productID uuid.UUID, quantity int64, unitPrice, discountPercent decimal.Decimal, entries []inventory.AllocationEntry) LineProfit {
	revenue := unitPrice.Mul(decimal.NewFromInt(quantity)).
		Mul(hundred.Sub(discountPercent)).
		Div(hundred)
	cost := decimal.Zero
	for _, e := range entries {
		cost = cost.Add(e.Cost())
	}
	return LineProfit{
		LineID:    lineID,
		ProductID: productID,
		Quantity:  quantity,
		Revenue:   revenue,
		Cost:      cost,
		Profit:    revenue.Sub(cost),
	}
}

// MarginPercent returns profit/cost*100 rounded to two places. The second
// result is false when cost is zero and the margin is undefined.
func MarginPercent(profit, cost decimal.Decimal) (decimal.Decimal, bool) {
	if !cost.IsPositive() {
		return decimal.Zero, false
	}
	return profit.Div(cost).Mul(hundred).Round(2), true
}

// ProductMargin aggregates line profits of one product
type ProductMargin struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	QuantitySold  int64           `json:"quantity_sold"`
	Revenue       decimal.Decimal `json:"revenue"`
	Cost          decimal.Decimal `json:"cost"`
	Profit        decimal.Decimal `json:"profit"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
	MarginDefined bool            `json:"margin_defined"`
}

// ProfitSummary is the product breakdown plus overall totals
type ProfitSummary struct {
	Products      []ProductMargin `json:"products"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
	MarginDefined bool            `json:"margin_defined"`
}

// Summarize groups lines by product. Products are ordered by profit descending,
// then by name. names may be nil.
func Summarize(lines []LineProfit, names map[uuid.UUID]string) ProfitSummary {
	byProduct := make(map[uuid.UUID]*ProductMargin)
	order := make([]uuid.UUID, 0)
	summary := ProfitSummary{
		TotalRevenue: decimal.Zero,
		TotalCost:    decimal.Zero,
		TotalProfit:  decimal.Zero,
	}

	for _, l := range lines {
		m, ok := byProduct[l.ProductID]
		if !ok {
			m = &ProductMargin{
				ProductID:   l.ProductID,
				ProductName: names[l.ProductID],
				Revenue:     decimal.Zero,
				Cost:        decimal.Zero,
				Profit:      decimal.Zero,
			}
			byProduct[l.ProductID] = m
			order = append(order, l.ProductID)
		}
		m.QuantitySold += l.Quantity
		m.Revenue = m.Revenue.Add(l.Revenue)
		m.Cost = m.Cost.Add(l.Cost)
		m.Profit = m.Profit.Add(l.Profit)

		summary.TotalRevenue = summary.TotalRevenue.Add(l.Revenue)
		summary.TotalCost = summary.TotalCost.Add(l.Cost)
		summary.TotalProfit = summary.TotalProfit.Add(l.Profit)
	}

	summary.Products = make([]ProductMargin, 0, len(order))
	for _, id := range order {
		m := byProduct[id]
		m.MarginPercent, m.MarginDefined = MarginPercent(m.Profit, m.Cost)
		summary.Products = append(summary.Products, *m)
	}
	sort.SliceStable(summary.Products, func(i, j int) bool {
		a, b := summary.Products[i], summary.Products[j]
		if !a.Profit.Equal(b.Profit) {
			return a.Profit.GreaterThan(b.Profit)
		}
		return a.ProductName < b.ProductName
	})
	summary.MarginPercent, summary.MarginDefined = MarginPercent(summary.TotalProfit, summary.TotalCost)
	return summary
}
