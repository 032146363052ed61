package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	appinv "github.com/thanhnm3/khomypham/internal/application/inventory"
	appreport "github.com/thanhnm3/khomypham/internal/application/report"
	"github.com/thanhnm3/khomypham/internal/interfaces/http/dto"
)

// ReportHandler handles profit and stock reports
type ReportHandler struct {
	BaseHandler
	profit *appreport.ProfitService
	stock  *appinv.StockAggregator
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(profit *appreport.ProfitService, stock *appinv.StockAggregator) *ReportHandler {
	return &ReportHandler{profit: profit, stock: stock}
}

// Profit returns product margins for a window
// GET /reports/profit?from=&to=
func (h *ReportHandler) Profit(c *gin.Context) {
	var q dto.DateRangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	rng, err := parseRange(q)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	report, err := h.profit.ProductMargins(c.Request.Context(), rng)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// OrderProfit returns per-line profit of one shipping header
// GET /reports/profit/orders/:id
func (h *ReportHandler) OrderProfit(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	lines, err := h.profit.OrderProfit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lines)
}

// StockSummary returns per-product stock and stock value
// GET /reports/stock-summary
func (h *ReportHandler) StockSummary(c *gin.Context) {
	summary, err := h.stock.StockSummary(c.Request.Context(), time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
