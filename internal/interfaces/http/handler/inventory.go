package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	appinv "github.com/thanhnm3/khomypham/internal/application/inventory"
	"github.com/thanhnm3/khomypham/internal/infrastructure/logger"
	"github.com/thanhnm3/khomypham/internal/interfaces/http/dto"
)

// InventoryHandler exposes the batch store, the stock aggregator and the
// allocation engine
type InventoryHandler struct {
	BaseHandler
	batches    *appinv.BatchStore
	stock      *appinv.StockAggregator
	allocation *appinv.AllocationEngine
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(batches *appinv.BatchStore, stock *appinv.StockAggregator, allocation *appinv.AllocationEngine) *InventoryHandler {
	return &InventoryHandler{batches: batches, stock: stock, allocation: allocation}
}

// CreateBatch creates a batch directly
// POST /batches
func (h *InventoryHandler) CreateBatch(c *gin.Context) {
	var req dto.CreateBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in := appinv.CreateBatchInput{
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		UnitCost:   req.UnitCost,
		ExpiryDate: req.ExpiryDate,
		CreatedBy:  req.CreatedBy,
	}
	if req.ImportedAt != nil {
		in.ImportedAt = *req.ImportedAt
	}
	if in.CreatedBy == "" {
		in.CreatedBy = logger.GetActor(c.Request.Context())
	}

	batch, err := h.batches.CreateBatch(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToBatchResponse(batch))
}

// GetBatch returns one batch
// GET /batches/:id
func (h *InventoryHandler) GetBatch(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	batch, err := h.batches.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToBatchResponse(batch))
}

// TotalStock returns the on-hand total of a product
// GET /products/:id/stock
func (h *InventoryHandler) TotalStock(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	total, err := h.stock.TotalStock(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.StockResponse{ProductID: id, TotalStock: total})
}

// ListEligible returns the batches FIFO would draw from, oldest first
// GET /products/:id/batches/eligible
func (h *InventoryHandler) ListEligible(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	batches, err := h.batches.ListEligible(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToBatchResponses(batches))
}

// LowStock returns active batches at or under the threshold
// GET /products/:id/batches/low-stock?threshold=
func (h *InventoryHandler) LowStock(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q dto.LowStockQuery
	if !h.BindQuery(c, &q) {
		return
	}
	threshold := h.stock.LowStockThreshold()
	if q.Threshold != nil {
		threshold = *q.Threshold
	}
	batches, err := h.stock.LowStockBatches(c.Request.Context(), id, threshold)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToBatchResponses(batches))
}

// Expiring returns batches expiring inside the window
// GET /products/:id/batches/expiring?as_of=&window_days=
func (h *InventoryHandler) Expiring(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q dto.ExpiringQuery
	if !h.BindQuery(c, &q) {
		return
	}
	asOf := time.Now()
	if q.AsOf != "" {
		t, err := parseDate(q.AsOf, false)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		asOf = t
	}
	window := h.stock.ExpiringWindow()
	if q.WindowDays != nil {
		window = time.Duration(*q.WindowDays) * 24 * time.Hour
	}

	batches, err := h.stock.ExpiringBatches(c.Request.Context(), id, asOf, window)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToExpiringBatchResponses(batches))
}

// Plan computes a FIFO plan without applying it
// POST /allocations/plan
func (h *InventoryHandler) Plan(c *gin.Context) {
	var req dto.PlanRequest
	if !h.BindJSON(c, &req) {
		return
	}
	plan, err := h.allocation.Plan(c.Request.Context(), req.ProductID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToPlanResponse(plan))
}

// Release returns an applied allocation's quantities to their batches
// POST /allocations/:id/release
func (h *InventoryHandler) Release(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	result, err := h.allocation.Release(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToAllocationResponse(result.Allocation, result.Events))
}
