package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apptrade "github.com/thanhnm3/khomypham/internal/application/trade"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	csvimport "github.com/thanhnm3/khomypham/internal/infrastructure/import"
	"github.com/thanhnm3/khomypham/internal/infrastructure/logger"
	"github.com/thanhnm3/khomypham/internal/interfaces/http/dto"
	"github.com/thanhnm3/khomypham/internal/interfaces/http/middleware"
)

// OrderHandler handles receiving and shipping headers
type OrderHandler struct {
	BaseHandler
	processor *apptrade.OrderProcessor
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(processor *apptrade.OrderProcessor) *OrderHandler {
	return &OrderHandler{processor: processor}
}

// ==================== Receiving ====================

// CreateReceiving posts a receiving header
// POST /receiving-orders
func (h *OrderHandler) CreateReceiving(c *gin.Context) {
	var cmd apptrade.ReceiveCommand
	if !h.BindJSON(c, &cmd) {
		return
	}
	if cmd.CreatedBy == "" {
		cmd.CreatedBy = logger.GetActor(c.Request.Context())
	}
	result, err := h.processor.Receive(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToReceiveResponse(result))
}

// ImportReceiving posts a receiving header whose lines come from a CSV body.
// Any unreadable row fails the whole upload before the ledger is touched.
// POST /receiving-orders/import
func (h *OrderHandler) ImportReceiving(c *gin.Context) {
	var q dto.ImportReceivingQuery
	if !h.BindQuery(c, &q) {
		return
	}
	receivedAt, err := parseDate(q.ReceivedAt, false)
	if err != nil {
		h.BadRequest(c, "received_at must be YYYY-MM-DD or RFC3339")
		return
	}
	var opts []csvimport.ParserOption
	switch q.Delimiter {
	case "", ",":
	case ";", "|", "\t":
		opts = append(opts, csvimport.WithDelimiter(rune(q.Delimiter[0])))
	default:
		h.BadRequest(c, "delimiter must be one of , ; | or a tab")
		return
	}

	parsed, err := csvimport.ParseReceivingLines(c.Request.Body, csvimport.DefaultMaxRows, opts...)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		h.HandleError(c, err)
		return
	}
	if parsed.HasErrors() {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrCodeValidation, "CSV rows failed validation", middleware.GetRequestID(c), parsed.Errors))
		return
	}

	cmd := apptrade.ReceiveCommand{
		Code:       q.Code,
		Supplier:   q.Supplier,
		Notes:      q.Notes,
		ReceivedAt: receivedAt,
		CreatedBy:  logger.GetActor(c.Request.Context()),
		Lines:      make([]apptrade.ReceiveLineInput, len(parsed.Lines)),
	}
	for i, l := range parsed.Lines {
		cmd.Lines[i] = apptrade.ReceiveLineInput{
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			ExpiryDate: l.ExpiryDate,
		}
	}
	result, err := h.processor.Receive(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToReceiveResponse(result))
}

// ListReceiving lists receiving headers
// GET /receiving-orders
func (h *OrderHandler) ListReceiving(c *gin.Context) {
	filter, ok := h.bindOrderFilter(c)
	if !ok {
		return
	}
	orders, err := h.processor.ListReceiving(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToReceivingOrderResponses(orders))
}

// GetReceiving returns one receiving header
// GET /receiving-orders/:id
func (h *OrderHandler) GetReceiving(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	order, err := h.processor.GetReceiving(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToReceivingOrderResponse(order))
}

// UpdateReceiving re-posts a receiving header
// PUT /receiving-orders/:id
func (h *OrderHandler) UpdateReceiving(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var cmd apptrade.ReceiveCommand
	if !h.BindJSON(c, &cmd) {
		return
	}
	result, err := h.processor.EditReceiving(c.Request.Context(), id, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToReceiveResponse(result))
}

// DeleteReceiving removes a receiving header and its batches
// DELETE /receiving-orders/:id
func (h *OrderHandler) DeleteReceiving(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	result, err := h.processor.DeleteReceiving(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ==================== Shipping ====================

// CreateShipping posts a shipping header
// POST /shipping-orders
func (h *OrderHandler) CreateShipping(c *gin.Context) {
	var cmd apptrade.ShipCommand
	if !h.BindJSON(c, &cmd) {
		return
	}
	if cmd.CreatedBy == "" {
		cmd.CreatedBy = logger.GetActor(c.Request.Context())
	}
	result, err := h.processor.Ship(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToShipResponse(result))
}

// ListShipping lists shipping headers
// GET /shipping-orders
func (h *OrderHandler) ListShipping(c *gin.Context) {
	filter, ok := h.bindOrderFilter(c)
	if !ok {
		return
	}
	orders, err := h.processor.ListShipping(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToShippingOrderResponses(orders))
}

// GetShipping returns one shipping header
// GET /shipping-orders/:id
func (h *OrderHandler) GetShipping(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	order, err := h.processor.GetShipping(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToShippingOrderResponse(order))
}

// UpdateShipping re-posts a shipping header
// PUT /shipping-orders/:id
func (h *OrderHandler) UpdateShipping(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var cmd apptrade.ShipCommand
	if !h.BindJSON(c, &cmd) {
		return
	}
	result, err := h.processor.EditShipping(c.Request.Context(), id, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToShipResponse(result))
}

// DeleteShipping releases a shipping header's allocations and removes it
// DELETE /shipping-orders/:id
func (h *OrderHandler) DeleteShipping(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	result, err := h.processor.DeleteShipping(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *OrderHandler) bindOrderFilter(c *gin.Context) (shared.Filter, bool) {
	var q dto.OrderListQuery
	if !h.BindQuery(c, &q) {
		return shared.Filter{}, false
	}
	rng, err := parseRange(q.DateRangeQuery)
	if err != nil {
		h.BadRequest(c, err.Error())
		return shared.Filter{}, false
	}
	return shared.Filter{Range: rng, Search: q.Search, Limit: q.Limit, OrderDir: q.OrderDir}, true
}
