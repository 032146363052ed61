package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"github.com/thanhnm3/khomypham/internal/domain/trade"
	"github.com/thanhnm3/khomypham/internal/infrastructure/logger"
	"github.com/thanhnm3/khomypham/internal/interfaces/http/dto"
	"github.com/thanhnm3/khomypham/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
		dto.ErrCodeValidation,
		"Request validation failed",
		middleware.GetRequestID(c),
		details,
	))
}

// HandleError converts errors from the ledger services into responses.
// Coded errors keep their code and map to a status through dto.GetHTTPStatus;
// anything uncoded is logged and reported as an internal error.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	requestID := middleware.GetRequestID(c)

	code := shared.CodeOf(err)
	if code == "" {
		logger.FromContext(c.Request.Context()).Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInternal,
			"An unexpected error occurred",
			requestID,
		))
		return
	}

	status := dto.GetHTTPStatus(code)
	message, details := describe(err)
	c.JSON(status, dto.NewErrorResponseWithDetails(code, message, requestID, details))
}

// describe extracts the client-facing message and structured details of a coded error
func describe(err error) (string, any) {
	var rejected *trade.RejectedOrderError
	if errors.As(err, &rejected) {
		return rejected.Error(), rejected.Rejections
	}
	var insufficient *inventory.InsufficientStockError
	if errors.As(err, &insufficient) {
		return insufficient.Error(), gin.H{
			"product_id": insufficient.ProductID,
			"requested":  insufficient.Requested,
			"available":  insufficient.Available,
		}
	}
	var conflict *inventory.ConflictError
	if errors.As(err, &conflict) {
		details := gin.H{"product_id": conflict.ProductID}
		if conflict.BatchID != uuid.Nil {
			details["batch_id"] = conflict.BatchID
		}
		if code := shared.CodeOf(conflict.Cause); code != "" {
			details["cause"] = code
		}
		return conflict.Error(), details
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message, nil
	}
	return err.Error(), nil
}

// BindJSON binds and validates the request body, writing the error response
// itself on failure
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.handleBindError(c, err)
		return false
	}
	return true
}

// BindQuery binds and validates the query string
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.handleBindError(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) handleBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]dto.ValidationDetail, len(verrs))
		for i, fe := range verrs {
			details[i] = dto.ValidationDetail{
				Field:   fe.Namespace(),
				Message: validationMessage(fe),
			}
		}
		h.ValidationError(c, details)
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
	case errors.As(err, &typeErr):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON,
			fmt.Sprintf("Field %s must be %s", typeErr.Field, typeErr.Type))
	default:
		h.BadRequest(c, err.Error())
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// ParseID parses a UUID path parameter, writing a 400 on failure
func (h *BaseHandler) ParseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.BadRequest(c, fmt.Sprintf("Invalid %s: must be a UUID", param))
		return uuid.Nil, false
	}
	return id, true
}

// parseDate accepts YYYY-MM-DD or RFC 3339. endOfRange turns a bare date
// into the start of the following day so a half-open range includes it.
func parseDate(value string, endOfRange bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", value)
	}
	if endOfRange {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// parseRange converts query bounds into a reporting window
func parseRange(q dto.DateRangeQuery) (shared.DateRange, error) {
	from, err := parseDate(q.From, false)
	if err != nil {
		return shared.DateRange{}, err
	}
	to, err := parseDate(q.To, true)
	if err != nil {
		return shared.DateRange{}, err
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return shared.DateRange{}, errors.New("from must be before to")
	}
	return shared.DateRange{From: from, To: to}, nil
}
