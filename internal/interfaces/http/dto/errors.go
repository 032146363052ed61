package dto

import (
	"net/http"
	"strings"
)

// Transport error codes. Domain errors keep the code they were created with.
const (
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeRequestTooLarge  = "REQUEST_TOO_LARGE"
	ErrCodeRouteNotFound    = "ROUTE_NOT_FOUND"
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"
)

// Domain error codes that need a status other than the prefix rule gives them
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeInsufficientStock   = "INSUFFICIENT_STOCK"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeNothingPosted       = "NOTHING_POSTED"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeRetireConflict      = "RETIRE_CONFLICT"
	ErrCodeAllocationReleased  = "ALLOCATION_RELEASED"
	ErrCodeBatchDrawn          = "BATCH_DRAWN"
	ErrCodeNegativeStock       = "NEGATIVE_STOCK"
	ErrCodeOverImport          = "OVER_IMPORT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeDuplicateRequest: http.StatusConflict,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeRouteNotFound: http.StatusNotFound,

	// Conflicts with concurrent or existing ledger state -> 409
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeRetireConflict:      http.StatusConflict,
	ErrCodeAllocationReleased:  http.StatusConflict,
	ErrCodeBatchDrawn:          http.StatusConflict,
	ErrCodeNegativeStock:       http.StatusConflict,
	ErrCodeOverImport:          http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeInvalidQuantity:   http.StatusUnprocessableEntity,
	ErrCodeNothingPosted:     http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unlisted INVALID_* codes are field-level business rule violations (422);
// anything else is 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
