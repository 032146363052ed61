package csvimport

import (
	"fmt"

	"github.com/thanhnm3/khomypham/internal/domain/shared"
)

// Row error codes
const (
	ErrCodeRequiredField = "REQUIRED_FIELD"
	ErrCodeInvalidType   = "INVALID_TYPE"
	ErrCodeInvalidRange  = "INVALID_RANGE"
	ErrCodeMalformedRow  = "MALFORMED_ROW"
)

// File-level failures. They carry INVALID_ codes so the HTTP layer maps them to 422.
var (
	ErrEmptyFile       = shared.NewDomainError("INVALID_CSV", "CSV file is empty")
	ErrInvalidEncoding = shared.NewDomainError("INVALID_CSV", "CSV file is not valid UTF-8")
	ErrMissingHeader   = shared.NewDomainError("INVALID_CSV", "CSV file missing header row")
	ErrNoDataRows      = shared.NewDomainError("INVALID_CSV", "CSV file contains no data rows")
	ErrTooManyRows     = shared.NewDomainError("INVALID_CSV", "CSV file has too many rows")
)

// RowError represents an error in a specific row. Rows count from 1 with the header as row 1.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}
