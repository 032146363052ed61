package csvimport

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receiving CSV columns
const (
	ColumnProductID  = "product_id"
	ColumnQuantity   = "quantity"
	ColumnUnitPrice  = "unit_price"
	ColumnExpiryDate = "expiry_date"
)

// DefaultMaxRows caps one receiving upload
const DefaultMaxRows = 5000

// ReceivingLine is one parsed receiving row
type ReceivingLine struct {
	Row        int
	ProductID  uuid.UUID
	Quantity   int64
	UnitPrice  *decimal.Decimal
	ExpiryDate *time.Time
}

// ReceivingImport is the outcome of reading a receiving upload
type ReceivingImport struct {
	Lines  []ReceivingLine
	Errors []RowError
}

// HasErrors reports whether any row was rejected
func (ri *ReceivingImport) HasErrors() bool {
	return len(ri.Errors) > 0
}

// ParseReceivingLines reads product_id, quantity and the optional unit_price and
// expiry_date columns. Row problems are collected, not returned; the error
// return is reserved for files that cannot be read at all. Blank rows are skipped.
// Quantity must be an integer here; its sign is checked by the ledger so that
// a non-positive line gets the same rejection as any other receiving line.
func ParseReceivingLines(r io.Reader, maxRows int, opts ...ParserOption) (*ReceivingImport, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	p, err := NewParser(r, opts...)
	if err != nil {
		return nil, err
	}
	if missing := p.MissingHeaders(ColumnProductID, ColumnQuantity); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %v", ErrMissingHeader, missing)
	}

	out := &ReceivingImport{}
	rows := 0
	for {
		row, err := p.ReadRow()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr RowError
		if errors.As(err, &rowErr) {
			out.Errors = append(out.Errors, rowErr)
			continue
		}
		if err != nil {
			return nil, err
		}
		if row.IsEmpty() {
			continue
		}
		if rows++; rows > maxRows {
			return nil, ErrTooManyRows
		}
		if line, errs := parseReceivingRow(row); len(errs) > 0 {
			out.Errors = append(out.Errors, errs...)
		} else {
			out.Lines = append(out.Lines, line)
		}
	}

	if rows == 0 && len(out.Errors) == 0 {
		return nil, ErrNoDataRows
	}
	return out, nil
}

func parseReceivingRow(row *Row) (ReceivingLine, []RowError) {
	line := ReceivingLine{Row: row.Number}
	var errs []RowError
	fail := func(column, code, message, value string) {
		errs = append(errs, RowError{Row: row.Number, Column: column, Code: code, Message: message, Value: value})
	}

	if v := row.Get(ColumnProductID); v == "" {
		fail(ColumnProductID, ErrCodeRequiredField, "product_id is required", "")
	} else if id, err := uuid.Parse(v); err != nil {
		fail(ColumnProductID, ErrCodeInvalidType, "product_id must be a UUID", v)
	} else {
		line.ProductID = id
	}

	if v := row.Get(ColumnQuantity); v == "" {
		fail(ColumnQuantity, ErrCodeRequiredField, "quantity is required", "")
	} else if q, err := strconv.ParseInt(v, 10, 64); err != nil {
		fail(ColumnQuantity, ErrCodeInvalidType, "quantity must be a whole number", v)
	} else {
		line.Quantity = q
	}

	if v := row.Get(ColumnUnitPrice); v != "" {
		price, err := decimal.NewFromString(v)
		switch {
		case err != nil:
			fail(ColumnUnitPrice, ErrCodeInvalidType, "unit_price must be a decimal", v)
		case price.IsNegative():
			fail(ColumnUnitPrice, ErrCodeInvalidRange, "unit_price cannot be negative", v)
		default:
			line.UnitPrice = &price
		}
	}

	if v := row.Get(ColumnExpiryDate); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, time.Local)
		if err != nil {
			fail(ColumnExpiryDate, ErrCodeInvalidType, "expiry_date must be YYYY-MM-DD", v)
		} else {
			line.ExpiryDate = &d
		}
	}
	return line, errs
}
