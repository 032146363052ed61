package persistence

import (
	"errors"
	"fmt"

	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps GORM errors onto domain errors and wraps the rest
func translateError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	}
	return fmt.Errorf("%s: %w", op, err)
}
