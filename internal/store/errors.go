package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/feral-file/ff-stamp-market/internal/domain"
)

// wrapError classifies a database failure as a conflict or an internal error
func wrapError(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("failed to %s: %w: %w", op, domain.ErrConflict, err)
	}
	if errors.Is(err, domain.ErrInvalidArgument) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return fmt.Errorf("failed to %s: %w: %w", op, domain.ErrInternal, err)
}
