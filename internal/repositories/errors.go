package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound normalizes the driver-level "no rows" error so services never
// import gorm just to classify a miss.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err represents a missing row.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
