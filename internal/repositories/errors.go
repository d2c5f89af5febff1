package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// IsNotFound reports whether err is the database's missing-row error.
// Services translate this into their own sentinel errors.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
