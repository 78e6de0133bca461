package repository

import (
	"fmt"

	"forgeline/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaveVersioned writes value back with an optimistic compare-and-swap on its
// version column. The caller must have incremented the struct's Version field
// already; expectedVersion is the version the row was loaded at. A missed swap
// means another transaction won the row and surfaces as a retryable Contention
// error, never a silent overwrite.
func SaveVersioned(db *gorm.DB, value interface{}, id uuid.UUID, expectedVersion int) error {
	res := db.Model(value).
		Where("id = ? AND version = ?", id, expectedVersion).
		Select("*").Omit("id", "created_at").
		Updates(value)
	if res.Error != nil {
		return fmt.Errorf("versioned save failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Contention("concurrent update on %T %s", value, id)
	}
	return nil
}
