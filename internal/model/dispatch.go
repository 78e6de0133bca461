package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DispatchAllocation assigns QC-approved, packed batch quantity to an outbound
// shipment. Allocations are idempotent by ExternalRef: replaying the same
// reference returns the original row instead of double-counting.
type DispatchAllocation struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DispatchNumber string    `gorm:"type:varchar(40);uniqueIndex;not null" json:"dispatch_number"`
	ExternalRef    string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"external_ref"`

	BatchID     uuid.UUID `gorm:"type:uuid;not null;index" json:"batch_id"`
	WorkOrderID uuid.UUID `gorm:"type:uuid;not null;index" json:"work_order_id"`

	Qty          int    `gorm:"not null" json:"qty"`
	Destination  string `gorm:"type:varchar(255);not null" json:"destination"`
	CartonNo     string `gorm:"type:varchar(50)" json:"carton_no"`
	CustomerName string `gorm:"type:varchar(255)" json:"customer_name"` // snapshot from the work order

	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
}

func (a *DispatchAllocation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
