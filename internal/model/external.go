package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExternalMovement statuses
const (
	MovementStatusSent              = "SENT"
	MovementStatusInTransit         = "IN_TRANSIT"
	MovementStatusAtPartner         = "AT_PARTNER"
	MovementStatusPartiallyReturned = "PARTIALLY_RETURNED"
	MovementStatusReturned          = "RETURNED"
	MovementStatusForwarded         = "FORWARDED"
)

// ExternalPartner is a shared reference entity for sub-contractors. Mutations
// here never cascade into historical movements.
type ExternalPartner struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name    string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Process string    `gorm:"type:varchar(100)" json:"process"` // e.g. plating, heat treatment
	Contact string    `gorm:"type:varchar(255)" json:"contact"`
	City    string    `gorm:"type:varchar(100)" json:"city"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *ExternalPartner) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ExternalMovement records one send-out/return cycle of batch material to a
// sub-contractor for one processing step.
//
// Invariant at all times: QtyReturned + QtyRejected <= QtySent.
type ExternalMovement struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"batch_id"`
	PartnerID uuid.UUID        `gorm:"type:uuid;not null;index" json:"partner_id"`
	Partner   *ExternalPartner `gorm:"foreignKey:PartnerID" json:"partner,omitempty"`

	ProcessStep string `gorm:"type:varchar(100)" json:"process_step"`
	PartnerName string `gorm:"type:varchar(255)" json:"partner_name"` // snapshot at send-out

	QtySent     int `gorm:"not null" json:"qty_sent"`
	QtyReturned int `gorm:"default:0;not null" json:"qty_returned"`
	QtyRejected int `gorm:"default:0;not null" json:"qty_rejected"`

	Status           string     `gorm:"type:varchar(25);not null;index" json:"status"`
	ExpectedReturnAt time.Time  `gorm:"not null" json:"expected_return_at"`
	ForwardedToID    *uuid.UUID `gorm:"type:uuid" json:"forwarded_to_id"` // successor movement when forwarded

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *ExternalMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Outstanding is the quantity still at the partner. A forwarded movement has
// handed its remainder to the successor movement, so it no longer counts.
func (m *ExternalMovement) Outstanding() int {
	if m.Status == MovementStatusForwarded {
		return 0
	}
	return m.QtySent - m.QtyReturned - m.QtyRejected
}

// Overdue reports whether the movement is past its expected return date with
// quantity still outstanding. Business visibility only, never a hard failure.
func (m *ExternalMovement) Overdue(asOf time.Time) bool {
	return m.Outstanding() > 0 && asOf.After(m.ExpectedReturnAt)
}
