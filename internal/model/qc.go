package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QC record kinds. The raw-material gate reads INCOMING records; the other gate
// kinds match their record kind one-to-one.
const (
	QCKindIncoming     = "INCOMING"
	QCKindFirstPiece   = "FIRST_PIECE"
	QCKindInProcess    = "IN_PROCESS"
	QCKindFinal        = "FINAL"
	QCKindPostExternal = "POST_EXTERNAL"
)

// QC results
const (
	QCResultPass    = "PASS"
	QCResultFail    = "FAIL"
	QCResultRework  = "REWORK"
	QCResultPending = "PENDING"
	QCResultWaived  = "WAIVED"
)

// GateOpen reports whether a result opens the quality gate.
func GateOpen(result string) bool {
	return result == QCResultPass || result == QCResultWaived
}

// QCRecord is one inspection event. Records are never edited or deleted; a
// superseding record is filed instead and the most recent one is authoritative.
type QCRecord struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	QCNumber      string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"qc_number"`
	WorkOrderID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"work_order_id"`
	BatchID       *uuid.UUID `gorm:"type:uuid;index" json:"batch_id"`
	MaterialLotID *uuid.UUID `gorm:"type:uuid;index" json:"material_lot_id"`

	Kind      string `gorm:"type:varchar(20);not null;index" json:"kind"`
	Result    string `gorm:"type:varchar(10);not null" json:"result"`
	Mandatory bool   `gorm:"default:true;not null" json:"mandatory"`

	InspectorID  *uuid.UUID `gorm:"type:uuid" json:"inspector_id"`
	WaivedBy     *uuid.UUID `gorm:"type:uuid" json:"waived_by"`
	WaiverReason string     `gorm:"type:text" json:"waiver_reason"`
	Notes        string     `gorm:"type:text" json:"notes"`

	Measurements []QCMeasurement `gorm:"foreignKey:QCRecordID" json:"measurements"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (r *QCRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// QCMeasurement is one dimension checked against its tolerance band.
type QCMeasurement struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QCRecordID uuid.UUID `gorm:"type:uuid;not null;index" json:"qc_record_id"`

	Dimension    string          `gorm:"type:varchar(100);not null" json:"dimension"`
	Measured     decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"measured"`
	ToleranceMin decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"tolerance_min"`
	ToleranceMax decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"tolerance_max"`
	InTolerance  bool            `gorm:"not null" json:"in_tolerance"`
}

func (m *QCMeasurement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// WithinBand computes the in/out-of-tolerance flag.
func (m *QCMeasurement) WithinBand() bool {
	return m.Measured.GreaterThanOrEqual(m.ToleranceMin) && m.Measured.LessThanOrEqual(m.ToleranceMax)
}
