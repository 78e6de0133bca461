package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Batch stage constants — a monotone subset of the order's stages.
const (
	BatchStageCutting    = "CUTTING"
	BatchStageProduction = "PRODUCTION"
	BatchStageExternal   = "EXTERNAL"
	BatchStageQC         = "QC"
	BatchStagePacking    = "PACKING"
	BatchStageDispatched = "DISPATCHED"
)

// batchStageRank orders batch stages for monotone transitions. EXTERNAL is
// repeatable: a batch already at EXTERNAL may be sent out again.
var batchStageRank = map[string]int{
	BatchStageCutting:    1,
	BatchStageProduction: 2,
	BatchStageExternal:   3,
	BatchStageQC:         4,
	BatchStagePacking:    5,
	BatchStageDispatched: 6,
}

// BatchStageRank returns the ordering rank of a stage, or 0 for unknown stages.
func BatchStageRank(stage string) int { return batchStageRank[stage] }

// Batch physical location constants
const (
	LocationFactory         = "FACTORY"
	LocationExternalPartner = "EXTERNAL_PARTNER"
	LocationTransit         = "TRANSIT"
	LocationPacked          = "PACKED"
	LocationDispatched      = "DISPATCHED"
)

// Final-QC disposition of a batch
const (
	BatchQCPending  = "PENDING"
	BatchQCApproved = "APPROVED"
	BatchQCRejected = "REJECTED"
)

// ProductionBatch is a traceable sub-quantity of a work order produced under one
// material/shift continuity. A new batch opens when production resumes after a
// gap beyond the configured threshold, chained to its predecessor for genealogy.
type ProductionBatch struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WorkOrderID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"work_order_id"`
	WorkOrder       *WorkOrder `gorm:"foreignKey:WorkOrderID" json:"-"`
	BatchNumber     string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"batch_number"`
	BatchSeq        int        `gorm:"not null" json:"batch_seq"` // monotonically increasing per work order
	PreviousBatchID *uuid.UUID `gorm:"type:uuid" json:"previous_batch_id"`
	MaterialLotID   *uuid.UUID `gorm:"type:uuid;index" json:"material_lot_id"`

	Stage    string `gorm:"type:varchar(20);not null" json:"stage"`
	Location string `gorm:"type:varchar(20);not null" json:"location"`

	QtyProduced     int `gorm:"default:0;not null" json:"qty_produced"`
	QtyRejected     int `gorm:"default:0;not null" json:"qty_rejected"`
	QtyQCApproved   int `gorm:"default:0;not null" json:"qty_qc_approved"`
	QtyPacked       int `gorm:"default:0;not null" json:"qty_packed"`
	QtyDispatched   int `gorm:"default:0;not null" json:"qty_dispatched"`
	QtySentExternal int `gorm:"default:0;not null" json:"qty_sent_external"` // outstanding at sub-contractors

	ProductionComplete       bool   `gorm:"default:false;not null" json:"production_complete"`
	ProductionCompleteReason string `gorm:"type:text" json:"production_complete_reason"`
	QCFinalStatus            string `gorm:"type:varchar(20);default:'PENDING';not null" json:"qc_final_status"`

	LastActivityAt time.Time `gorm:"not null" json:"last_activity_at"`

	Version   int       `gorm:"default:0;not null" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *ProductionBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// AvailableForPacking is the quantity still eligible to be packed. The batch is
// packable only when final QC is approved and this is positive.
func (b *ProductionBatch) AvailableForPacking() int {
	return b.QtyProduced - b.QtyRejected - b.QtyPacked
}

// OnHand is the quantity physically available at the factory for a send-out:
// produced minus quantity outstanding at partners minus quantity dispatched.
func (b *ProductionBatch) OnHand() int {
	return b.QtyProduced - b.QtySentExternal - b.QtyDispatched
}

// Packable reports whether packing may consume from this batch.
func (b *ProductionBatch) Packable() bool {
	return b.QCFinalStatus == BatchQCApproved && b.AvailableForPacking() > 0
}
