package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionReceiveLot         = "RECEIVE_LOT"
	ActionIssueMaterial      = "ISSUE_MATERIAL"
	ActionRecordQC           = "RECORD_QC"
	ActionWaiveQC            = "WAIVE_QC"
	ActionCreateBatch        = "CREATE_BATCH"
	ActionRecordProduction   = "RECORD_PRODUCTION"
	ActionProductionComplete = "PRODUCTION_COMPLETE"
	ActionAdvanceStage       = "ADVANCE_STAGE"
	ActionRecordPacking      = "RECORD_PACKING"
	ActionSendExternal       = "SEND_EXTERNAL"
	ActionReceiveExternal    = "RECEIVE_EXTERNAL"
	ActionForwardExternal    = "FORWARD_EXTERNAL"
	ActionStatusTransition   = "STATUS_TRANSITION"
	ActionOverrideTransition = "OVERRIDE_TRANSITION"
	ActionShortClose         = "SHORT_CLOSE"
	ActionAllocateDispatch   = "ALLOCATE_DISPATCH"
	ActionCreateSalesOrder   = "CREATE_SALES_ORDER"
	ActionApproveSalesLine   = "APPROVE_SALES_LINE"
	ActionCreatePartner      = "CREATE_PARTNER"
)

// AuditLog tracks Who, What, and When for every mutation. Corrections
// (short-close, override, waiver) are ordinary attributed rows here too —
// nothing in the engine silently auto-corrects data.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nullable for automated callers
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // human readable label
	Details    string     `gorm:"type:jsonb" json:"details"`                      // serialized JSON payload
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
