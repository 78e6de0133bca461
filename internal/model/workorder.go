package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkOrderStatus constants — the coarse lifecycle state machine. Status is the
// only field transitions are validated against; CurrentStage is a display label.
const (
	WorkOrderStatusPending    = "PENDING"
	WorkOrderStatusInProgress = "IN_PROGRESS"
	WorkOrderStatusQC         = "QC"
	WorkOrderStatusPacking    = "PACKING"
	WorkOrderStatusCompleted  = "COMPLETED"
	WorkOrderStatusShipped    = "SHIPPED"
)

// Fine-grained stage labels shown on the shop-floor board
const (
	StageGoodsIn    = "GOODS_IN"
	StageCutting    = "CUTTING"
	StageForging    = "FORGING"
	StagePlating    = "PLATING"
	StageProduction = "PRODUCTION"
	StageExternal   = "EXTERNAL"
	StageQC         = "QC"
	StagePacking    = "PACKING"
	StageDispatch   = "DISPATCH"
)

// WorkOrder is a unit of manufacturing demand for a fixed quantity of one item
// code, tracked from goods-in through dispatch. Quantity counters are rolled up
// from its production batches inside the same transaction that mutates a batch.
//
// Invariant after every operation:
//
//	QtyDispatched <= QtyPacked <= QtyQCApproved <= QtyProduced-QtyRejected
//	QtyProduced <= QtyOrdered + AuthorizedOverage
type WorkOrder struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WONumber         string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"wo_number"`
	SalesOrderLineID *uuid.UUID `gorm:"type:uuid;index" json:"sales_order_line_id"`
	CustomerName     string     `gorm:"type:varchar(255)" json:"customer_name"` // snapshot at approval time
	ItemCode         string     `gorm:"type:varchar(100);not null" json:"item_code"`
	ItemName         string     `gorm:"type:varchar(255)" json:"item_name"`
	MaterialSpec     string     `gorm:"type:varchar(255)" json:"material_spec"`

	QtyOrdered          int `gorm:"not null" json:"qty_ordered"`
	AuthorizedOverage   int `gorm:"default:0;not null" json:"authorized_overage"`
	AuthorizedShortfall int `gorm:"default:0;not null" json:"authorized_shortfall"`

	Status       string `gorm:"type:varchar(20);not null;index" json:"status"`
	CurrentStage string `gorm:"type:varchar(20)" json:"current_stage"`

	QtyProduced    int `gorm:"default:0;not null" json:"qty_produced"`
	QtyRejected    int `gorm:"default:0;not null" json:"qty_rejected"`
	QtyQCApproved  int `gorm:"default:0;not null" json:"qty_qc_approved"`
	QtyPacked      int `gorm:"default:0;not null" json:"qty_packed"`
	QtyDispatched  int `gorm:"default:0;not null" json:"qty_dispatched"`
	QtyExternalWIP int `gorm:"column:qty_external_wip;default:0;not null" json:"qty_external_wip"`

	ProductionComplete       bool   `gorm:"default:false;not null" json:"production_complete"`
	ProductionCompleteReason string `gorm:"type:text" json:"production_complete_reason"`
	ShortClosed              bool   `gorm:"default:false;not null" json:"short_closed"`
	ShortCloseReason         string `gorm:"type:text" json:"short_close_reason"`
	DispatchAllowed          bool   `gorm:"default:true;not null" json:"dispatch_allowed"`

	Version   int            `gorm:"default:0;not null" json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (w *WorkOrder) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// QuantityChainViolations returns a human-readable description of every broken
// link in the quantity invariant chain, or nil when the chain holds.
func (w *WorkOrder) QuantityChainViolations() []string {
	var out []string
	if w.QtyDispatched > w.QtyPacked {
		out = append(out, fmt.Sprintf("dispatched %d exceeds packed %d", w.QtyDispatched, w.QtyPacked))
	}
	if w.QtyPacked > w.QtyQCApproved {
		out = append(out, fmt.Sprintf("packed %d exceeds QC-approved %d", w.QtyPacked, w.QtyQCApproved))
	}
	if w.QtyQCApproved > w.QtyProduced-w.QtyRejected {
		out = append(out, fmt.Sprintf("QC-approved %d exceeds good produced %d", w.QtyQCApproved, w.QtyProduced-w.QtyRejected))
	}
	if w.QtyProduced > w.QtyOrdered+w.AuthorizedOverage {
		out = append(out, fmt.Sprintf("produced %d exceeds ordered %d plus authorized overage %d", w.QtyProduced, w.QtyOrdered, w.AuthorizedOverage))
	}
	return out
}

// StageTransition is the audit record of every status move, including manual
// overrides with their recorded reason.
type StageTransition struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WorkOrderID uuid.UUID  `gorm:"type:uuid;not null;index" json:"work_order_id"`
	FromStatus  string     `gorm:"type:varchar(20);not null" json:"from_status"`
	ToStatus    string     `gorm:"type:varchar(20);not null" json:"to_status"`
	IsOverride  bool       `gorm:"default:false;not null" json:"is_override"`
	Reason      string     `gorm:"type:text" json:"reason"`
	ActorID     *uuid.UUID `gorm:"type:uuid" json:"actor_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (t *StageTransition) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
