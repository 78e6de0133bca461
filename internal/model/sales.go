package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SalesOrder statuses
const (
	SalesOrderStatusOpen   = "OPEN"
	SalesOrderStatusClosed = "CLOSED"
)

// SalesOrder is the commercial demand document. Approving one of its lines
// creates the work order that carries all production state from then on.
type SalesOrder struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SONumber     string    `gorm:"type:varchar(40);uniqueIndex;not null" json:"so_number"`
	CustomerName string    `gorm:"type:varchar(255);not null" json:"customer_name"`
	Status       string    `gorm:"type:varchar(20);not null;default:'OPEN'" json:"status"`

	Lines []SalesOrderLine `gorm:"foreignKey:SalesOrderID" json:"lines"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *SalesOrder) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SalesOrderLine is one item position. Approved exactly once; the created work
// order is back-referenced for traceability.
type SalesOrderLine struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SalesOrderID uuid.UUID `gorm:"type:uuid;not null;index" json:"sales_order_id"`

	ItemCode     string `gorm:"type:varchar(100);not null" json:"item_code"`
	ItemName     string `gorm:"type:varchar(255)" json:"item_name"`
	MaterialSpec string `gorm:"type:varchar(255)" json:"material_spec"`

	Qty                 int `gorm:"not null" json:"qty"`
	AuthorizedOverage   int `gorm:"default:0;not null" json:"authorized_overage"`
	AuthorizedShortfall int `gorm:"default:0;not null" json:"authorized_shortfall"`

	Approved    bool       `gorm:"default:false;not null" json:"approved"`
	ApprovedBy  *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt  *time.Time `json:"approved_at"`
	WorkOrderID *uuid.UUID `gorm:"type:uuid" json:"work_order_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *SalesOrderLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
