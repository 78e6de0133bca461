package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaterialLot statuses. A lot moves RECEIVED -> ISSUED on first issue and to
// CONSUMED at zero remaining.
const (
	LotStatusReceived = "RECEIVED"
	LotStatusIssued   = "ISSUED"
	LotStatusConsumed = "CONSUMED"
)

// MaterialLot is a traceable unit of raw material under one supplier
// certification (heat number). Lots are shared by reference: many work orders
// may consume from the same lot, each via its own MaterialIssue rows.
type MaterialLot struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LotNumber  string    `gorm:"type:varchar(40);uniqueIndex;not null" json:"lot_number"`
	HeatNumber string    `gorm:"type:varchar(100);not null;index" json:"heat_number"`
	Alloy      string    `gorm:"type:varchar(100)" json:"alloy"`
	Supplier   string    `gorm:"type:varchar(255)" json:"supplier"` // snapshot of supplier name at receipt

	GrossWeight  decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"gross_weight"`
	NetWeight    decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"net_weight"`
	IssuedWeight decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"issued_weight"`

	Status string `gorm:"type:varchar(20);not null;index" json:"status"`

	Version   int            `gorm:"default:0;not null" json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (l *MaterialLot) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Available is the weight still issuable: net weight minus everything issued.
func (l *MaterialLot) Available() decimal.Decimal {
	return l.NetWeight.Sub(l.IssuedWeight)
}

// MaterialIssue links a lot to the work order that consumed part of it. The sum
// of issues for a lot never exceeds its net weight.
type MaterialIssue struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MaterialLotID uuid.UUID `gorm:"type:uuid;not null;index" json:"material_lot_id"`
	WorkOrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"work_order_id"`

	Qty      decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"qty"`
	IssuedBy *uuid.UUID      `gorm:"type:uuid" json:"issued_by"`

	CreatedAt time.Time `json:"created_at"`
}

func (i *MaterialIssue) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
