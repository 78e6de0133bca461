package database

import (
	"log"

	"forgeline/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Migrate applies the schema for every engine model. Shared with the test
// setup, which runs the same migration against sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.SalesOrder{},
		&model.SalesOrderLine{},
		&model.WorkOrder{},
		&model.StageTransition{},
		&model.ProductionBatch{},
		&model.MaterialLot{},
		&model.MaterialIssue{},
		&model.QCRecord{},
		&model.QCMeasurement{},
		&model.ExternalPartner{},
		&model.ExternalMovement{},
		&model.DispatchAllocation{},
		&model.DocumentSequence{},
		&model.AuditLog{},
	)
}
