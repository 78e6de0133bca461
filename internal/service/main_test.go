package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"forgeline/internal/database"
	"forgeline/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory database with the full schema.
// Max one connection, or each pooled connection would see its own empty
// in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, title, message, entityRef string) {}

func seedWorkOrder(t *testing.T, db *gorm.DB, qtyOrdered int, status string) *model.WorkOrder {
	t.Helper()
	wo := &model.WorkOrder{
		WONumber:        nextSeedNumber("WO"),
		ItemCode:        "FLG-010",
		ItemName:        "flange housing",
		MaterialSpec:    "EN 1.4301",
		QtyOrdered:      qtyOrdered,
		Status:          status,
		CurrentStage:    model.StageGoodsIn,
		DispatchAllowed: true,
	}
	require.NoError(t, db.Create(wo).Error)
	return wo
}

func seedBatch(t *testing.T, db *gorm.DB, wo *model.WorkOrder, mutate func(*model.ProductionBatch)) *model.ProductionBatch {
	t.Helper()
	batch := &model.ProductionBatch{
		WorkOrderID:    wo.ID,
		BatchNumber:    nextSeedNumber("BA"),
		BatchSeq:       1,
		Stage:          model.BatchStageCutting,
		Location:       model.LocationFactory,
		QCFinalStatus:  model.BatchQCPending,
		LastActivityAt: time.Now(),
	}
	if mutate != nil {
		mutate(batch)
	}
	require.NoError(t, db.Create(batch).Error)
	return batch
}

var seedCounter int

// nextSeedNumber hands out document numbers for seeded fixtures, distinct from
// anything SequenceService would assign.
func nextSeedNumber(prefix string) string {
	seedCounter++
	return fmt.Sprintf("%s-SEED-%05d", prefix, seedCounter)
}

func reloadWorkOrder(t *testing.T, db *gorm.DB, id interface{}) model.WorkOrder {
	t.Helper()
	var wo model.WorkOrder
	require.NoError(t, db.First(&wo, "id = ?", id).Error)
	return wo
}

func reloadBatch(t *testing.T, db *gorm.DB, id interface{}) model.ProductionBatch {
	t.Helper()
	var b model.ProductionBatch
	require.NoError(t, db.First(&b, "id = ?", id).Error)
	return b
}
