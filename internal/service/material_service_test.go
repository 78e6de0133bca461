package service

import (
	"context"
	"testing"

	"forgeline/internal/model"
	"forgeline/internal/repository"
	"forgeline/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMaterialService(db *gorm.DB) MaterialService {
	return NewMaterialService(
		repository.NewMaterialRepository(db),
		repository.NewWorkOrderRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
		NewSequenceService(db),
	)
}

func TestReceiveLot(t *testing.T) {
	db := setupTestDB(t)
	svc := newMaterialService(db)
	ctx := context.Background()
	userID := uuid.NewString()

	lot, err := svc.ReceiveLot(ctx, userID, ReceiveLotRequest{
		HeatNumber:  "H-4711",
		Alloy:       "42CrMo4",
		Supplier:    "Thyssen",
		GrossWeight: decimal.NewFromInt(520),
		NetWeight:   decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.Contains(t, lot.LotNumber, "LOT-")
	assert.Equal(t, model.LotStatusReceived, lot.Status)
	assert.Equal(t, "500", lot.Available)

	var audits []model.AuditLog
	require.NoError(t, db.Where("action = ?", model.ActionReceiveLot).Find(&audits).Error)
	assert.Len(t, audits, 1)
}

func TestReceiveLotRejectsBadWeights(t *testing.T) {
	db := setupTestDB(t)
	svc := newMaterialService(db)
	ctx := context.Background()

	_, err := svc.ReceiveLot(ctx, uuid.NewString(), ReceiveLotRequest{
		HeatNumber:  "H-1",
		Supplier:    "X",
		GrossWeight: decimal.NewFromInt(10),
		NetWeight:   decimal.Zero,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.ReceiveLot(ctx, uuid.NewString(), ReceiveLotRequest{
		HeatNumber:  "H-2",
		Supplier:    "X",
		GrossWeight: decimal.NewFromInt(10),
		NetWeight:   decimal.NewFromInt(20),
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// A 500 kg lot covers a 300 kg issue but not a further 250 kg one; the failed
// issue must leave no trace.
func TestIssueInsufficientStock(t *testing.T) {
	db := setupTestDB(t)
	svc := newMaterialService(db)
	ctx := context.Background()
	userID := uuid.NewString()

	lot, err := svc.ReceiveLot(ctx, userID, ReceiveLotRequest{
		HeatNumber:  "H-4711",
		Supplier:    "Thyssen",
		GrossWeight: decimal.NewFromInt(520),
		NetWeight:   decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusInProgress)

	require.NoError(t, svc.Issue(ctx, userID, IssueMaterialRequest{
		LotID:       lot.ID,
		WorkOrderID: wo.ID.String(),
		Qty:         decimal.NewFromInt(300),
	}))

	err = svc.Issue(ctx, userID, IssueMaterialRequest{
		LotID:       lot.ID,
		WorkOrderID: wo.ID.String(),
		Qty:         decimal.NewFromInt(250),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInsufficientStock, apperr.CodeOf(err))
	assert.NotEmpty(t, apperr.BlockersOf(err))

	available, err := svc.AvailableQty(ctx, lot.ID)
	require.NoError(t, err)
	assert.True(t, available.Equal(decimal.NewFromInt(200)), "got %s", available)

	issues, err := svc.ListIssues(ctx, lot.ID)
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestIssueStatusProgression(t *testing.T) {
	db := setupTestDB(t)
	svc := newMaterialService(db)
	ctx := context.Background()
	userID := uuid.NewString()

	lot, err := svc.ReceiveLot(ctx, userID, ReceiveLotRequest{
		HeatNumber:  "H-9",
		Supplier:    "SSAB",
		GrossWeight: decimal.NewFromInt(100),
		NetWeight:   decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusInProgress)

	require.NoError(t, svc.Issue(ctx, userID, IssueMaterialRequest{
		LotID: lot.ID, WorkOrderID: wo.ID.String(), Qty: decimal.NewFromInt(40),
	}))
	lots, _, err := svc.ListLots(ctx, 1, 10, "")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, model.LotStatusIssued, lots[0].Status)

	require.NoError(t, svc.Issue(ctx, userID, IssueMaterialRequest{
		LotID: lot.ID, WorkOrderID: wo.ID.String(), Qty: decimal.NewFromInt(60),
	}))
	lots, _, err = svc.ListLots(ctx, 1, 10, "")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, model.LotStatusConsumed, lots[0].Status)
	assert.Equal(t, "0", lots[0].Available)
}

func TestIssueRejectsNonPositiveQty(t *testing.T) {
	db := setupTestDB(t)
	svc := newMaterialService(db)

	err := svc.Issue(context.Background(), uuid.NewString(), IssueMaterialRequest{
		LotID:       uuid.NewString(),
		WorkOrderID: uuid.NewString(),
		Qty:         decimal.NewFromInt(-5),
	})
	assert.Equal(t, apperr.CodeNegativeQuantity, apperr.CodeOf(err))
}
