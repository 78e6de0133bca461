package service

import (
	"context"
	"testing"

	"forgeline/internal/model"
	"forgeline/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newWorkOrderService(db *gorm.DB) WorkOrderService {
	seq := NewSequenceService(db)
	return NewWorkOrderService(db, NewQualityService(db, seq, noopNotifier{}), seq, noopNotifier{})
}

func TestCreateSalesOrderAndApproveLine(t *testing.T) {
	db := setupTestDB(t)
	svc := newWorkOrderService(db)
	ctx := context.Background()
	userID := uuid.NewString()

	order, err := svc.CreateSalesOrder(ctx, userID, CreateSalesOrderRequest{
		CustomerName: "Bharat Forge",
		Lines: []SalesOrderLineInput{{
			ItemCode:            "FLG-010",
			ItemName:            "flange housing",
			MaterialSpec:        "EN 1.4301",
			Qty:                 1000,
			AuthorizedOverage:   20,
			AuthorizedShortfall: 50,
		}},
	})
	require.NoError(t, err)
	assert.Contains(t, order.SONumber, "SO-")
	require.Len(t, order.Lines, 1)

	wo, err := svc.ApproveLine(ctx, userID, order.Lines[0].ID.String())
	require.NoError(t, err)
	assert.Contains(t, wo.WONumber, "WO-")
	assert.Equal(t, "Bharat Forge", wo.CustomerName)
	assert.Equal(t, 1000, wo.QtyOrdered)
	assert.Equal(t, model.WorkOrderStatusPending, wo.Status)
	assert.Equal(t, model.StageGoodsIn, wo.CurrentStage)

	// A line is approved exactly once.
	_, err = svc.ApproveLine(ctx, userID, order.Lines[0].ID.String())
	assert.Equal(t, apperr.CodeDuplicateReference, apperr.CodeOf(err))
}

func TestCreateSalesOrderRejectsBadLines(t *testing.T) {
	db := setupTestDB(t)
	svc := newWorkOrderService(db)

	_, err := svc.CreateSalesOrder(context.Background(), uuid.NewString(), CreateSalesOrderRequest{
		CustomerName: "X",
		Lines:        []SalesOrderLineInput{{ItemCode: "A", Qty: 0}},
	})
	assert.Equal(t, apperr.CodeNegativeQuantity, apperr.CodeOf(err))
}

func TestTransitionRejectsSkippedStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := newWorkOrderService(db)
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusPending)

	_, err := svc.Transition(context.Background(), uuid.NewString(), TransitionRequest{
		WorkOrderID: wo.ID.String(),
		ToStatus:    model.WorkOrderStatusPacking,
	})
	assert.Equal(t, apperr.CodeInvalidTransition, apperr.CodeOf(err))
}

func TestTransitionToInProgressNeedsIncomingGateAndBatch(t *testing.T) {
	db := setupTestDB(t)
	seq := NewSequenceService(db)
	quality := NewQualityService(db, seq, noopNotifier{})
	svc := NewWorkOrderService(db, quality, seq, noopNotifier{})
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusPending)

	_, err := svc.Transition(ctx, userID, TransitionRequest{
		WorkOrderID: wo.ID.String(),
		ToStatus:    model.WorkOrderStatusInProgress,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeGateNotSatisfied, apperr.CodeOf(err))
	// Both unmet conditions come back at once.
	assert.Len(t, apperr.BlockersOf(err), 2)

	_, err = quality.RecordResult(ctx, userID, RecordQCRequest{
		WorkOrderID: wo.ID.String(),
		Kind:        model.QCKindIncoming,
	})
	require.NoError(t, err)
	seedBatch(t, db, &model.WorkOrder{ID: wo.ID}, nil)

	got, err := svc.Transition(ctx, userID, TransitionRequest{
		WorkOrderID: wo.ID.String(),
		ToStatus:    model.WorkOrderStatusInProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, model.WorkOrderStatusInProgress, got.Status)
}

// Scenario: 1000 ordered, only 590 packed and no short-close; the order must
// stay in PACKING with the shortfall spelled out.
func TestTransitionToCompletedBlocksOnShortfall(t *testing.T) {
	db := setupTestDB(t)
	svc := newWorkOrderService(db)
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusPacking)
	require.NoError(t, db.Model(wo).Updates(map[string]interface{}{
		"qty_produced": 600, "qty_qc_approved": 590, "qty_packed": 590,
	}).Error)

	_, err := svc.Transition(ctx, userID, TransitionRequest{
		WorkOrderID: wo.ID.String(),
		ToStatus:    model.WorkOrderStatusCompleted,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeGateNotSatisfied, apperr.CodeOf(err))
	require.Len(t, apperr.BlockersOf(err), 1)
	assert.Contains(t, apperr.BlockersOf(err)[0], "590")

	assert.Equal(t, model.WorkOrderStatusPacking, reloadWorkOrder(t, db, wo.ID).Status)
}

func TestTransitionToCompletedHonorsAuthorizedShortfall(t *testing.T) {
	db := setupTestDB(t)
	svc := newWorkOrderService(db)
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusPacking)
	require.NoError(t, db.Model(wo).Updates(map[string]interface{}{
		"qty_produced": 960, "qty_qc_approved": 960, "qty_packed": 960, "authorized_shortfall": 50,
	}).Error)

	got, err := svc.Transition(ctx, uuid.NewString(), TransitionRequest{
		WorkOrderID: wo.ID.String(),
		ToStatus:    model.WorkOrderStatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, model.WorkOrderStatusCompleted, got.Status)
}

func TestOverrideTransitionRequiresReasonAndIsFlagged(t *testing.T) {
	db := setupTestDB(t)
	svc := newWorkOrderService(db)
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusPending)

	_, err := svc.Transition(ctx, userID, TransitionRequest{
		WorkOrderID: wo.ID.String(),
		ToStatus:    model.WorkOrderStatusInProgress,
		Override:    true,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	got, err := svc.Transition(ctx, userID, TransitionRequest{
		WorkOrderID: wo.ID.String(),
		ToStatus:    model.WorkOrderStatusInProgress,
		Override:    true,
		Reason:      "customer witnessed first article at supplier",
	})
	require.NoError(t, err)
	assert.Equal(t, model.WorkOrderStatusInProgress, got.Status)

	transitions, err := svc.ListTransitions(ctx, wo.ID.String())
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.True(t, transitions[0].IsOverride)
	assert.NotEmpty(t, transitions[0].Reason)

	var audits []model.AuditLog
	require.NoError(t, db.Where("action = ?", model.ActionOverrideTransition).Find(&audits).Error)
	assert.Len(t, audits, 1)
}

func TestShortClose(t *testing.T) {
	db := setupTestDB(t)
	svc := newWorkOrderService(db)
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusPacking)
	require.NoError(t, db.Model(wo).Updates(map[string]interface{}{
		"qty_produced": 600, "qty_qc_approved": 590, "qty_packed": 590,
	}).Error)

	_, err := svc.ShortClose(ctx, userID, wo.ID.String(), "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	got, err := svc.ShortClose(ctx, userID, wo.ID.String(), "material lot exhausted, customer accepted 590")
	require.NoError(t, err)
	assert.Equal(t, model.WorkOrderStatusCompleted, got.Status)
	assert.True(t, got.ShortClosed)

	transitions, err := svc.ListTransitions(ctx, wo.ID.String())
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.True(t, transitions[0].IsOverride)

	// Completed orders cannot be short-closed again.
	_, err = svc.ShortClose(ctx, userID, wo.ID.String(), "again")
	assert.Equal(t, apperr.CodeInvalidTransition, apperr.CodeOf(err))
}

func TestProgress(t *testing.T) {
	db := setupTestDB(t)
	svc := newWorkOrderService(db)
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusInProgress)
	require.NoError(t, db.Model(wo).Updates(map[string]interface{}{
		"qty_produced": 500, "qty_packed": 250, "qty_external_wip": 40,
	}).Error)
	seedBatch(t, db, wo, func(b *model.ProductionBatch) { b.QtyProduced = 300 })
	seedBatch(t, db, wo, func(b *model.ProductionBatch) {
		b.BatchSeq = 2
		b.QtyProduced = 200
	})

	progress, err := svc.Progress(ctx, wo.ID.String())
	require.NoError(t, err)
	assert.Len(t, progress.Batches, 2)
	assert.InDelta(t, 50.0, progress.PctProduced, 0.001)
	assert.InDelta(t, 25.0, progress.PctPacked, 0.001)
	assert.Equal(t, 40, progress.OpenExternal)
}

func TestTransitionToShippedNeedsAllocation(t *testing.T) {
	db := setupTestDB(t)
	svc := newWorkOrderService(db)
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusCompleted)

	_, err := svc.Transition(ctx, userID, TransitionRequest{
		WorkOrderID: wo.ID.String(),
		ToStatus:    model.WorkOrderStatusShipped,
	})
	assert.Equal(t, apperr.CodeGateNotSatisfied, apperr.CodeOf(err))

	require.NoError(t, db.Create(&model.DispatchAllocation{
		DispatchNumber: nextSeedNumber("DN"),
		ExternalRef:    nextSeedNumber("REF"),
		BatchID:        uuid.New(),
		WorkOrderID:    wo.ID,
		Qty:            10,
		Destination:    "Chennai",
	}).Error)

	got, err := svc.Transition(ctx, userID, TransitionRequest{
		WorkOrderID: wo.ID.String(),
		ToStatus:    model.WorkOrderStatusShipped,
	})
	require.NoError(t, err)
	assert.Equal(t, model.WorkOrderStatusShipped, got.Status)
}
