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

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestRecordResultComputesFromMeasurements(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQualityService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusInProgress)

	cases := []struct {
		name     string
		measured string
		want     string
	}{
		{"inside band", "10.02", model.QCResultPass},
		{"at lower bound", "9.95", model.QCResultPass},
		{"below band", "9.94", model.QCResultFail},
		{"above band", "10.06", model.QCResultFail},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := svc.RecordResult(ctx, uuid.NewString(), RecordQCRequest{
				WorkOrderID: wo.ID.String(),
				Kind:        model.QCKindInProcess,
				Measurements: []MeasurementInput{{
					Dimension:    "bore diameter",
					Measured:     d(tc.measured),
					ToleranceMin: d("9.95"),
					ToleranceMax: d("10.05"),
				}},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, rec.Result)
		})
	}
}

func TestRecordResultWaiverRequiresReason(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQualityService(db, NewSequenceService(db), noopNotifier{})
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusInProgress)

	_, err := svc.RecordResult(context.Background(), uuid.NewString(), RecordQCRequest{
		WorkOrderID: wo.ID.String(),
		Kind:        model.QCKindIncoming,
		Waive:       true,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// The most recent mandatory record of a kind decides the gate: an initial fail
// superseded by a pass opens it, and a waiver counts as open.
func TestCanAdvanceLatestRecordWins(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQualityService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusInProgress)
	batch := seedBatch(t, db, wo, nil)

	failing := RecordQCRequest{
		WorkOrderID: wo.ID.String(),
		BatchID:     batch.ID.String(),
		Kind:        model.QCKindFirstPiece,
		Measurements: []MeasurementInput{{
			Dimension: "length", Measured: d("99"), ToleranceMin: d("100"), ToleranceMax: d("101"),
		}},
	}
	_, err := svc.RecordResult(ctx, uuid.NewString(), failing)
	require.NoError(t, err)

	open, err := svc.CanAdvance(ctx, wo.ID, &batch.ID, model.QCKindFirstPiece)
	require.NoError(t, err)
	assert.False(t, open)

	passing := failing
	passing.Measurements = []MeasurementInput{{
		Dimension: "length", Measured: d("100.5"), ToleranceMin: d("100"), ToleranceMax: d("101"),
	}}
	_, err = svc.RecordResult(ctx, uuid.NewString(), passing)
	require.NoError(t, err)

	open, err = svc.CanAdvance(ctx, wo.ID, &batch.ID, model.QCKindFirstPiece)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestCanAdvanceWaivedOpensGate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQualityService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusPending)

	_, err := svc.RecordResult(ctx, uuid.NewString(), RecordQCRequest{
		WorkOrderID:  wo.ID.String(),
		Kind:         model.QCKindIncoming,
		Waive:        true,
		WaiverReason: "certificate pending, material visually conformant",
	})
	require.NoError(t, err)

	open, err := svc.CanAdvance(ctx, wo.ID, nil, model.QCKindIncoming)
	require.NoError(t, err)
	assert.True(t, open)
}

// An order-level record (no batch) covers every batch of the order.
func TestCanAdvanceOrderLevelCoversBatches(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQualityService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusInProgress)
	batch := seedBatch(t, db, wo, nil)

	_, err := svc.RecordResult(ctx, uuid.NewString(), RecordQCRequest{
		WorkOrderID: wo.ID.String(),
		Kind:        model.QCKindFirstPiece,
	})
	require.NoError(t, err)

	open, err := svc.CanAdvance(ctx, wo.ID, &batch.ID, model.QCKindFirstPiece)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestCanAdvanceNoRecordMeansClosed(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQualityService(db, NewSequenceService(db), noopNotifier{})
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusPending)

	open, err := svc.CanAdvance(context.Background(), wo.ID, nil, model.QCKindFinal)
	require.NoError(t, err)
	assert.False(t, open)
}

// Gate reads issued from inside an open transaction must join it: on the
// single-connection test DB a separate connection would block forever, and on
// postgres it would read a stale snapshot.
func TestCanAdvanceJoinsOpenTransaction(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQualityService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusPending)

	err := db.Transaction(func(tx *gorm.DB) error {
		record := model.QCRecord{
			QCNumber:    nextSeedNumber("QC"),
			WorkOrderID: wo.ID,
			Kind:        model.QCKindIncoming,
			Result:      model.QCResultPass,
			Mandatory:   true,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		// The record above is not committed yet; only a read on the same
		// transaction can see it.
		open, err := svc.CanAdvance(repository.WithTx(ctx, tx), wo.ID, nil, model.QCKindIncoming)
		if err != nil {
			return err
		}
		assert.True(t, open)
		return nil
	})
	require.NoError(t, err)
}

// A passing FINAL record releases quantity for packing on the batch and rolls
// the approval into the work order.
func TestFinalPassApprovesBatch(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQualityService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusQC)
	batch := seedBatch(t, db, wo, func(b *model.ProductionBatch) {
		b.Stage = model.BatchStageQC
		b.QtyProduced = 80
		b.QtyRejected = 5
	})
	require.NoError(t, db.Model(wo).Updates(map[string]interface{}{
		"qty_produced": 80, "qty_rejected": 5,
	}).Error)

	_, err := svc.RecordResult(ctx, uuid.NewString(), RecordQCRequest{
		WorkOrderID: wo.ID.String(),
		BatchID:     batch.ID.String(),
		Kind:        model.QCKindFinal,
	})
	require.NoError(t, err)

	got := reloadBatch(t, db, batch.ID)
	assert.Equal(t, model.BatchQCApproved, got.QCFinalStatus)
	assert.Equal(t, 75, got.QtyQCApproved)

	gotWO := reloadWorkOrder(t, db, wo.ID)
	assert.Equal(t, 75, gotWO.QtyQCApproved)
}

func TestFinalPassWithExplicitApprovedQty(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQualityService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusQC)
	batch := seedBatch(t, db, wo, func(b *model.ProductionBatch) {
		b.QtyProduced = 80
	})
	require.NoError(t, db.Model(wo).Update("qty_produced", 80).Error)

	approved := 70
	_, err := svc.RecordResult(ctx, uuid.NewString(), RecordQCRequest{
		WorkOrderID: wo.ID.String(),
		BatchID:     batch.ID.String(),
		Kind:        model.QCKindFinal,
		ApprovedQty: &approved,
	})
	require.NoError(t, err)
	assert.Equal(t, 70, reloadBatch(t, db, batch.ID).QtyQCApproved)

	tooMany := 90
	_, err = svc.RecordResult(ctx, uuid.NewString(), RecordQCRequest{
		WorkOrderID: wo.ID.String(),
		BatchID:     batch.ID.String(),
		Kind:        model.QCKindFinal,
		ApprovedQty: &tooMany,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestFinalFailRejectsBatch(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQualityService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusQC)
	batch := seedBatch(t, db, wo, func(b *model.ProductionBatch) {
		b.QtyProduced = 80
	})

	_, err := svc.RecordResult(ctx, uuid.NewString(), RecordQCRequest{
		WorkOrderID: wo.ID.String(),
		BatchID:     batch.ID.String(),
		Kind:        model.QCKindFinal,
		Measurements: []MeasurementInput{{
			Dimension: "surface", Measured: d("2"), ToleranceMin: d("0"), ToleranceMax: d("1"),
		}},
	})
	require.NoError(t, err)

	got := reloadBatch(t, db, batch.ID)
	assert.Equal(t, model.BatchQCRejected, got.QCFinalStatus)
	assert.Equal(t, 0, got.QtyQCApproved)
}

func TestRecordResultRejectsForeignBatch(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQualityService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusInProgress)
	other := seedWorkOrder(t, db, 50, model.WorkOrderStatusInProgress)
	foreign := seedBatch(t, db, other, nil)

	_, err := svc.RecordResult(ctx, uuid.NewString(), RecordQCRequest{
		WorkOrderID: wo.ID.String(),
		BatchID:     foreign.ID.String(),
		Kind:        model.QCKindInProcess,
	})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
