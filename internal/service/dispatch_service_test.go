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

func seedPackedBatch(t *testing.T, db *gorm.DB, wo *model.WorkOrder, produced, approved, packed int) *model.ProductionBatch {
	t.Helper()
	batch := seedBatch(t, db, wo, func(b *model.ProductionBatch) {
		b.Stage = model.BatchStagePacking
		b.QtyProduced = produced
		b.QtyQCApproved = approved
		b.QtyPacked = packed
		b.QCFinalStatus = model.BatchQCApproved
	})
	require.NoError(t, db.Model(wo).Updates(map[string]interface{}{
		"qty_produced": produced, "qty_qc_approved": approved, "qty_packed": packed,
	}).Error)
	return batch
}

func TestAllocate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDispatchService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusCompleted)
	batch := seedPackedBatch(t, db, wo, 600, 590, 590)

	allocation, err := svc.Allocate(ctx, userID, AllocateDispatchRequest{
		BatchID:     batch.ID.String(),
		Qty:         500,
		Destination: "Chennai plant",
		CartonNo:    "C-001",
		ExternalRef: "DN-EXT-0001",
	})
	require.NoError(t, err)
	assert.Contains(t, allocation.DispatchNumber, "DN-")

	assert.Equal(t, 500, reloadBatch(t, db, batch.ID).QtyDispatched)
	assert.Equal(t, 500, reloadWorkOrder(t, db, wo.ID).QtyDispatched)
}

// Replaying the same external reference with identical content returns the
// original allocation without double-counting.
func TestAllocateIdempotentReplay(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDispatchService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusCompleted)
	batch := seedPackedBatch(t, db, wo, 600, 590, 590)

	req := AllocateDispatchRequest{
		BatchID:     batch.ID.String(),
		Qty:         200,
		Destination: "Chennai plant",
		ExternalRef: "DN-EXT-0042",
	}
	first, err := svc.Allocate(ctx, userID, req)
	require.NoError(t, err)

	replay, err := svc.Allocate(ctx, userID, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, first.DispatchNumber, replay.DispatchNumber)

	assert.Equal(t, 200, reloadBatch(t, db, batch.ID).QtyDispatched)

	// The same reference with different content is a conflict.
	req.Qty = 300
	_, err = svc.Allocate(ctx, userID, req)
	assert.Equal(t, apperr.CodeDuplicateReference, apperr.CodeOf(err))
}

func TestAllocateExceedsApproved(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDispatchService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusCompleted)
	batch := seedPackedBatch(t, db, wo, 600, 590, 590)

	_, err := svc.Allocate(ctx, uuid.NewString(), AllocateDispatchRequest{
		BatchID:     batch.ID.String(),
		Qty:         600,
		Destination: "Chennai plant",
		ExternalRef: "DN-EXT-0100",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeExceedsApproved, apperr.CodeOf(err))
	assert.Equal(t, 0, reloadBatch(t, db, batch.ID).QtyDispatched)
}

func TestAllocateBlockedOrder(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDispatchService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusCompleted)
	batch := seedPackedBatch(t, db, wo, 600, 590, 590)
	require.NoError(t, db.Model(wo).Update("dispatch_allowed", false).Error)

	_, err := svc.Allocate(ctx, uuid.NewString(), AllocateDispatchRequest{
		BatchID:     batch.ID.String(),
		Qty:         100,
		Destination: "Chennai plant",
		ExternalRef: "DN-EXT-0200",
	})
	assert.Equal(t, apperr.CodeDispatchNotAllowed, apperr.CodeOf(err))
}

func TestAllocateNeverExceedsPacked(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDispatchService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusCompleted)
	// 590 approved but only 400 packed so far
	batch := seedPackedBatch(t, db, wo, 600, 590, 400)

	_, err := svc.Allocate(ctx, uuid.NewString(), AllocateDispatchRequest{
		BatchID:     batch.ID.String(),
		Qty:         500,
		Destination: "Chennai plant",
		ExternalRef: "DN-EXT-0300",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeExceedsApproved, apperr.CodeOf(err))
	assert.Contains(t, apperr.BlockersOf(err)[0], "packed")
}

func TestListAllocations(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDispatchService(db, NewSequenceService(db), noopNotifier{})
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusCompleted)
	batch := seedPackedBatch(t, db, wo, 600, 590, 590)

	for i, ref := range []string{"DN-EXT-A", "DN-EXT-B"} {
		_, err := svc.Allocate(ctx, userID, AllocateDispatchRequest{
			BatchID:     batch.ID.String(),
			Qty:         100 + i,
			Destination: "Chennai plant",
			ExternalRef: ref,
		})
		require.NoError(t, err)
	}

	allocations, err := svc.ListAllocations(ctx, wo.ID.String())
	require.NoError(t, err)
	assert.Len(t, allocations, 2)
}
